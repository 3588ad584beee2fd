package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/dataset"
	"github.com/innovatis-mc/emendas-cli/internal/export"
	"github.com/innovatis-mc/emendas-cli/internal/filter"
	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
)

var (
	exportFormat     string
	exportOutput     string
	exportFields     []string
	exportEssential  bool
	exportSortBy     string
	exportSortOrder  string
	exportMax        int
	exportEncoding   string
	exportDelimiter  string
	exportNoHeaders  bool
	exportNoStats    bool
	exportNoLogo     bool
	exportLogoPath   string
	exportYearStart  int
	exportYearEnd    int
	exportSearchTerm string
	exportOffline    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the opportunity dataset to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		exportCfg, err := exportConfigFromFlags()
		if err != nil {
			return err
		}

		req, err := resolveExportData(ctx)
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = exportFileName(req, exportCfg)
		}

		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close()

		if err := export.Export(f, req, exportCfg); err != nil {
			os.Remove(path)
			return eris.Wrap(err, "export")
		}

		zap.L().Info("export written",
			zap.String("path", filepath.Clean(path)),
			zap.String("format", string(exportCfg.Format)),
			zap.Int("records", len(req.Data)),
		)
		return nil
	},
}

// exportFileName appends the format extension unless a custom name already
// carries it.
func exportFileName(req export.Request, cfg export.Config) string {
	name := export.Filename(req, cfg)
	ext := "." + string(cfg.Format)
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	return name + ext
}

func exportConfigFromFlags() (export.Config, error) {
	cfg := export.DefaultConfig()

	format := export.Format(strings.ToLower(exportFormat))
	switch format {
	case export.FormatCSV, export.FormatXLSX, export.FormatJSON, export.FormatPDF:
		cfg.Format = format
	default:
		return cfg, eris.Errorf("unsupported format: %s", exportFormat)
	}

	switch {
	case len(exportFields) > 0:
		cfg.IncludeAllFields = false
		cfg.SelectedFields = exportFields
	case exportEssential:
		cfg.IncludeAllFields = false
		cfg.SelectedFields = export.EssentialFieldKeys()
	}

	if exportSortBy != "" {
		cfg.SortBy = exportSortBy
	}
	if exportSortOrder == string(dataset.Asc) {
		cfg.SortOrder = dataset.Asc
	}
	cfg.MaxRecords = exportMax
	if exportEncoding != "" {
		cfg.Encoding = export.Encoding(exportEncoding)
	}
	if exportDelimiter != "" {
		cfg.Delimiter = exportDelimiter
	}
	cfg.IncludeHeaders = !exportNoHeaders
	cfg.IncludeStats = !exportNoStats
	cfg.IncludeLogo = !exportNoLogo
	cfg.LogoPath = exportLogoPath

	if exportYearStart > 0 || exportYearEnd > 0 {
		// The range filter needs both bounds; an open end means "no limit".
		start, end := exportYearStart, exportYearEnd
		if start == 0 {
			start = 1
		}
		if end == 0 {
			end = 9999
		}
		if start > end {
			return cfg, eris.Errorf("year range %d..%d is empty", start, end)
		}
		cfg.DateRange = export.DateRange{
			Enabled: true,
			Start:   start,
			End:     end,
		}
	}

	return cfg, nil
}

// resolveExportData fetches the dataset either live from the backend or from
// the newest stored snapshot. A search term narrows the live dataset through
// the backend and the offline one locally.
func resolveExportData(ctx context.Context) (export.Request, error) {
	if exportOffline {
		return offlineExportData(ctx)
	}

	// Zero delays: CLI exports are one-shot, nothing to debounce.
	rec := reconcile.New(newSource(), reconcile.WithDelays(0, 0))
	if err := rec.Init(ctx); err != nil {
		return export.Request{}, eris.Wrap(err, "load dataset")
	}
	if exportSearchTerm != "" {
		rec.Search(ctx, exportSearchTerm)
	}

	snap := rec.View()
	if snap.Err != nil {
		return export.Request{}, eris.Wrap(snap.Err, "dataset state")
	}
	return export.Request{
		Data:          snap.Data,
		Summary:       snap.Summary,
		Filters:       snap.Filters,
		SearchTerm:    snap.SearchTerm,
		TotalOriginal: len(snap.Data),
	}, nil
}

func offlineExportData(ctx context.Context) (export.Request, error) {
	st, err := initStore(ctx)
	if err != nil {
		return export.Request{}, err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return export.Request{}, eris.Wrap(err, "migrate store")
	}

	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		return export.Request{}, eris.Wrap(err, "load snapshot (run `emendas-cli snapshot save` first)")
	}

	data := snap.Records
	if exportSearchTerm != "" {
		data = filter.TextSearch(data, exportSearchTerm)
	}

	zap.L().Info("using stored snapshot",
		zap.String("id", snap.ID),
		zap.Time("fetched_at", snap.FetchedAt),
		zap.Int("records", len(data)),
	)

	return export.Request{
		Data:          data,
		Summary:       snap.Summary,
		Filters:       model.NewFilterState(snap.Summary),
		SearchTerm:    exportSearchTerm,
		TotalOriginal: len(data),
	}, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx, csv, json, pdf")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default derived from dataset state)")
	exportCmd.Flags().StringSliceVar(&exportFields, "fields", nil, "comma-separated field keys (default all)")
	exportCmd.Flags().BoolVar(&exportEssential, "essential", false, "export only the essential fields")
	exportCmd.Flags().StringVar(&exportSortBy, "sort-by", "", "sort field (default dotacao_atual)")
	exportCmd.Flags().StringVar(&exportSortOrder, "sort-order", "desc", "sort direction: asc or desc")
	exportCmd.Flags().IntVar(&exportMax, "max-records", 0, "cap on exported records (0 keeps everything)")
	exportCmd.Flags().StringVar(&exportEncoding, "encoding", "", "CSV encoding: UTF-8 or ISO-8859-1")
	exportCmd.Flags().StringVar(&exportDelimiter, "delimiter", "", "CSV delimiter (default comma)")
	exportCmd.Flags().BoolVar(&exportNoHeaders, "no-headers", false, "omit the header row")
	exportCmd.Flags().BoolVar(&exportNoStats, "no-stats", false, "omit the statistics section")
	exportCmd.Flags().BoolVar(&exportNoLogo, "no-logo", false, "omit the PDF logo")
	exportCmd.Flags().StringVar(&exportLogoPath, "logo", "", "path to the PDF logo image")
	exportCmd.Flags().IntVar(&exportYearStart, "year-start", 0, "keep records from this year on")
	exportCmd.Flags().IntVar(&exportYearEnd, "year-end", 0, "keep records up to this year")
	exportCmd.Flags().StringVar(&exportSearchTerm, "search", "", "narrow the dataset by search term")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "export from the stored snapshot instead of the backend")
	rootCmd.AddCommand(exportCmd)
}
