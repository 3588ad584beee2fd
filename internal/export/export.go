// Package export serializes a displayed dataset to CSV, XLSX, JSON, or PDF.
//
// Every format goes through the same pipeline: year-range filter, sort,
// truncation, and field projection, so a record looks identical no matter
// which serializer renders it.
package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/dataset"
	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// Format identifies an output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// Encoding selects the CSV byte encoding.
type Encoding string

const (
	EncodingUTF8   Encoding = "UTF-8"
	EncodingLatin1 Encoding = "ISO-8859-1"
)

// DateRange restricts the export to records whose year falls inside the
// inclusive window.
type DateRange struct {
	Enabled bool `json:"enabled"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
}

// Config drives one export. It is built fresh per request and never
// persisted.
type Config struct {
	Format           Format            `json:"format"`
	IncludeAllFields bool              `json:"include_all_fields"`
	SelectedFields   []string          `json:"selected_fields"`
	DateRange        DateRange         `json:"date_range"`
	SortBy           string            `json:"sort_by"`
	SortOrder        dataset.Direction `json:"sort_order"`
	IncludeLogo      bool              `json:"include_logo"`
	IncludeStats     bool              `json:"include_stats"`
	IncludeHeaders   bool              `json:"include_headers"`
	MaxRecords       int               `json:"max_records"` // 0 keeps everything
	Encoding         Encoding          `json:"encoding"`
	Delimiter        string            `json:"delimiter"`
	CustomFileName   string            `json:"custom_file_name"`
	LogoPath         string            `json:"logo_path"`
}

// DefaultConfig mirrors the dialog's initial state: XLSX, all fields,
// highest allocation first, all content toggles on.
func DefaultConfig() Config {
	return Config{
		Format:           FormatXLSX,
		IncludeAllFields: true,
		SortBy:           dataset.FieldDotacaoAtual,
		SortOrder:        dataset.Desc,
		IncludeLogo:      true,
		IncludeStats:     true,
		IncludeHeaders:   true,
		Encoding:         EncodingUTF8,
		Delimiter:        ",",
	}
}

// Request carries the dataset and the dashboard state it was displayed
// under. SearchTerm is empty while browsing.
type Request struct {
	Data          []model.Opportunity
	Summary       model.Summary
	Filters       model.FilterState
	SearchTerm    string
	TotalOriginal int
	Now           time.Time // zero means time.Now()
}

// ConfigFacts summarizes the export configuration for embedded metadata.
type ConfigFacts struct {
	Formato         string `json:"formato"`
	CamposIncluidos int    `json:"campos_incluidos"`
	Ordenacao       string `json:"ordenacao"`
	Encoding        string `json:"encoding"`
}

// Metadata is embedded in every artifact that carries provenance: CSV
// comment lines, the XLSX info sheet, the JSON envelope, and the PDF
// header section. Field names match the downstream consumers.
type Metadata struct {
	GeradoEm         string      `json:"gerado_em"`
	TotalRegistros   int         `json:"total_registros"`
	TotalOriginal    int         `json:"total_original"`
	FiltrosAplicados []string    `json:"filtros_aplicados"`
	BuscaAtiva       string      `json:"busca_ativa,omitempty"`
	Configuracao     ConfigFacts `json:"configuracao_exportacao"`
}

// Serializer renders projected rows in one output format.
type Serializer interface {
	Serialize(w io.Writer, rows []model.Opportunity, fields []Field, meta Metadata, cfg Config) error
}

var serializers = map[Format]Serializer{
	FormatCSV:  csvSerializer{},
	FormatXLSX: xlsxSerializer{},
	FormatJSON: jsonSerializer{},
	FormatPDF:  pdfSerializer{},
}

// Formats returns the registered output formats.
func Formats() []Format {
	return []Format{FormatXLSX, FormatCSV, FormatJSON, FormatPDF}
}

// Export runs the processing pipeline over req.Data and writes the
// serialized artifact to w.
func Export(w io.Writer, req Request, cfg Config) error {
	ser, ok := serializers[cfg.Format]
	if !ok {
		return eris.Errorf("export: unknown format %q", cfg.Format)
	}

	fields := selectFields(cfg)
	if len(fields) == 0 {
		return eris.New("export: no fields selected")
	}

	rows := process(req.Data, cfg)
	meta := buildMetadata(req, cfg, len(rows), len(fields))

	if err := ser.Serialize(w, rows, fields, meta, cfg); err != nil {
		return eris.Wrapf(err, "export: serialize %s", cfg.Format)
	}

	zap.L().Info("export complete",
		zap.String("format", string(cfg.Format)),
		zap.Int("records", len(rows)),
		zap.Int("fields", len(fields)))
	return nil
}

// process applies the shared pipeline stages in order: year window, sort,
// truncation. Projection happens inside each serializer via the field
// accessors.
func process(ds []model.Opportunity, cfg Config) []model.Opportunity {
	out := ds
	if cfg.DateRange.Enabled && cfg.DateRange.Start > 0 && cfg.DateRange.End > 0 {
		kept := make([]model.Opportunity, 0, len(out))
		for _, o := range out {
			if o.Ano >= cfg.DateRange.Start && o.Ano <= cfg.DateRange.End {
				kept = append(kept, o)
			}
		}
		out = kept
	}

	out = dataset.Sort(out, cfg.SortBy, cfg.SortOrder)

	if cfg.MaxRecords > 0 && len(out) > cfg.MaxRecords {
		out = out[:cfg.MaxRecords]
	}
	return out
}

func buildMetadata(req Request, cfg Config, records, fieldCount int) Metadata {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Metadata{
		GeradoEm:         now.Format("02/01/2006 15:04:05"),
		TotalRegistros:   records,
		TotalOriginal:    req.TotalOriginal,
		FiltrosAplicados: req.Filters.Describe(req.Summary),
		BuscaAtiva:       req.SearchTerm,
		Configuracao: ConfigFacts{
			Formato:         string(cfg.Format),
			CamposIncluidos: fieldCount,
			Ordenacao:       cfg.SortBy + " (" + string(cfg.SortOrder) + ")",
			Encoding:        string(cfg.Encoding),
		},
	}
}
