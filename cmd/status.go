package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report backend health and dataset summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client := newSIOPClient()
		if err := client.Health(ctx); err != nil {
			return eris.Wrap(err, "backend health")
		}

		summary, err := client.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch summary")
		}

		out := map[string]any{
			"backend": cfg.API.BaseURL,
			"summary": summary,
		}

		// A stored snapshot is optional; report it when present.
		if st, err := initStore(ctx); err == nil {
			defer st.Close()
			if err := st.Migrate(ctx); err == nil {
				if snap, err := st.LoadSnapshot(ctx); err == nil {
					out["snapshot"] = map[string]any{
						"id":         snap.ID,
						"records":    len(snap.Records),
						"fetched_at": snap.FetchedAt,
					}
				} else if !eris.Is(err, store.ErrNoSnapshot) {
					zap.L().Warn("snapshot lookup failed", zap.Error(err))
				}
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
