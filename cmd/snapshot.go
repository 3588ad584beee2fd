package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage local dataset snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Fetch the full dataset and store it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		src := newSource()
		summary, err := src.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch summary")
		}
		records, err := src.Opportunities(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch opportunities")
		}

		snap := store.Snapshot{
			ID:        uuid.NewString(),
			Records:   records,
			Summary:   summary,
			FetchedAt: time.Now().UTC(),
		}
		if err := st.SaveSnapshot(ctx, snap, cfg.Store.TTL()); err != nil {
			return eris.Wrap(err, "save snapshot")
		}

		zap.L().Info("snapshot saved",
			zap.String("id", snap.ID),
			zap.Int("records", len(records)),
			zap.Duration("ttl", cfg.Store.TTL()),
		)
		return nil
	},
}

var snapshotPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.Prune(ctx)
		if err != nil {
			return eris.Wrap(err, "prune snapshots")
		}

		zap.L().Info("snapshots pruned", zap.Int("deleted", n))
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotPruneCmd)
	rootCmd.AddCommand(snapshotCmd)
}
