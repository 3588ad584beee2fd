package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	refreshForce bool
	refreshWait  bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the backend to reload its dataset from S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resp, err := newSIOPClient().RefreshS3(ctx, refreshForce, refreshWait)
		if err != nil {
			return eris.Wrap(err, "refresh backend")
		}

		zap.L().Info("backend refresh",
			zap.Bool("success", resp.Success),
			zap.Bool("synchronous", resp.Synchronous),
			zap.String("message", resp.Message),
		)
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "refresh even if the backend considers its data fresh")
	refreshCmd.Flags().BoolVar(&refreshWait, "wait", false, "block until the backend finishes reloading")
	rootCmd.AddCommand(refreshCmd)
}
