package commands

import (
	"log/slog"
	"time"

	"aod-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <platform>",
	Short: "Fetches and reconciles the current ranking of a platform.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		t1 := time.Now()
		err := svc.ingest.RefreshRanking(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("ranking cycle failed", err)
		}
		slog.Info("ranking cycle time", "seconds", time.Since(t1).Seconds())
	},
}
