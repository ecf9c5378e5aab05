package commands

import (
	"log/slog"
	"time"

	"aod-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <domain> <platform>",
	Short: "Runs one content ingestion cycle for a (domain, platform) pair.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		t1 := time.Now()
		err := svc.ingest.IngestContent(cmd.Context(), args[0], args[1])
		if err != nil {
			serviceutil.Fatal("content cycle failed", err)
		}
		slog.Info("content cycle time", "seconds", time.Since(t1).Seconds())
	},
}
