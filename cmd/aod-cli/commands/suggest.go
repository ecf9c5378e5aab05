package commands

import (
	"fmt"

	"aod-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var suggestThreshold *float64

func init() {
	suggestThreshold = suggestCmd.Flags().Float64(
		"threshold", 0.92,
		"Minimum Jaro-Winkler similarity for a pair to be reported.",
	)
	rootCmd.AddCommand(suggestCmd)
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <domain> [--threshold <0..1>]",
	Short: "Reports near-duplicate content titles for manual merge review.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		suggestions, err := svc.catalog.SuggestMerges(cmd.Context(), args[0], *suggestThreshold)
		if err != nil {
			serviceutil.Fatal("failed to compute merge suggestions", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Similarity", "Left", "Right"})
		for _, s := range suggestions {
			t.AppendRow(table.Row{
				fmt.Sprintf("%.3f", s.Similarity),
				fmt.Sprintf("#%d %s", s.LeftId, s.LeftTitle),
				fmt.Sprintf("#%d %s", s.RightId, s.RightTitle),
			})
		}
		t.Render()
	},
}
