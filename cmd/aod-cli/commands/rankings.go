package commands

import (
	"aod-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rankingsCmd)
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings <platform>",
	Short: "Prints the persisted ranking of a platform.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		entries, err := svc.rankings.List(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to list rankings", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Rank", "Change", "Title", "Source Id", "Content Id"})
		for _, e := range entries {
			contentId := any(e.ContentId)
			if e.ContentId == 0 {
				contentId = "-"
			}
			t.AppendRow(table.Row{e.Ranking, e.RankChange, e.Title, e.PlatformSpecificId, contentId})
		}
		t.Render()
	},
}
