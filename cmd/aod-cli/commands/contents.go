package commands

import (
	"strings"

	"aod-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(contentsCmd)
}

var contentsCmd = &cobra.Command{
	Use:   "contents <domain>",
	Short: "Prints the canonical contents of a domain.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		contents, err := svc.catalog.List(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to list contents", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Title", "Platforms"})
		for _, c := range contents {
			t.AppendRow(table.Row{c.Id, c.Title, strings.Join(c.Platforms, ", ")})
		}
		t.Render()
	},
}
