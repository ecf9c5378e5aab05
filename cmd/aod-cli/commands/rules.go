package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Works with mapping rule files.",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parses and validates every mapping rule in the rules directory.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc := openServices(cfg)

		t := newTable()
		t.AppendHeader(table.Row{"Rule", "Status"})
		for _, key := range svc.rules.Cached() {
			t.AppendRow(table.Row{key, "ok"})
		}
		t.Render()
	},
}
