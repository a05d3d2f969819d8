package cmd

import (
	"catalog-ingest/internal/components/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the programs that a scrape would process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := newRenderer(config, telemetry.SlogAPI{})
		defer r.Close()

		all, err := resolvePrograms(cmd.Context(), r, config)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Program", "Type", "Url"})
		for _, p := range selectPrograms(all, programs, limit) {
			t.AppendRow(table.Row{p.Name, p.Type, p.Url})
		}
		t.AppendFooter(table.Row{"", "", len(all)})
		t.Render()
		return nil
	},
}
