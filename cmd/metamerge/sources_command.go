package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSourcesCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the enabled metadata sources and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := cctx.buildRegistry()
			sources := registry.All()
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sources enabled")
				return nil
			}

			rows := make([][]string, 0, len(sources))
			for _, s := range sources {
				rows = append(rows, []string{
					string(s.Name()),
					s.Name().DisplayName(),
					yesNo(s.SupportsLookup()),
					yesNo(s.SupportsSearch()),
					strings.Join(s.OwnedFields(), ", "),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Source", "Lookup", "Search", "Owned Fields"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
