package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query...]",
		Short: "List library albums, optionally filtered by artist or title",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cctx.ensureLibrary()
			if err != nil {
				return err
			}

			albums, err := svc.List(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(albums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no albums")
				return nil
			}

			rows := make([][]string, 0, len(albums))
			for _, a := range albums {
				year := ""
				if a.Year != 0 {
					year = strconv.Itoa(a.Year)
				}
				ids := make([]string, 0, len(a.SourceIDs))
				for name := range a.SourceIDs {
					ids = append(ids, string(name))
				}
				sort.Strings(ids)
				rows = append(rows, []string{
					a.ID,
					a.Artist,
					a.Title,
					year,
					strings.Join(ids, ", "),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Artist", "Title", "Year", "Matched Sources"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
