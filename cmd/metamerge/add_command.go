package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/larkvale/metamerge/internal/library"
)

func newAddCommand(cctx *commandContext) *cobra.Command {
	var (
		artist string
		title  string
		year   int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an album to the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cctx.ensureLibrary()
			if err != nil {
				return err
			}

			album := &library.Album{
				Artist: artist,
				Title:  title,
				Year:   year,
			}
			if err := svc.Create(cmd.Context(), album); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s - %s (%s)\n", album.Artist, album.Title, album.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Album artist")
	cmd.Flags().StringVar(&title, "title", "", "Album title")
	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	cmd.MarkFlagRequired("artist") //nolint:errcheck
	cmd.MarkFlagRequired("title")  //nolint:errcheck

	return cmd
}
