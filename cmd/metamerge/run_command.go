package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/larkvale/metamerge/internal/event"
	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

func newRunCommand(cctx *commandContext) *cobra.Command {
	var (
		dryRun      bool
		force       bool
		sourcesFlag []string
		primaryFlag string
		strategy    string
		maxDistance float64
		exclude     []string
	)

	cmd := &cobra.Command{
		Use:   "run [query...]",
		Short: "Fetch, merge, and apply metadata for matching albums",
		Long: `Fetch metadata from the configured sources for every album matching
the query (or the whole library when no query is given), merge the
results per the configured strategy, and write them back. With
--dry-run the proposed changes are printed instead of written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mc, err := cctx.cfg.MergeConfig()
			if err != nil {
				return err
			}

			if len(sourcesFlag) > 0 {
				names := make([]source.Name, 0, len(sourcesFlag))
				for _, s := range sourcesFlag {
					names = append(names, source.Name(s))
				}
				mc.Sources = names
			}
			if primaryFlag != "" {
				mc.Primary = source.Name(primaryFlag)
			}
			if strategy != "" {
				mc.Strategy = merge.Strategy(strategy)
			}
			if cmd.Flags().Changed("max-distance") {
				mc.MaxDistance = &maxDistance
			}
			if len(exclude) > 0 {
				mc.Exclude = append(mc.Exclude, exclude...)
			}
			mc.Force = force
			mc.Write = !dryRun

			registry := cctx.buildRegistry()
			sources, err := registry.Resolve(mc.Sources)
			if err != nil {
				return &merge.ConfigError{Reason: err.Error()}
			}
			if len(sources) == 0 {
				return &merge.ConfigError{Reason: "no sources enabled"}
			}

			// Pin the resolved order so "auto" validates like an
			// explicit list.
			names := make([]source.Name, 0, len(sources))
			for _, s := range sources {
				names = append(names, s.Name())
			}
			mc.Sources = names
			if err := mc.Validate(); err != nil {
				return err
			}

			svc, err := cctx.ensureLibrary()
			if err != nil {
				return err
			}

			entities, err := svc.Query(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching albums")
				return nil
			}

			var selector merge.Selector
			if isatty.IsTerminal(os.Stdin.Fd()) {
				selector = newPromptSelector(cmd.InOrStdin(), cmd.OutOrStdout())
			} else {
				cctx.logger.Info("stdin is not a terminal, ambiguous matches will be skipped")
			}

			bus := event.NewBus(cctx.logger)
			subscribeProgress(bus, cmd.OutOrStdout(), dryRun)

			runner := merge.NewRunner(mc, sources, selector, svc, bus, cctx.logger)
			summary, runErr := runner.Run(ctx, entities)

			if dryRun {
				printChanges(cmd.OutOrStdout(), summary)
			}
			printSummary(cmd.OutOrStdout(), summary, dryRun)

			if runErr != nil && !errors.Is(runErr, merge.ErrAborted) {
				return runErr
			}
			if summary.Aborted {
				return merge.ErrAborted
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show proposed changes without writing them")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore stored source identifiers and search again")
	cmd.Flags().StringSliceVar(&sourcesFlag, "source", nil, "Source to query, in priority order (repeatable)")
	cmd.Flags().StringVar(&primaryFlag, "primary", "", "Primary source for the split strategy")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Merge strategy: priority, all, or split")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "Auto-accept matches at or below this distance (0-1)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Field to drop from merge results (repeatable)")

	return cmd
}
