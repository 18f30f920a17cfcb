package merge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/larkvale/metamerge/internal/event"
	"github.com/larkvale/metamerge/internal/source"
)

// Outcome classifies what happened to one entity during a run.
type Outcome string

// Per-entity outcomes.
const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Summary is the per-run report.
type Summary struct {
	Total   int  `json:"total"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	Failed  int  `json:"failed"`
	Aborted bool `json:"aborted"`

	// Results holds the merged record for every entity that produced
	// one, including dry-run records that were never persisted.
	Results []*Result `json:"results"`
}

// Runner drives the merge across a batch of entities.
type Runner struct {
	cfg      Config
	sources  []source.Source
	gatherer *Gatherer
	sink     Sink
	bus      *event.Bus
	logger   *slog.Logger
}

// NewRunner wires a runner. cfg must already be validated; sources must
// be resolved in cfg.Sources order. The bus may be nil when no reporting
// is wanted.
func NewRunner(cfg Config, sources []source.Source, selector Selector, sink Sink, bus *event.Bus, logger *slog.Logger) *Runner {
	resolver := NewResolver(selector, logger)
	return &Runner{
		cfg:      cfg,
		sources:  sources,
		gatherer: NewGatherer(resolver, logger),
		sink:     sink,
		bus:      bus,
		logger:   logger.With(slog.String("component", "runner")),
	}
}

// Run processes entities sequentially in the given order. Entities with
// no metadata are skipped and the run continues; an abort from
// interactive selection stops the run immediately, preserving results
// already applied. The summary is returned even alongside an error.
func (r *Runner) Run(ctx context.Context, entities []Entity) (*Summary, error) {
	summary := &Summary{Total: len(entities)}

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		accepted, failures, err := r.gatherer.Gather(ctx, entity, r.sources, r.cfg)
		if err != nil {
			var noMeta *NoMetadataError
			switch {
			case errors.As(err, &noMeta):
				r.recordMiss(summary, entity, failures)
				continue
			case errors.Is(err, ErrAborted):
				summary.Aborted = true
				r.logger.Info("run aborted",
					slog.String("entity", entity.ID),
					slog.Int("processed", summary.Updated+summary.Skipped+summary.Failed))
				return summary, ErrAborted
			default:
				return summary, err
			}
		}

		result := Merge(entity, accepted, r.cfg)
		result.Changes = DiffFields(entity.Fields, result.Fields)

		if r.cfg.Write {
			if err := r.sink.Apply(ctx, entity, result); err != nil {
				summary.Failed++
				r.logger.Error("applying merge result",
					slog.String("entity", entity.ID),
					slog.String("error", err.Error()))
				r.publish(event.EntityFailed, entity, map[string]any{"error": err.Error()})
				continue
			}
		}

		summary.Updated++
		summary.Results = append(summary.Results, result)
		r.publish(event.EntityUpdated, entity, map[string]any{
			"fields":  len(result.Fields),
			"changes": len(result.Changes),
			"dry_run": !r.cfg.Write,
		})
	}

	r.bus.Publish(event.Event{
		Type: event.RunCompleted,
		Data: map[string]any{
			"total":   summary.Total,
			"updated": summary.Updated,
			"skipped": summary.Skipped,
			"failed":  summary.Failed,
		},
	})
	return summary, nil
}

// recordMiss classifies an entity that produced no metadata: failed when
// at least one source errored, otherwise skipped.
func (r *Runner) recordMiss(summary *Summary, entity Entity, failures int) {
	if failures > 0 {
		summary.Failed++
		r.publish(event.EntityFailed, entity, map[string]any{"source_errors": failures})
		return
	}
	summary.Skipped++
	r.logger.Info("no metadata found, skipping",
		slog.String("entity", entity.ID))
	r.publish(event.EntitySkipped, entity, nil)
}

func (r *Runner) publish(t event.Type, entity Entity, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["entity"] = entity.ID
	if artist := firstString(entity.Fields, "artist", "albumartist"); artist != "" {
		data["artist"] = artist
	}
	if title := firstString(entity.Fields, "album", "title"); title != "" {
		data["album"] = title
	}
	r.bus.Publish(event.Event{Type: t, Data: data})
}
