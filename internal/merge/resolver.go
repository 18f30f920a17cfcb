package merge

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/larkvale/metamerge/internal/source"
)

// Resolver turns one (entity, source) pair into a single accepted
// candidate, or reports why none could be accepted.
type Resolver struct {
	selector Selector
	logger   *slog.Logger
}

// NewResolver creates a resolver. The selector is invoked whenever a
// match is ambiguous; a nil selector treats every ambiguous match as a
// skip.
func NewResolver(selector Selector, logger *slog.Logger) *Resolver {
	return &Resolver{
		selector: selector,
		logger:   logger.With(slog.String("component", "resolver")),
	}
}

// Resolve obtains candidates for the entity from the source and reduces
// them to one accepted candidate.
//
// A stored source identifier is authoritative: unless cfg.Force is set,
// a successful direct lookup is accepted with distance 0 and no search
// is performed. Otherwise the source is searched, candidates are scored
// and ranked, and the best one is auto-accepted when it falls inside
// cfg.MaxDistance. Anything more ambiguous goes to the selector.
//
// Returns ErrNoMatch when the source has nothing acceptable, ErrAborted
// when the user aborted selection, and *source.UnavailableError when
// the source itself failed.
func (r *Resolver) Resolve(ctx context.Context, entity Entity, src source.Source, cfg Config) (*AcceptedCandidate, error) {
	name := src.Name()

	if !cfg.Force {
		if id := entity.SourceIDs[name]; id != "" && src.SupportsLookup() {
			cand, err := r.lookup(ctx, src, id)
			if err != nil {
				return nil, err
			}
			if cand != nil {
				r.logger.Debug("accepted stored identifier",
					slog.String("entity", entity.ID),
					slog.String("source", string(name)),
					slog.String("id", id))
				return r.accept(name, src, *cand, 0, cfg), nil
			}
		}
	}

	if !src.SupportsSearch() {
		return nil, ErrNoMatch
	}

	candidates, err := src.Search(ctx, entity.Fields)
	if err != nil {
		return nil, unavailable(name, err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatch
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{
			Candidate: c,
			Distance:  Distance(entity.Fields, c.Fields),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if cfg.MaxDistance != nil && scored[0].Distance <= *cfg.MaxDistance {
		r.logger.Debug("auto-accepted candidate",
			slog.String("entity", entity.ID),
			slog.String("source", string(name)),
			slog.Float64("distance", scored[0].Distance))
		return r.accept(name, src, scored[0].Candidate, scored[0].Distance, cfg), nil
	}

	if r.selector == nil {
		return nil, ErrNoMatch
	}

	sel, err := r.selector.Select(ctx, entity, name, scored)
	if err != nil {
		return nil, err
	}
	switch {
	case sel.Abort:
		return nil, ErrAborted
	case sel.Skip || sel.Candidate == nil:
		return nil, ErrNoMatch
	default:
		return r.accept(name, src, sel.Candidate.Candidate, sel.Candidate.Distance, cfg), nil
	}
}

// lookup performs a direct-ID fetch. A NotFound answer falls back to
// search; any other failure marks the source unavailable.
func (r *Resolver) lookup(ctx context.Context, src source.Source, id string) (*source.Candidate, error) {
	cand, err := src.LookupByID(ctx, id)
	if err != nil {
		var notFound *source.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, unavailable(src.Name(), err)
	}
	return cand, nil
}

// accept builds the accepted candidate, stripping excluded fields so
// they never reach the merge.
func (r *Resolver) accept(name source.Name, src source.Source, cand source.Candidate, distance float64, cfg Config) *AcceptedCandidate {
	fields := make(source.Fields, len(cand.Fields))
	for k, v := range cand.Fields {
		if cfg.excluded(k) {
			continue
		}
		fields[k] = v
	}
	cand.Fields = fields

	return &AcceptedCandidate{
		Source:    name,
		Candidate: cand,
		Distance:  distance,
		Owned:     src.OwnedFields(),
	}
}

func unavailable(name source.Name, err error) error {
	var unavail *source.UnavailableError
	if errors.As(err, &unavail) {
		return err
	}
	return &source.UnavailableError{Source: name, Cause: err}
}
