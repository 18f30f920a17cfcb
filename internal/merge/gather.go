package merge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/larkvale/metamerge/internal/source"
)

// Gatherer applies the resolver across every configured source for an
// entity and collects the accepted candidates.
type Gatherer struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewGatherer creates a gatherer on top of the given resolver.
func NewGatherer(resolver *Resolver, logger *slog.Logger) *Gatherer {
	return &Gatherer{
		resolver: resolver,
		logger:   logger.With(slog.String("component", "gatherer")),
	}
}

// Gather resolves the entity against each source in order. Sources that
// produce no match or are unavailable are simply absent from the result;
// neither is fatal for the entity. The returned error count says how
// many sources failed with an availability error.
//
// Returns *NoMetadataError when no source produced an accepted
// candidate, and ErrAborted unchanged when the user aborted selection.
func (g *Gatherer) Gather(ctx context.Context, entity Entity, sources []source.Source, cfg Config) (map[source.Name]*AcceptedCandidate, int, error) {
	accepted := make(map[source.Name]*AcceptedCandidate, len(sources))
	failures := 0

	for _, src := range sources {
		ac, err := g.resolver.Resolve(ctx, entity, src, cfg)
		switch {
		case err == nil:
			accepted[src.Name()] = ac
		case errors.Is(err, ErrNoMatch):
			g.logger.Debug("no match",
				slog.String("entity", entity.ID),
				slog.String("source", string(src.Name())))
		case errors.Is(err, ErrAborted):
			return nil, failures, err
		case isUnavailable(err):
			failures++
			g.logger.Warn("source unavailable, skipping",
				slog.String("entity", entity.ID),
				slog.String("source", string(src.Name())),
				slog.String("error", err.Error()))
		default:
			// Selector I/O failures and context cancellation are fatal.
			return nil, failures, err
		}
	}

	if len(accepted) == 0 {
		return nil, failures, &NoMetadataError{EntityID: entity.ID}
	}
	return accepted, failures, nil
}

func isUnavailable(err error) bool {
	var unavail *source.UnavailableError
	return errors.As(err, &unavail)
}
