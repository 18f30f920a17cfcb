package merge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/larkvale/metamerge/internal/source"
)

func matchingSource(name source.Name) *mockSource {
	return &mockSource{
		name: name,
		searchFn: func(_ context.Context, fields source.Fields) ([]source.Candidate, error) {
			return []source.Candidate{{ID: string(name) + "-1", Fields: fields.Clone()}}, nil
		},
	}
}

func failingSource(name source.Name) *mockSource {
	return &mockSource{
		name: name,
		searchFn: func(_ context.Context, _ source.Fields) ([]source.Candidate, error) {
			return nil, fmt.Errorf("boom")
		},
	}
}

func emptySource(name source.Name) *mockSource {
	return &mockSource{name: name}
}

func newGatherer(sel Selector) *Gatherer {
	return NewGatherer(NewResolver(sel, testLogger()), testLogger())
}

func TestGatherCollectsAcceptedOnly(t *testing.T) {
	g := newGatherer(&mockSelector{})
	cfg := Config{
		Sources:     []source.Name{"a", "b", "c"},
		MaxDistance: floatPtr(0.2),
	}
	sources := []source.Source{
		matchingSource("a"),
		emptySource("b"),
		matchingSource("c"),
	}

	accepted, failures, err := g.Gather(context.Background(), testEntity(), sources, cfg)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if failures != 0 {
		t.Errorf("failures = %d, want 0", failures)
	}
	if len(accepted) != 2 {
		t.Fatalf("accepted %d sources, want 2", len(accepted))
	}
	if _, ok := accepted["b"]; ok {
		t.Error("no-match source must be absent from the result")
	}
}

func TestGatherSkipsUnavailableSources(t *testing.T) {
	g := newGatherer(&mockSelector{})
	cfg := Config{
		Sources:     []source.Name{"a", "b"},
		MaxDistance: floatPtr(0.2),
	}
	sources := []source.Source{
		failingSource("a"),
		matchingSource("b"),
	}

	accepted, failures, err := g.Gather(context.Background(), testEntity(), sources, cfg)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if len(accepted) != 1 {
		t.Errorf("accepted %d sources, want 1", len(accepted))
	}
}

func TestGatherAllMissed(t *testing.T) {
	g := newGatherer(&mockSelector{})
	cfg := Config{Sources: []source.Name{"a", "b"}}
	sources := []source.Source{emptySource("a"), emptySource("b")}

	_, _, err := g.Gather(context.Background(), testEntity(), sources, cfg)
	var noMeta *NoMetadataError
	if !errors.As(err, &noMeta) {
		t.Fatalf("expected NoMetadataError, got %v", err)
	}
	if noMeta.EntityID != "e1" {
		t.Errorf("entity ID = %s, want e1", noMeta.EntityID)
	}
}

func TestGatherAbortPropagates(t *testing.T) {
	g := newGatherer(&mockSelector{selection: Selection{Abort: true}})
	cfg := Config{Sources: []source.Name{"a", "b"}}
	second := matchingSource("b")
	sources := []source.Source{matchingSource("a"), second}

	_, _, err := g.Gather(context.Background(), testEntity(), sources, cfg)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if second.searchCalls != 0 {
		t.Error("abort must stop iteration over remaining sources")
	}
}
