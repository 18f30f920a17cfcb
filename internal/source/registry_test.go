package source

import (
	"context"
	"testing"
)

// stubSource is a minimal Source for registry tests.
type stubSource struct {
	name Name
}

func (s *stubSource) Name() Name            { return s.name }
func (s *stubSource) SupportsLookup() bool  { return true }
func (s *stubSource) SupportsSearch() bool  { return true }
func (s *stubSource) OwnedFields() []string { return nil }
func (s *stubSource) LookupByID(_ context.Context, _ string) (*Candidate, error) {
	return nil, nil
}
func (s *stubSource) Search(_ context.Context, _ Fields) ([]Candidate, error) {
	return nil, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	mb := &stubSource{name: NameMusicBrainz}
	reg.Register(mb)

	got := reg.Get(NameMusicBrainz)
	if got == nil {
		t.Fatal("expected to get musicbrainz source")
	}
	if got.Name() != NameMusicBrainz {
		t.Errorf("expected name musicbrainz, got %s", got.Name())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()

	got := reg.Get(Name("nonexistent"))
	if got != nil {
		t.Errorf("expected nil for unregistered source, got %v", got)
	}
}

func TestRegistryAllOrder(t *testing.T) {
	reg := NewRegistry()

	// Register out of display order
	reg.Register(&stubSource{name: NameDeezer})
	reg.Register(&stubSource{name: NameMusicBrainz})

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(all))
	}
	if all[0].Name() != NameMusicBrainz || all[1].Name() != NameDeezer {
		t.Errorf("expected stable display order, got %s, %s", all[0].Name(), all[1].Name())
	}
}

func TestRegistryResolveAuto(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubSource{name: NameMusicBrainz})
	reg.Register(&stubSource{name: NameDeezer})

	sources, err := reg.Resolve([]Name{"auto"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("expected 2 sources for auto, got %d", len(sources))
	}
}

func TestRegistryResolveExplicit(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubSource{name: NameMusicBrainz})
	reg.Register(&stubSource{name: NameDeezer})

	sources, err := reg.Resolve([]Name{NameDeezer, NameMusicBrainz})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sources) != 2 || sources[0].Name() != NameDeezer {
		t.Errorf("expected configured order preserved, got %v", sources)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubSource{name: NameMusicBrainz})

	if _, err := reg.Resolve([]Name{"spotify"}); err == nil {
		t.Error("expected error for unknown source name")
	}
}
