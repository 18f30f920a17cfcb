package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the CLI against a throwaway database and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func setupTestDB(t *testing.T) {
	t.Helper()
	t.Setenv("MM_DB_PATH", filepath.Join(t.TempDir(), "library.db"))
}

func TestSourcesCommand(t *testing.T) {
	setupTestDB(t)

	out, err := execute(t, "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	for _, want := range []string{"MusicBrainz", "Deezer", "mb_albumid", "deezer_album_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAddAndListCommands(t *testing.T) {
	setupTestDB(t)

	out, err := execute(t, "add", "--artist", "Radiohead", "--title", "OK Computer", "--year", "1997")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "added Radiohead - OK Computer") {
		t.Errorf("unexpected add output:\n%s", out)
	}

	out, err = execute(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Radiohead") || !strings.Contains(out, "OK Computer") {
		t.Errorf("list output missing album:\n%s", out)
	}

	out, err = execute(t, "list", "nomatch")
	if err != nil {
		t.Fatalf("list with query: %v", err)
	}
	if !strings.Contains(out, "no albums") {
		t.Errorf("expected empty list message:\n%s", out)
	}
}

func TestAddRequiresArtist(t *testing.T) {
	setupTestDB(t)

	if _, err := execute(t, "add", "--title", "OK Computer"); err == nil {
		t.Fatal("expected missing-flag error")
	}
}

func TestRunUnknownSource(t *testing.T) {
	setupTestDB(t)

	_, err := execute(t, "run", "--source", "spotify")
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "spotify") {
		t.Errorf("error %q should name the unknown source", err)
	}
}

func TestRunEmptyLibrary(t *testing.T) {
	setupTestDB(t)

	out, err := execute(t, "run", "--dry-run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "no matching albums") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
