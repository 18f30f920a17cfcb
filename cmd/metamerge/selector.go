package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

// promptSelector asks the user to pick a candidate on the terminal.
// Answers are a candidate number, "s" to skip the source for this
// entity, or "a" to abort the whole run.
type promptSelector struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPromptSelector(in io.Reader, out io.Writer) *promptSelector {
	return &promptSelector{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

func (p *promptSelector) Select(ctx context.Context, entity merge.Entity, src source.Name, candidates []merge.ScoredCandidate) (merge.Selection, error) {
	fmt.Fprintf(p.out, "\nCandidates from %s for %s:\n", src.DisplayName(), describeEntity(entity))
	fmt.Fprintln(p.out, renderCandidateTable(candidates))

	for {
		if err := ctx.Err(); err != nil {
			return merge.Selection{}, err
		}

		fmt.Fprintf(p.out, "Choose [1-%d], (s)kip, (a)bort: ", len(candidates))
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return merge.Selection{}, err
			}
			// EOF on stdin counts as a skip.
			return merge.Selection{Skip: true}, nil
		}

		answer := strings.ToLower(strings.TrimSpace(p.in.Text()))
		switch answer {
		case "s", "skip":
			return merge.Selection{Skip: true}, nil
		case "a", "abort":
			return merge.Selection{Abort: true}, nil
		case "":
			continue
		}

		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(candidates) {
			fmt.Fprintf(p.out, "invalid choice %q\n", answer)
			continue
		}
		return merge.Selection{Candidate: &candidates[n-1]}, nil
	}
}

func renderCandidateTable(candidates []merge.ScoredCandidate) string {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Candidate.Fields.String("album"),
			c.Candidate.Fields.String("artist"),
			yearColumn(c.Candidate.Fields),
			fmt.Sprintf("%.3f", c.Distance),
			c.Candidate.ID,
		})
	}
	return renderTable(
		[]string{"#", "Album", "Artist", "Year", "Distance", "ID"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func yearColumn(fields source.Fields) string {
	switch y := fields["year"].(type) {
	case int:
		return strconv.Itoa(y)
	case string:
		return y
	}
	return ""
}

func describeEntity(entity merge.Entity) string {
	artist := entity.Fields.String("artist")
	album := entity.Fields.String("album")
	switch {
	case artist != "" && album != "":
		return artist + " - " + album
	case album != "":
		return album
	case artist != "":
		return artist
	}
	return entity.ID
}
