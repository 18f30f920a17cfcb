package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/larkvale/metamerge/internal/event"
	"github.com/larkvale/metamerge/internal/merge"
)

// subscribeProgress prints one line per entity as the run proceeds.
func subscribeProgress(bus *event.Bus, out io.Writer, dryRun bool) {
	verb := "updated"
	if dryRun {
		verb = "would update"
	}

	bus.Subscribe(event.EntityUpdated, func(e event.Event) {
		fmt.Fprintf(out, "%s %s (%v changes)\n", verb, eventSubject(e), e.Data["changes"])
	})
	bus.Subscribe(event.EntitySkipped, func(e event.Event) {
		fmt.Fprintf(out, "skipped %s: no metadata found\n", eventSubject(e))
	})
	bus.Subscribe(event.EntityFailed, func(e event.Event) {
		if msg, ok := e.Data["error"].(string); ok {
			fmt.Fprintf(out, "failed %s: %s\n", eventSubject(e), msg)
			return
		}
		fmt.Fprintf(out, "failed %s: %v source error(s)\n", eventSubject(e), e.Data["source_errors"])
	})
}

func eventSubject(e event.Event) string {
	artist, _ := e.Data["artist"].(string)
	album, _ := e.Data["album"].(string)
	switch {
	case artist != "" && album != "":
		return artist + " - " + album
	case album != "":
		return album
	}
	id, _ := e.Data["entity"].(string)
	return id
}

// printChanges renders the per-entity field diff of a dry run.
func printChanges(out io.Writer, summary *merge.Summary) {
	for _, result := range summary.Results {
		if len(result.Changes) == 0 {
			continue
		}
		rows := make([][]string, 0, len(result.Changes))
		for _, ch := range result.Changes {
			rows = append(rows, []string{ch.Field, ch.Old, ch.New, ch.Status})
		}
		fmt.Fprintf(out, "\n%s:\n", result.EntityID)
		fmt.Fprintln(out, renderTable(
			[]string{"Field", "Current", "Proposed", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
}

func printSummary(out io.Writer, summary *merge.Summary, dryRun bool) {
	rows := [][]string{
		{"Total", strconv.Itoa(summary.Total)},
		{"Updated", strconv.Itoa(summary.Updated)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Outcome", "Albums"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	if dryRun {
		fmt.Fprintln(out, "dry run: nothing was written")
	}
	if summary.Aborted {
		fmt.Fprintln(out, "run aborted; earlier updates were kept")
	}
}
