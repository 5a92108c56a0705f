package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/replay"
)

// Replays a recorded band-power fixture through a fresh engine and checks
// the emitted timeline against the fixture's expected events.
//
// Exit codes: 0 all expectations held, 1 mismatches, 2 usage error.
func main() {
	fixturePath := flag.String("fixture", "", "path to a replay fixture JSON file")
	verbose := flag.Bool("verbose", false, "print every emitted tick, not just switches")
	jsonOut := flag.Bool("json", false, "emit the summary as JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture <path> [--verbose] [--json]")
		os.Exit(2)
	}

	fixture, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	results, summary, err := replay.Run(fixture, catalog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(summary)
		if !summary.Passed() {
			os.Exit(1)
		}
		return
	}

	if fixture.Description != "" {
		fmt.Printf("fixture: %s\n\n", fixture.Description)
	}

	printTimeline(results, *verbose)
	printSummary(summary)

	if !summary.Passed() {
		os.Exit(1)
	}
}

// printTimeline prints the emitted models; by default only ticks where the
// state or tier changed.
func printTimeline(results []replay.TickResult, verbose bool) {
	fmt.Printf("%-10s %-16s %-10s %-8s %s\n", "AT", "STATE", "TIER", "CONF", "NOTES")

	lastState, lastTier := "", ""
	for _, r := range results {
		changed := r.Model.State.ID != lastState || r.Model.State.Tier != lastTier
		if !verbose && !changed {
			continue
		}

		notes := ""
		if r.Model.Trace.SwitchedFrom != "" {
			notes = "switched from " + r.Model.Trace.SwitchedFrom
		}
		if r.Model.Trace.EmergencyActive {
			if notes != "" {
				notes += ", "
			}
			notes += "emergency"
		}

		fmt.Printf("%-10s %-16s %-10s %-8.1f %s\n",
			fmt.Sprintf("%dms", r.AtMs),
			r.Model.State.ID,
			r.Model.State.Tier,
			r.Model.State.Confidence,
			notes)

		lastState, lastTier = r.Model.State.ID, r.Model.State.Tier
	}
	fmt.Println()
}

func printSummary(s replay.Summary) {
	fmt.Printf("ticks: %d  switches: %d  emergency ticks: %d  final: %s (%s)\n",
		s.Ticks, s.Switches, s.EmergencyTicks, s.FinalStateID, s.FinalTier)

	if s.Passed() {
		fmt.Println("result: PASS")
		return
	}

	fmt.Printf("result: FAIL (%d mismatches)\n", len(s.Mismatches))
	for _, m := range s.Mismatches {
		fmt.Printf("  %s\n", m)
	}
}
