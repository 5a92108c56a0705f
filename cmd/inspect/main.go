package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/provenance"
)

// Inspects a provenance database: recent state sessions, the transition
// log, or a single session by id.
func main() {
	dbPath := flag.String("db", envOr("MINDSTATE_DB", "mindstate.db"), "path to the provenance database")
	last := flag.Int("last", 20, "number of rows to show")
	transitions := flag.Bool("transitions", false, "show the transition log instead of sessions")
	sessionID := flag.String("session", "", "show one session in full")
	jsonOut := flag.Bool("json", false, "emit JSON instead of tables")
	flag.Parse()

	store, err := provenance.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	defer store.Close()

	switch {
	case *sessionID != "":
		showSession(store, *sessionID, *jsonOut)
	case *transitions:
		showTransitions(store, *last, *jsonOut)
	default:
		showSessions(store, *last, *jsonOut)
	}
}

func showSession(store *provenance.Store, id string, jsonOut bool) {
	rec, err := store.GetSession(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		printJSON(rec)
		return
	}

	fmt.Printf("session:    %s\n", rec.SessionID)
	fmt.Printf("state:      %s\n", rec.StateID)
	fmt.Printf("tier:       %s\n", rec.Tier)
	fmt.Printf("entered:    %s\n", rec.EnteredAt.Format(time.RFC3339))
	if !rec.LockedAt.IsZero() {
		fmt.Printf("locked:     %s\n", rec.LockedAt.Format(time.RFC3339))
	}
	if !rec.EndedAt.IsZero() {
		fmt.Printf("ended:      %s (%s)\n", rec.EndedAt.Format(time.RFC3339),
			rec.EndedAt.Sub(rec.EnteredAt).Round(time.Second))
	}
	fmt.Printf("peak conf:  %.1f\n", rec.PeakConfidence)
	fmt.Printf("bands:      %s\n", strings.Join(rec.DominantBands, ", "))
}

func showSessions(store *provenance.Store, limit int, jsonOut bool) {
	sessions, err := store.ListSessions(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		printJSON(sessions)
		return
	}

	active, activeErr := store.ActiveSession()

	fmt.Printf("%-10s %-16s %-10s %-22s %-10s %-6s\n",
		"SESSION", "STATE", "TIER", "ENTERED", "DURATION", "PEAK")
	for _, s := range sessions {
		duration := "active"
		if !s.EndedAt.IsZero() {
			duration = s.EndedAt.Sub(s.EnteredAt).Round(time.Second).String()
		}
		marker := ""
		if activeErr == nil && active.SessionID == s.SessionID {
			marker = " *"
		}
		fmt.Printf("%-10s %-16s %-10s %-22s %-10s %-6.1f%s\n",
			shortID(s.SessionID), s.StateID, s.Tier,
			s.EnteredAt.Format("2006-01-02 15:04:05"),
			duration, s.PeakConfidence, marker)
	}
}

func showTransitions(store *provenance.Store, limit int, jsonOut bool) {
	entries, err := store.ListTransitions(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		printJSON(entries)
		return
	}

	fmt.Printf("%-5s %-22s %-16s %-16s %-8s %-6s %s\n",
		"ID", "AT", "FROM", "TO", "DECISION", "CONF", "FLAGS")
	for _, e := range entries {
		from := e.FromStateID
		if from == "" {
			from = "-"
		}
		flags := ""
		if e.Emergency {
			flags = "emergency"
		}
		fmt.Printf("%-5d %-22s %-16s %-16s %-8s %-6.1f %s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"),
			from, e.ToStateID, e.Decision, e.Confidence, flags)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
