package replay

import (
	"fmt"
	"sort"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/engine"
)

// #region types

// TickResult is one emitted model with its offset from the trace start.
type TickResult struct {
	AtMs  int64
	Model display.Model
}

// Mismatch records an expectation the replay did not meet.
type Mismatch struct {
	AtMs  int64
	Field string
	Got   string
	Want  string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("at %dms: %s = %q, want %q", m.AtMs, m.Field, m.Got, m.Want)
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Ticks          int
	Switches       int
	EmergencyTicks int
	FinalStateID   string
	FinalTier      string
	Mismatches     []Mismatch
}

// Passed reports whether every expected event held.
func (s Summary) Passed() bool {
	return len(s.Mismatches) == 0
}

// #endregion types

// #region replay

// Run replays a fixture through a fresh engine at the configured tick
// cadence. Frames are ingested at their recorded offsets; expectations are
// checked against the first tick at or after their offset. Operates
// entirely in-memory and is deterministic for a given fixture.
func Run(f *Fixture, cat *catalog.Catalog) ([]TickResult, Summary, error) {
	config := f.Config.ToEngineConfig()
	eng, err := engine.New(config, cat)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("build engine: %w", err)
	}

	frames := make([]FixtureFrame, len(f.Frames))
	copy(frames, f.Frames)
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].AtMs < frames[j].AtMs })

	expected := make([]ExpectedEvent, len(f.ExpectedEvents))
	copy(expected, f.ExpectedEvents)
	sort.SliceStable(expected, func(i, j int) bool { return expected[i].AtMs < expected[j].AtMs })

	endMs := int64(0)
	if n := len(frames); n > 0 {
		endMs = frames[n-1].AtMs
	}
	if n := len(expected); n > 0 && expected[n-1].AtMs > endMs {
		endMs = expected[n-1].AtMs
	}

	start := time.Unix(0, 0).UTC()
	stepMs := config.TickInterval.Milliseconds()

	var (
		results   []TickResult
		summary   Summary
		frameIdx  int
		expectIdx int
	)
	for atMs := int64(0); atMs <= endMs; atMs += stepMs {
		for frameIdx < len(frames) && frames[frameIdx].AtMs <= atMs {
			eng.Ingest(frames[frameIdx].ToSample())
			frameIdx++
		}

		model := eng.Tick(start.Add(time.Duration(atMs) * time.Millisecond))
		results = append(results, TickResult{AtMs: atMs, Model: model})
		summary.Ticks++
		if model.Trace.SwitchedFrom != "" {
			summary.Switches++
		}
		if model.Trace.EmergencyActive {
			summary.EmergencyTicks++
		}

		for expectIdx < len(expected) && expected[expectIdx].AtMs <= atMs {
			summary.Mismatches = append(summary.Mismatches,
				check(expected[expectIdx], atMs, model)...)
			expectIdx++
		}

		summary.FinalStateID = model.State.ID
		summary.FinalTier = model.State.Tier
	}

	return results, summary, nil
}

// check compares one expected event against the model emitted at its tick.
func check(e ExpectedEvent, atMs int64, model display.Model) []Mismatch {
	var out []Mismatch
	if model.State.ID != e.StateID {
		out = append(out, Mismatch{AtMs: atMs, Field: "state_id", Got: model.State.ID, Want: e.StateID})
	}
	if e.Tier != "" && model.State.Tier != e.Tier {
		out = append(out, Mismatch{AtMs: atMs, Field: "tier", Got: model.State.Tier, Want: e.Tier})
	}
	if e.SwitchedFrom != "" && model.Trace.SwitchedFrom != e.SwitchedFrom {
		out = append(out, Mismatch{AtMs: atMs, Field: "switched_from", Got: model.Trace.SwitchedFrom, Want: e.SwitchedFrom})
	}
	return out
}

// #endregion replay
