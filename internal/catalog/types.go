package catalog

import (
	"time"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region coherence

// CoherenceLevel is the expected cross-band coherence for a state pattern.
type CoherenceLevel string

const (
	CoherenceLow    CoherenceLevel = "low"
	CoherenceMedium CoherenceLevel = "medium"
	CoherenceHigh   CoherenceLevel = "high"
)

// #endregion coherence

// #region category

// Category groups states that share tier duration thresholds. Deeper
// categories require longer sustained evidence before locking.
type Category string

const (
	CategoryOrdinary     Category = "ordinary"
	CategoryDeep         Category = "deep"
	CategoryTranscendent Category = "transcendent"
)

// TierThresholds holds the duration breakpoints for tier promotion.
// A session's tier advances when time-in-state crosses each breakpoint;
// detected is the entry tier and has no breakpoint of its own.
type TierThresholds struct {
	Candidate time.Duration
	Confirmed time.Duration
	Locked    time.Duration
}

// #endregion category

// #region pattern

// Pattern declares the band signature a state is expected to show.
type Pattern struct {
	Dominant   []sample.Band // bands expected to lead the sample
	Secondary  []sample.Band // bands expected present above a floor
	Suppressed []sample.Band // bands expected below a ceiling
	Coherence  CoherenceLevel
}

// #endregion pattern

// #region definition

// Definition is one entry in the static state catalog.
type Definition struct {
	ID       string
	Name     string
	Color    string // hex, for presentation layers
	Category Category
	Pattern  Pattern

	// Affect labels the affect estimator is expected to produce while in
	// this state, and labels that contradict it. Used only as a stability
	// gate, never for state selection.
	ExpectedAffects    []string
	ConflictingAffects []string
}

// #endregion definition
