package catalog

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region catalog

// Catalog is the static table of state definitions. Loaded once, never
// mutated afterwards.
type Catalog struct {
	defs []Definition
	byID map[string]Definition
}

// New builds a catalog from the given definitions and validates it.
func New(defs []Definition) (*Catalog, error) {
	byID := make(map[string]Definition, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("state definition with empty id (%q)", d.Name)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate state id %q", d.ID)
		}
		if len(d.Pattern.Dominant) == 0 {
			return nil, fmt.Errorf("state %q declares no dominant bands", d.ID)
		}
		if _, ok := thresholdsByCategory[d.Category]; !ok {
			return nil, fmt.Errorf("state %q has unknown category %q", d.ID, d.Category)
		}
		byID[d.ID] = d
	}
	return &Catalog{defs: defs, byID: byID}, nil
}

// Get returns the definition for a state id.
func (c *Catalog) Get(id string) (Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// All returns every definition in declaration order. Callers must not
// mutate the returned slice.
func (c *Catalog) All() []Definition {
	return c.defs
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// #endregion catalog

// #region thresholds

// thresholdsByCategory holds the canonical duration breakpoints. The
// ordinary ladder promotes at 8/15/30s; deeper categories are slower to
// lock.
var thresholdsByCategory = map[Category]TierThresholds{
	CategoryOrdinary: {
		Candidate: 8 * time.Second,
		Confirmed: 15 * time.Second,
		Locked:    30 * time.Second,
	},
	CategoryDeep: {
		Candidate: 10 * time.Second,
		Confirmed: 20 * time.Second,
		Locked:    45 * time.Second,
	},
	CategoryTranscendent: {
		Candidate: 12 * time.Second,
		Confirmed: 25 * time.Second,
		Locked:    60 * time.Second,
	},
}

// Thresholds returns the tier duration breakpoints for a category.
// Unknown categories fall back to the ordinary table.
func Thresholds(c Category) TierThresholds {
	if th, ok := thresholdsByCategory[c]; ok {
		return th
	}
	return thresholdsByCategory[CategoryOrdinary]
}

// #endregion thresholds

// #region default-catalog

// DefaultStateID is the state every engine session starts in.
const DefaultStateID = "baseline"

// Default returns the hand-authored state table. The band signatures are
// heuristic; the lucid-dreaming vs transcendent split additionally relies
// on the alpha window tie-break in the scorer.
func Default() *Catalog {
	defs := []Definition{
		{
			ID:       DefaultStateID,
			Name:     "Baseline",
			Color:    "#8a8f98",
			Category: CategoryOrdinary,
			Pattern: Pattern{
				Dominant:  []sample.Band{sample.BandAlpha, sample.BandBetaLow},
				Coherence: CoherenceMedium,
			},
			ExpectedAffects: []string{"neutral", "calm"},
		},
		{
			ID:       "relaxed",
			Name:     "Relaxed Alertness",
			Color:    "#4caf7d",
			Category: CategoryOrdinary,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandAlpha},
				Secondary:  []sample.Band{sample.BandTheta},
				Suppressed: []sample.Band{sample.BandBetaHigh},
				Coherence:  CoherenceMedium,
			},
			ExpectedAffects:    []string{"calm", "content"},
			ConflictingAffects: []string{"anxious", "stress"},
		},
		{
			ID:       "focused",
			Name:     "Focused Attention",
			Color:    "#2f7fd1",
			Category: CategoryOrdinary,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandBetaLow},
				Secondary:  []sample.Band{sample.BandBetaHigh},
				Suppressed: []sample.Band{sample.BandTheta},
				Coherence:  CoherenceMedium,
			},
			ExpectedAffects:    []string{"engaged", "absorbed"},
			ConflictingAffects: []string{"overwhelm"},
		},
		{
			ID:       "flow",
			Name:     "Flow",
			Color:    "#00b8a9",
			Category: CategoryDeep,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandBetaLow, sample.BandGamma},
				Secondary:  []sample.Band{sample.BandAlpha},
				Suppressed: []sample.Band{sample.BandBetaHigh},
				Coherence:  CoherenceHigh,
			},
			ExpectedAffects:    []string{"absorbed", "euphoric"},
			ConflictingAffects: []string{"anxious", "stress", "overwhelm"},
		},
		{
			ID:       "meditative",
			Name:     "Meditative",
			Color:    "#9b6fc1",
			Category: CategoryDeep,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandTheta, sample.BandAlpha},
				Suppressed: []sample.Band{sample.BandBetaLow, sample.BandBetaHigh},
				Coherence:  CoherenceHigh,
			},
			ExpectedAffects:    []string{"calm", "dreamy"},
			ConflictingAffects: []string{"anxious", "stress"},
		},
		{
			ID:       "drowsy",
			Name:     "Drowsy",
			Color:    "#b0895e",
			Category: CategoryOrdinary,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandTheta},
				Suppressed: []sample.Band{sample.BandBetaLow, sample.BandBetaHigh, sample.BandGamma},
				Coherence:  CoherenceLow,
			},
			ExpectedAffects: []string{"dreamy", "neutral"},
		},
		{
			ID:       "anxious",
			Name:     "Anxious Arousal",
			Color:    "#d1493a",
			Category: CategoryOrdinary,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandBetaHigh},
				Secondary:  []sample.Band{sample.BandGamma},
				Suppressed: []sample.Band{sample.BandAlpha},
				Coherence:  CoherenceLow,
			},
			ExpectedAffects:    []string{"anxious", "stress"},
			ConflictingAffects: []string{"calm", "content"},
		},
		{
			ID:       "lucid",
			Name:     "Lucid Dreaming",
			Color:    "#d99be0",
			Category: CategoryTranscendent,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandTheta, sample.BandGamma},
				Secondary:  []sample.Band{sample.BandAlpha},
				Suppressed: []sample.Band{sample.BandBetaLow},
				Coherence:  CoherenceHigh,
			},
			ExpectedAffects:    []string{"dreamy", "euphoric"},
			ConflictingAffects: []string{"stress", "fear"},
		},
		{
			ID:       "transcendent",
			Name:     "Transcendent Meta-Awareness",
			Color:    "#e8c34a",
			Category: CategoryTranscendent,
			Pattern: Pattern{
				Dominant:   []sample.Band{sample.BandGamma},
				Secondary:  []sample.Band{sample.BandTheta},
				Suppressed: []sample.Band{sample.BandBetaHigh},
				Coherence:  CoherenceHigh,
			},
			ExpectedAffects:    []string{"expansive", "euphoric"},
			ConflictingAffects: []string{"anxious", "fear", "overwhelm"},
		},
	}

	cat, err := New(defs)
	if err != nil {
		// The default table is static; failing validation is a programming
		// defect caught by the package tests.
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return cat
}

// #endregion default-catalog
