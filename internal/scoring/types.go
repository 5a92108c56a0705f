package scoring

import "github.com/danielpatrickdp/mindstate/internal/sample"

// #region candidate

// Candidate pairs a state id with its raw confidence for one tick.
// Candidates are ephemeral; they are recomputed every tick and only
// summarized into the smoothing layer.
type Candidate struct {
	StateID    string
	Confidence float32 // raw, 0..100
}

// Result is the full scorer output for one sample.
type Result struct {
	// Candidates holds every catalog state, sorted by confidence
	// descending (ties break on catalog order).
	Candidates []Candidate

	// DominantBands is the sample's top-2 bands at scoring time.
	DominantBands []sample.Band

	// Ambiguous is set when the two leaders are within AmbiguityMargin
	// and the sample's alpha band sits inside the ambiguous window. Both
	// leaders' confidences are already discounted when set.
	Ambiguous     bool
	AmbiguousPair [2]string
}

// Top returns the leading candidate, or false when the result is empty.
func (r Result) Top() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// #endregion candidate

// #region config

// Config holds scorer tuning knobs. The three contribution caps sum to 100.
type Config struct {
	DominantCap   float32 // max points from dominant-band matches
	SecondaryCap  float32 // max points from secondary-band presence
	SuppressedCap float32 // max points from suppressed-band absence

	SecondaryFloor    float32 // secondary band must exceed this to score
	SuppressedCeiling float32 // suppressed band must be below this to score

	// OffRankFactor scales the award for a declared dominant band that is
	// not in the sample's top-2.
	OffRankFactor float32

	// Ambiguity tie-break: two leaders within AmbiguityMargin points while
	// alpha sits in [AmbiguousAlphaLow, AmbiguousAlphaHigh] yield an
	// ambiguous result with both confidences scaled by AmbiguityDiscount.
	AmbiguityMargin    float32
	AmbiguousAlphaLow  float32
	AmbiguousAlphaHigh float32
	AmbiguityDiscount  float32
}

// DefaultConfig returns the canonical scorer tuning.
func DefaultConfig() Config {
	return Config{
		DominantCap:        50,
		SecondaryCap:       20,
		SuppressedCap:      30,
		SecondaryFloor:     0.2,
		SuppressedCeiling:  0.3,
		OffRankFactor:      0.4,
		AmbiguityMargin:    2.0,
		AmbiguousAlphaLow:  0.2,
		AmbiguousAlphaHigh: 0.45,
		AmbiguityDiscount:  0.7,
	}
}

// #endregion config
