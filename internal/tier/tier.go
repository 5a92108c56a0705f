package tier

import (
	"time"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
)

// #region tier

// Tier is the duration-gated validation level of the displayed state.
// Ordering matters: a session's tier only ever moves up this ladder.
type Tier int

const (
	TierDetected Tier = iota
	TierCandidate
	TierConfirmed
	TierLocked
)

func (t Tier) String() string {
	switch t {
	case TierDetected:
		return "detected"
	case TierCandidate:
		return "candidate"
	case TierConfirmed:
		return "confirmed"
	case TierLocked:
		return "locked"
	}
	return "unknown"
}

// #endregion tier

// #region stability

// Stability is the displayed stability label.
type Stability string

const (
	StabilityStable        Stability = "stable"
	StabilityUnstable      Stability = "unstable"
	StabilityTransitioning Stability = "transitioning"
)

// #endregion stability

// #region config

// Config holds the stability ceiling for display-time downgrades.
type Config struct {
	// VarianceCeiling is the confidence standard deviation above which a
	// locked tier is shown as confirmed.
	VarianceCeiling float32
}

// DefaultConfig returns the canonical ceiling.
func DefaultConfig() Config {
	return Config{VarianceCeiling: 15}
}

// #endregion config

// #region classify

// Classify maps time-in-state to a tier using the category's duration
// breakpoints. Purely duration-gated; callers enforce monotonicity across
// ticks by never letting a live session's tier move down.
func Classify(inState time.Duration, th catalog.TierThresholds) Tier {
	switch {
	case inState >= th.Locked:
		return TierLocked
	case inState >= th.Confirmed:
		return TierConfirmed
	case inState >= th.Candidate:
		return TierCandidate
	default:
		return TierDetected
	}
}

// ForDisplay applies the stability gate to a session tier. A locked tier
// is downgraded to confirmed while variance exceeds the ceiling or the
// affect estimator flags instability; the session itself is untouched, so
// a brief wobble never resets the duration clock.
func ForDisplay(sessionTier Tier, variance float32, affectUnstable bool, config Config) (Tier, Stability) {
	unstable := variance > config.VarianceCeiling || affectUnstable

	displayed := sessionTier
	if unstable && displayed == TierLocked {
		displayed = TierConfirmed
	}

	switch {
	case unstable:
		return displayed, StabilityUnstable
	case displayed <= TierCandidate:
		return displayed, StabilityTransitioning
	default:
		return displayed, StabilityStable
	}
}

// #endregion classify
