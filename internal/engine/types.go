package engine

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/affect"
	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/sample"
	"github.com/danielpatrickdp/mindstate/internal/scoring"
	"github.com/danielpatrickdp/mindstate/internal/tier"
)

// #region sessions

// StateSession is the single invariant-bearing, cross-tick entity: the
// current state and its timing. EnteredAt is set exactly once per session;
// an approved switch replaces the whole session rather than mutating it.
type StateSession struct {
	ID        string // uuid, for provenance only; never surfaced in the display model
	StateID   string
	EnteredAt time.Time
	LockedAt  time.Time // zero until the locked tier is first reached
	Tier      tier.Tier
	Confidence    float32 // latest smoothed confidence
	DominantBands []sample.Band
}

// ChallengerSession tracks the highest-scoring non-current state. It
// exists only while such a state leads the ranking and is discarded the
// moment the current state regains the lead or the leader changes
// identity.
type ChallengerSession struct {
	StateID     string
	FirstLeadAt time.Time
	Confidence  float32 // latest smoothed confidence

	// Display eligibility bookkeeping (read-only observation; never
	// feeds the promotion decision).
	closeSince   time.Time
	strongSince  time.Time
	visibleUntil time.Time
}

// #endregion sessions

// #region config

// Config is the single configuration record for the engine. All
// durations and thresholds are overridable at construction; defaults
// follow the canonical tuning.
type Config struct {
	TickInterval    time.Duration // reference stabilizer cadence
	SmoothingWindow int           // ring buffer capacity per tracked state

	MinHold  time.Duration // minimum time-in-state before any switch
	Cooldown time.Duration // minimum time between switches

	PromotionThreshold float32 // challenger smoothed confidence required to switch
	TakeoverMargin     float32 // challenger lead over current required to switch

	EmergencyThreshold float32       // current smoothed confidence collapse level
	EmergencyDuration  time.Duration // how long the collapse must persist

	MotionCeiling float32 // motion-artifact level above which a tick is uninformative

	// AffectConflictDiscount scales the top candidate's smoothed
	// confidence when the affect gate conflicts with it.
	AffectConflictDiscount float32

	// Challenger display eligibility.
	ChallengerCloseFloor  float32       // close race: confidence floor
	ChallengerCloseGap    float32       // close race: max gap to current
	ChallengerCloseHold   time.Duration // close race: sustain duration
	ChallengerStrongFloor float32       // strong contender: confidence floor
	ChallengerStrongHold  time.Duration // strong contender: sustain duration
	ChallengerDisplayHold time.Duration // minimum visibility once eligible

	// TierThresholds overrides the per-category duration breakpoints.
	// Categories left out fall back to the catalog's canonical table.
	TierThresholds map[catalog.Category]catalog.TierThresholds

	Tier    tier.Config
	Scoring scoring.Config
	Affect  affect.Config

	DefaultStateID string
}

// DefaultConfig returns the canonical engine tuning.
func DefaultConfig() Config {
	return Config{
		TickInterval:    250 * time.Millisecond,
		SmoothingWindow: 8,

		MinHold:  6 * time.Second,
		Cooldown: 8 * time.Second,

		PromotionThreshold: 62,
		TakeoverMargin:     12,

		EmergencyThreshold: 25,
		EmergencyDuration:  1500 * time.Millisecond,

		MotionCeiling: 0.6,

		AffectConflictDiscount: 0.85,

		ChallengerCloseFloor:  35,
		ChallengerCloseGap:    12,
		ChallengerCloseHold:   600 * time.Millisecond,
		ChallengerStrongFloor: 50,
		ChallengerStrongHold:  400 * time.Millisecond,
		ChallengerDisplayHold: 800 * time.Millisecond,

		Tier:    tier.DefaultConfig(),
		Scoring: scoring.DefaultConfig(),
		Affect:  affect.DefaultConfig(),

		DefaultStateID: "baseline",
	}
}

// Validate fails fast on configurations that would silently misbehave at
// runtime.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be at least 1, got %d", c.SmoothingWindow)
	}
	if c.MinHold < 0 || c.Cooldown < 0 {
		return fmt.Errorf("min hold and cooldown must not be negative")
	}
	if c.PromotionThreshold <= 0 || c.PromotionThreshold > 100 {
		return fmt.Errorf("promotion threshold %.1f out of (0,100]", c.PromotionThreshold)
	}
	if c.TakeoverMargin < 0 {
		return fmt.Errorf("takeover margin must not be negative, got %.1f", c.TakeoverMargin)
	}
	if c.EmergencyThreshold >= c.PromotionThreshold {
		return fmt.Errorf("emergency threshold %.1f must be below promotion threshold %.1f",
			c.EmergencyThreshold, c.PromotionThreshold)
	}
	if c.EmergencyDuration <= 0 {
		return fmt.Errorf("emergency duration must be positive, got %v", c.EmergencyDuration)
	}
	if c.AffectConflictDiscount <= 0 || c.AffectConflictDiscount > 1 {
		return fmt.Errorf("affect conflict discount %.2f out of (0,1]", c.AffectConflictDiscount)
	}
	if c.ChallengerCloseFloor > c.ChallengerStrongFloor {
		return fmt.Errorf("challenger close floor %.1f above strong floor %.1f",
			c.ChallengerCloseFloor, c.ChallengerStrongFloor)
	}
	if c.DefaultStateID == "" {
		return fmt.Errorf("default state id must be set")
	}
	for cat, th := range c.TierThresholds {
		if !(0 < th.Candidate && th.Candidate < th.Confirmed && th.Confirmed < th.Locked) {
			return fmt.Errorf("category %s tier thresholds not strictly increasing: %+v", cat, th)
		}
	}
	return nil
}

// thresholdsFor resolves the breakpoints for a category, honoring
// overrides.
func (c Config) thresholdsFor(cat catalog.Category) catalog.TierThresholds {
	if th, ok := c.TierThresholds[cat]; ok {
		return th
	}
	return catalog.Thresholds(cat)
}

// #endregion config
