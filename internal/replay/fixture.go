package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/engine"
	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// band-power trace plus the expected classification timeline.
type Fixture struct {
	Description    string          `json:"description"`
	Config         FixtureConfig   `json:"config"`
	Frames         []FixtureFrame  `json:"frames"`
	ExpectedEvents []ExpectedEvent `json:"expected_events"`
}

// FixtureFrame is one recorded sample at a millisecond offset from the
// start of the trace.
type FixtureFrame struct {
	AtMs     int64    `json:"at_ms"`
	Theta    float32  `json:"theta"`
	Alpha    float32  `json:"alpha"`
	BetaLow  float32  `json:"beta_low"`
	BetaHigh float32  `json:"beta_high"`
	Gamma    float32  `json:"gamma"`
	Motion   *float32 `json:"motion,omitempty"`
}

// ExpectedEvent pins the displayed state (and optionally tier) at a
// millisecond offset.
type ExpectedEvent struct {
	AtMs         int64  `json:"at_ms"`
	StateID      string `json:"state_id"`
	Tier         string `json:"tier,omitempty"`
	SwitchedFrom string `json:"switched_from,omitempty"`
}

// FixtureConfig carries optional engine tuning overrides. Zero values keep
// the defaults.
type FixtureConfig struct {
	SmoothingWindow     int     `json:"smoothing_window,omitempty"`
	MinHoldMs           int64   `json:"min_hold_ms,omitempty"`
	CooldownMs          int64   `json:"cooldown_ms,omitempty"`
	PromotionThreshold  float32 `json:"promotion_threshold,omitempty"`
	TakeoverMargin      float32 `json:"takeover_margin,omitempty"`
	EmergencyThreshold  float32 `json:"emergency_threshold,omitempty"`
	EmergencyDurationMs int64   `json:"emergency_duration_ms,omitempty"`
	MotionCeiling       float32 `json:"motion_ceiling,omitempty"`
	DefaultStateID      string  `json:"default_state_id,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToSample converts a frame to a domain sample.
func (fr *FixtureFrame) ToSample() sample.Sample {
	s := sample.Sample{
		Theta:    fr.Theta,
		Alpha:    fr.Alpha,
		BetaLow:  fr.BetaLow,
		BetaHigh: fr.BetaHigh,
		Gamma:    fr.Gamma,
		Motion:   -1,
	}
	if fr.Motion != nil {
		s.Motion = *fr.Motion
	}
	return s
}

// ToEngineConfig applies the fixture's overrides on top of the default
// engine tuning.
func (fc *FixtureConfig) ToEngineConfig() engine.Config {
	config := engine.DefaultConfig()
	if fc.SmoothingWindow > 0 {
		config.SmoothingWindow = fc.SmoothingWindow
	}
	if fc.MinHoldMs > 0 {
		config.MinHold = time.Duration(fc.MinHoldMs) * time.Millisecond
	}
	if fc.CooldownMs > 0 {
		config.Cooldown = time.Duration(fc.CooldownMs) * time.Millisecond
	}
	if fc.PromotionThreshold > 0 {
		config.PromotionThreshold = fc.PromotionThreshold
	}
	if fc.TakeoverMargin > 0 {
		config.TakeoverMargin = fc.TakeoverMargin
	}
	if fc.EmergencyThreshold > 0 {
		config.EmergencyThreshold = fc.EmergencyThreshold
	}
	if fc.EmergencyDurationMs > 0 {
		config.EmergencyDuration = time.Duration(fc.EmergencyDurationMs) * time.Millisecond
	}
	if fc.MotionCeiling > 0 {
		config.MotionCeiling = fc.MotionCeiling
	}
	if fc.DefaultStateID != "" {
		config.DefaultStateID = fc.DefaultStateID
	}
	return config
}

// #endregion fixture-loader
