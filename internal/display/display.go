package display

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/tier"
)

// #region block-reason

// BlockReason enumerates the hysteresis conditions that can hold back a
// switch on a given tick. Surfaced in the debug trace only.
type BlockReason string

const (
	BlockMinHold   BlockReason = "min_hold"
	BlockCooldown  BlockReason = "cooldown"
	BlockThreshold BlockReason = "below_promotion_threshold"
	BlockMargin    BlockReason = "insufficient_margin"
	BlockAmbiguous BlockReason = "ambiguous_pattern"
	BlockMotion    BlockReason = "motion_artifact"
)

// #endregion block-reason

// #region model

// CurrentState is the displayed current mental state. JSON shape is
// defined by currentStateWire below.
type CurrentState struct {
	ID            string
	Name          string
	Color         string
	Confidence    float32
	Duration      time.Duration
	DurationLabel string
	Tier          string
	Stability     string
}

// Challenger is the displayed runner-up. Nil when no challenger is
// display-eligible. JSON shape is defined by challengerWire below.
type Challenger struct {
	ID           string
	Name         string
	Confidence   float32
	LeadDuration time.Duration
}

// RankedState is one entry of a candidate ranking in the debug trace.
type RankedState struct {
	ID         string  `json:"id"`
	Confidence float32 `json:"confidence"`
}

// Trace is the per-tick debug output. Operator/test visibility only; it
// carries no behavioral contract.
type Trace struct {
	Tick            uint64        `json:"tick"`
	RawTop          []RankedState `json:"raw_top,omitempty"`
	SmoothedTop     []RankedState `json:"smoothed_top,omitempty"`
	BlockReasons    []BlockReason `json:"block_reasons,omitempty"`
	EmergencyActive bool          `json:"emergency_active"`
	Ambiguous       bool          `json:"ambiguous"`
	MotionHold      bool          `json:"motion_hold"`
	SwitchedFrom    string        `json:"switched_from,omitempty"`
}

// Model is the read-only per-tick projection handed to callers. It is
// rebuilt fresh every tick and never mutated afterwards.
type Model struct {
	State      CurrentState `json:"state"`
	Challenger *Challenger  `json:"challenger,omitempty"`
	Transition string       `json:"transition"`
	Affect     AffectView   `json:"affect"`
	Trace      Trace        `json:"trace"`
}

// AffectView is the displayed affect summary.
type AffectView struct {
	Valence  float32 `json:"valence"`
	Arousal  float32 `json:"arousal"`
	Control  float32 `json:"control"`
	TopLabel string  `json:"top_label"`
	Unstable bool    `json:"unstable"`
}

// #endregion model

// #region wire

// currentStateWire pins the JSON shape: durations travel as integer
// milliseconds, matching their field names.
type currentStateWire struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color"`
	Confidence    float32 `json:"confidence"`
	DurationMs    int64   `json:"duration_ms"`
	DurationLabel string  `json:"duration_label"`
	Tier          string  `json:"tier"`
	Stability     string  `json:"stability"`
}

func (c CurrentState) MarshalJSON() ([]byte, error) {
	return json.Marshal(currentStateWire{
		ID:            c.ID,
		Name:          c.Name,
		Color:         c.Color,
		Confidence:    c.Confidence,
		DurationMs:    c.Duration.Milliseconds(),
		DurationLabel: c.DurationLabel,
		Tier:          c.Tier,
		Stability:     c.Stability,
	})
}

func (c *CurrentState) UnmarshalJSON(b []byte) error {
	var w currentStateWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = CurrentState{
		ID:            w.ID,
		Name:          w.Name,
		Color:         w.Color,
		Confidence:    w.Confidence,
		Duration:      time.Duration(w.DurationMs) * time.Millisecond,
		DurationLabel: w.DurationLabel,
		Tier:          w.Tier,
		Stability:     w.Stability,
	}
	return nil
}

type challengerWire struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Confidence     float32 `json:"confidence"`
	LeadDurationMs int64   `json:"lead_duration_ms"`
}

func (c Challenger) MarshalJSON() ([]byte, error) {
	return json.Marshal(challengerWire{
		ID:             c.ID,
		Name:           c.Name,
		Confidence:     c.Confidence,
		LeadDurationMs: c.LeadDuration.Milliseconds(),
	})
}

func (c *Challenger) UnmarshalJSON(b []byte) error {
	var w challengerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = Challenger{
		ID:           w.ID,
		Name:         w.Name,
		Confidence:   w.Confidence,
		LeadDuration: time.Duration(w.LeadDurationMs) * time.Millisecond,
	}
	return nil
}

// #endregion wire

// #region build

// BuildInput carries everything the builder needs, flattened so this
// package stays a pure projection with no engine dependency.
type BuildInput struct {
	StateID    string
	StateName  string
	StateColor string
	Confidence float32
	Duration   time.Duration

	DisplayTier tier.Tier
	Stability   tier.Stability

	Challenger *Challenger

	Valence        float32
	Arousal        float32
	Control        float32
	TopAffectLabel string
	AffectUnstable bool

	Trace Trace
}

// Build assembles the caller-facing model. Pure function of its input.
func Build(in BuildInput) Model {
	return Model{
		State: CurrentState{
			ID:            in.StateID,
			Name:          in.StateName,
			Color:         in.StateColor,
			Confidence:    in.Confidence,
			Duration:      in.Duration,
			DurationLabel: FormatDuration(in.Duration),
			Tier:          in.DisplayTier.String(),
			Stability:     string(in.Stability),
		},
		Challenger: in.Challenger,
		Transition: transitionLabel(in.DisplayTier, in.Stability),
		Affect: AffectView{
			Valence:  in.Valence,
			Arousal:  in.Arousal,
			Control:  in.Control,
			TopLabel: in.TopAffectLabel,
			Unstable: in.AffectUnstable,
		},
		Trace: in.Trace,
	}
}

// transitionLabel maps tier and stability to the human-readable
// transition string.
func transitionLabel(displayTier tier.Tier, stability tier.Stability) string {
	if stability == tier.StabilityUnstable {
		return "Unstable"
	}
	switch displayTier {
	case tier.TierLocked:
		return "Locked"
	case tier.TierConfirmed:
		return "Confirmed"
	case tier.TierCandidate:
		return "Entering"
	default:
		return "Detecting"
	}
}

// #endregion build

// #region duration

// FormatDuration renders a duration as a compact human-readable string.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// #endregion duration
