package provenance

import "time"

// #region types

// SessionRecord is one persisted state session: which state held, when it
// was entered, how far up the tier ladder it got, and when it ended.
type SessionRecord struct {
	SessionID      string
	StateID        string
	EnteredAt      time.Time
	LockedAt       time.Time // zero if the session never reached locked
	EndedAt        time.Time // zero while the session is live
	Tier           string
	PeakConfidence float32
	DominantBands  []string
}

// TransitionRecord is one provenance entry for an approved switch or an
// explicit reset.
type TransitionRecord struct {
	ID            int64
	FromSessionID string
	ToSessionID   string
	FromStateID   string
	ToStateID     string
	Decision      string // "switch" or "reset"
	Confidence    float32
	Margin        float32
	Emergency     bool
	Reason        string
	TraceJSON     string
	CreatedAt     time.Time
}

// Transition decisions.
const (
	DecisionSwitch = "switch"
	DecisionReset  = "reset"
)

// #endregion types
