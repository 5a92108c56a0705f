package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/mindstate/internal/affect"
	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/sample"
	"github.com/danielpatrickdp/mindstate/internal/scoring"
	"github.com/danielpatrickdp/mindstate/internal/smoothing"
	"github.com/danielpatrickdp/mindstate/internal/tier"
)

// #region engine

// Engine is the temporal stabilizer: the only component with cross-tick
// memory. Ticks are serialized by a mutex because the hysteresis
// invariants (monotonic EnteredAt, exactly-once LockedAt) are not safe
// under interleaved writers. Within a tick everything is synchronous pure
// computation over immutable snapshots.
type Engine struct {
	config    Config
	catalog   *catalog.Catalog
	estimator *affect.Estimator
	tracker   *smoothing.Tracker

	mu           sync.Mutex
	current      StateSession
	challenger   *ChallengerSession
	lastSwitchAt time.Time
	lowSince     time.Time // when current confidence first dipped below the emergency threshold
	motionSince  time.Time // when the current motion blackout began
	emergency    bool

	latest     sample.Sample
	haveSample bool

	tickCount uint64
	lastModel display.Model
}

// New creates an engine. The configuration is validated up front; a
// config that could silently misbehave at runtime is a constructor error.
func New(config Config, cat *catalog.Catalog) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("engine requires a non-empty state catalog")
	}
	def, ok := cat.Get(config.DefaultStateID)
	if !ok {
		return nil, fmt.Errorf("default state %q not in catalog", config.DefaultStateID)
	}

	e := &Engine{
		config:    config,
		catalog:   cat,
		estimator: affect.NewEstimator(config.Affect),
		tracker:   smoothing.NewTracker(config.SmoothingWindow),
		current: StateSession{
			ID:      uuid.New().String(),
			StateID: def.ID,
			Tier:    tier.TierDetected,
		},
	}
	e.lastModel = e.buildModel(def, tier.TierDetected, tier.StabilityTransitioning,
		affect.Estimate{}, nil, 0, display.Trace{})
	return e, nil
}

// Ingest stores the latest sample. The producer may run at a different
// cadence than the stabilizer; Tick always consumes the most recent
// sample available and never blocks waiting for one.
func (e *Engine) Ingest(s sample.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = s.Clamp()
	e.haveSample = true
}

// Current returns a copy of the live session, for provenance recording.
func (e *Engine) Current() StateSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Reset starts a fresh default-state session, discarding all cross-tick
// memory. Lifecycle is construct once per logical session, reset
// explicitly.
func (e *Engine) Reset(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = StateSession{
		ID:        uuid.New().String(),
		StateID:   e.config.DefaultStateID,
		EnteredAt: now,
		Tier:      tier.TierDetected,
	}
	e.challenger = nil
	e.lastSwitchAt = time.Time{}
	e.lowSince = time.Time{}
	e.motionSince = time.Time{}
	e.emergency = false
	e.haveSample = false
	e.tracker = smoothing.NewTracker(e.config.SmoothingWindow)
}

// #endregion engine

// #region tick

// Tick advances the stabilizer one step and returns a fresh display
// model. Deterministic: identical (sample, now) sequences against the
// same configuration produce identical model sequences.
func (e *Engine) Tick(now time.Time) display.Model {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickCount++

	// Liveness on uninformative ticks: re-emit the previous model with
	// only the tick counter advanced.
	if !e.haveSample {
		return e.reemit(display.Trace{Tick: e.tickCount})
	}
	s := e.latest

	if e.current.EnteredAt.IsZero() {
		// First informative tick starts the default session's clock.
		e.current.EnteredAt = now
	}

	// Motion artifact: treat as no informative sample. No session timer
	// advances, no tier promotes, previous model holds.
	if s.Motion >= 0 && s.Motion > e.config.MotionCeiling {
		if e.motionSince.IsZero() {
			e.motionSince = now
		}
		return e.reemit(display.Trace{
			Tick:         e.tickCount,
			MotionHold:   true,
			BlockReasons: []display.BlockReason{display.BlockMotion},
		})
	}
	if !e.motionSince.IsZero() {
		// The blackout span is uninformative time: every clock resumes
		// where it paused rather than banking the wall-clock gap.
		e.shiftClocks(now.Sub(e.motionSince))
		e.motionSince = time.Time{}
	}

	result := scoring.Score(s, e.catalog, e.config.Scoring)
	if len(result.Candidates) == 0 {
		return e.reemit(display.Trace{Tick: e.tickCount})
	}
	est := e.estimator.Estimate(s)
	top, _ := result.Top()

	// Feed the smoothing layer for the ids that matter this tick and
	// drop the rest to bound memory.
	e.tracker.Observe(e.current.StateID, rawFor(result, e.current.StateID))
	if top.StateID != e.current.StateID {
		e.tracker.Observe(top.StateID, top.Confidence)
		e.tracker.Retain(e.current.StateID, top.StateID)
	} else {
		e.tracker.Retain(e.current.StateID)
	}
	curSmoothed := e.tracker.Smoothed(e.current.StateID)

	// Emergency: sustained confidence collapse of the current state
	// bypasses the hold and cooldown gates.
	if curSmoothed < e.config.EmergencyThreshold {
		if e.lowSince.IsZero() {
			e.lowSince = now
		}
		if now.Sub(e.lowSince) >= e.config.EmergencyDuration {
			e.emergency = true
		}
	} else {
		e.lowSince = time.Time{}
		e.emergency = false
	}

	trace := display.Trace{
		Tick:            e.tickCount,
		RawTop:          topRanked(result, 3),
		EmergencyActive: e.emergency,
		Ambiguous:       result.Ambiguous,
	}

	switch {
	case result.Ambiguous:
		// Two near-even leaders in the acknowledged ambiguous band: emit
		// the transition result, start no clocks, approve nothing. The
		// ranking is untrustworthy, so any tracked challenger is discarded
		// rather than left visible with stale confidence.
		trace.BlockReasons = append(trace.BlockReasons, display.BlockAmbiguous)
		e.challenger = nil
		e.current.Confidence = curSmoothed

	case top.StateID == e.current.StateID:
		// Holding: current is unopposed; refresh in place, identity and
		// EnteredAt unchanged.
		e.challenger = nil
		e.current.Confidence = curSmoothed
		e.current.DominantBands = result.DominantBands

	default:
		e.trackChallenger(top, result.DominantBands, est, curSmoothed, now, &trace)
	}
	curSmoothed = e.tracker.Smoothed(e.current.StateID)
	e.current.Confidence = curSmoothed

	// Tier promotion is independent of switching and strictly monotonic
	// for an unchanged session; a replaced session restarted at detected
	// above.
	def, _ := e.catalog.Get(e.current.StateID)
	th := e.config.thresholdsFor(def.Category)
	if t := tier.Classify(now.Sub(e.current.EnteredAt), th); t > e.current.Tier {
		e.current.Tier = t
	}
	if e.current.Tier == tier.TierLocked && e.current.LockedAt.IsZero() {
		e.current.LockedAt = now
	}

	displayTier, stability := tier.ForDisplay(
		e.current.Tier, e.tracker.Variance(e.current.StateID), est.Unstable, e.config.Tier)
	if result.Ambiguous {
		stability = tier.StabilityUnstable
	}

	trace.SmoothedTop = e.smoothedRanked(top.StateID)

	model := e.buildModel(def, displayTier, stability, est,
		e.challengerView(now), now.Sub(e.current.EnteredAt), trace)
	e.lastModel = model
	return model
}

// reemit re-issues the previous model with a fresh trace.
func (e *Engine) reemit(trace display.Trace) display.Model {
	m := e.lastModel
	m.Trace = trace
	e.lastModel = m
	return m
}

// #endregion tick

// #region challenger

// trackChallenger updates or creates the challenger session and decides
// whether the switch is approved this tick.
func (e *Engine) trackChallenger(top scoring.Candidate, dominant []sample.Band, est affect.Estimate, curSmoothed float32, now time.Time, trace *display.Trace) {
	chSmoothed := e.tracker.Smoothed(top.StateID)

	// Affect gate: a conflicting affect discounts the challenger's
	// confidence rather than rejecting it outright; repeated conflict
	// keeps it under the threshold/margin gates naturally.
	if def, ok := e.catalog.Get(top.StateID); ok && containsLabel(def.ConflictingAffects, est.Top()) {
		chSmoothed *= e.config.AffectConflictDiscount
	}

	if e.challenger == nil || e.challenger.StateID != top.StateID {
		e.challenger = &ChallengerSession{StateID: top.StateID, FirstLeadAt: now}
	}
	ch := e.challenger
	ch.Confidence = chSmoothed
	e.updateChallengerDisplay(ch, curSmoothed, now)

	var blocks []display.BlockReason
	if !e.emergency {
		if now.Sub(e.current.EnteredAt) < e.config.MinHold {
			blocks = append(blocks, display.BlockMinHold)
		}
		if !e.lastSwitchAt.IsZero() && now.Sub(e.lastSwitchAt) < e.config.Cooldown {
			blocks = append(blocks, display.BlockCooldown)
		}
	}
	if chSmoothed < e.config.PromotionThreshold {
		blocks = append(blocks, display.BlockThreshold)
	}
	if chSmoothed-curSmoothed < e.config.TakeoverMargin {
		blocks = append(blocks, display.BlockMargin)
	}

	if len(blocks) > 0 {
		trace.BlockReasons = append(trace.BlockReasons, blocks...)
		return
	}

	// Approved: replace the session wholesale. Fresh confidence history
	// seeded with the triggering sample; tier restarts at the bottom.
	trace.SwitchedFrom = e.current.StateID
	e.tracker.Reset(top.StateID)
	e.tracker.Observe(top.StateID, top.Confidence)
	e.tracker.Retain(top.StateID)
	e.current = StateSession{
		ID:            uuid.New().String(),
		StateID:       top.StateID,
		EnteredAt:     now,
		Tier:          tier.TierDetected,
		Confidence:    top.Confidence,
		DominantBands: dominant,
	}
	e.challenger = nil
	e.lastSwitchAt = now
	e.lowSince = time.Time{}
	e.emergency = false
}

// updateChallengerDisplay maintains the runner-up display eligibility.
// Read-only observation over the same ranking; it never influences the
// promotion decision above.
func (e *Engine) updateChallengerDisplay(ch *ChallengerSession, curSmoothed float32, now time.Time) {
	closeRace := ch.Confidence >= e.config.ChallengerCloseFloor &&
		curSmoothed-ch.Confidence <= e.config.ChallengerCloseGap
	if closeRace {
		if ch.closeSince.IsZero() {
			ch.closeSince = now
		}
	} else {
		ch.closeSince = time.Time{}
	}

	strong := ch.Confidence >= e.config.ChallengerStrongFloor
	if strong {
		if ch.strongSince.IsZero() {
			ch.strongSince = now
		}
	} else {
		ch.strongSince = time.Time{}
	}

	eligible := (!ch.closeSince.IsZero() && now.Sub(ch.closeSince) >= e.config.ChallengerCloseHold) ||
		(!ch.strongSince.IsZero() && now.Sub(ch.strongSince) >= e.config.ChallengerStrongHold)
	if eligible {
		// Hold visibility past transient dips to keep the secondary
		// display from flickering.
		ch.visibleUntil = now.Add(e.config.ChallengerDisplayHold)
	}
}

// shiftClocks moves every running timestamp forward by a blackout span,
// excluding it from duration-gated decisions. LockedAt is a historical
// stamp and stays put.
func (e *Engine) shiftClocks(d time.Duration) {
	e.current.EnteredAt = e.current.EnteredAt.Add(d)
	if !e.lowSince.IsZero() {
		e.lowSince = e.lowSince.Add(d)
	}
	if !e.lastSwitchAt.IsZero() {
		e.lastSwitchAt = e.lastSwitchAt.Add(d)
	}
	if ch := e.challenger; ch != nil {
		ch.FirstLeadAt = ch.FirstLeadAt.Add(d)
		if !ch.closeSince.IsZero() {
			ch.closeSince = ch.closeSince.Add(d)
		}
		if !ch.strongSince.IsZero() {
			ch.strongSince = ch.strongSince.Add(d)
		}
		if !ch.visibleUntil.IsZero() {
			ch.visibleUntil = ch.visibleUntil.Add(d)
		}
	}
}

// challengerView projects the challenger for display, or nil when none
// is eligible.
func (e *Engine) challengerView(now time.Time) *display.Challenger {
	ch := e.challenger
	if ch == nil || ch.visibleUntil.IsZero() || now.After(ch.visibleUntil) {
		return nil
	}
	def, ok := e.catalog.Get(ch.StateID)
	if !ok {
		return nil
	}
	return &display.Challenger{
		ID:           ch.StateID,
		Name:         def.Name,
		Confidence:   ch.Confidence,
		LeadDuration: now.Sub(ch.FirstLeadAt),
	}
}

// #endregion challenger

// #region helpers

func (e *Engine) buildModel(def catalog.Definition, displayTier tier.Tier, stability tier.Stability,
	est affect.Estimate, challenger *display.Challenger, duration time.Duration, trace display.Trace) display.Model {
	return display.Build(display.BuildInput{
		StateID:        def.ID,
		StateName:      def.Name,
		StateColor:     def.Color,
		Confidence:     e.current.Confidence,
		Duration:       duration,
		DisplayTier:    displayTier,
		Stability:      stability,
		Challenger:     challenger,
		Valence:        est.Valence,
		Arousal:        est.Arousal,
		Control:        est.Control,
		TopAffectLabel: est.Top(),
		AffectUnstable: est.Unstable,
		Trace:          trace,
	})
}

// rawFor finds a state's raw confidence in the scored ranking.
func rawFor(result scoring.Result, stateID string) float32 {
	for _, c := range result.Candidates {
		if c.StateID == stateID {
			return c.Confidence
		}
	}
	return 0
}

// topRanked projects the top-n raw candidates into the trace.
func topRanked(result scoring.Result, n int) []display.RankedState {
	if n > len(result.Candidates) {
		n = len(result.Candidates)
	}
	out := make([]display.RankedState, n)
	for i := 0; i < n; i++ {
		out[i] = display.RankedState{
			ID:         result.Candidates[i].StateID,
			Confidence: result.Candidates[i].Confidence,
		}
	}
	return out
}

// smoothedRanked lists the smoothed confidences of the tracked ids,
// current first.
func (e *Engine) smoothedRanked(topID string) []display.RankedState {
	out := []display.RankedState{{
		ID:         e.current.StateID,
		Confidence: e.tracker.Smoothed(e.current.StateID),
	}}
	if topID != e.current.StateID {
		out = append(out, display.RankedState{
			ID:         topID,
			Confidence: e.tracker.Smoothed(topID),
		})
	}
	return out
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// #endregion helpers
