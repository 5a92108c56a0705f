package tier

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
)

func ordinaryThresholds() catalog.TierThresholds {
	return catalog.Thresholds(catalog.CategoryOrdinary)
}

func TestClassifyBreakpoints(t *testing.T) {
	th := ordinaryThresholds()
	cases := []struct {
		inState time.Duration
		want    Tier
	}{
		{0, TierDetected},
		{th.Candidate - time.Millisecond, TierDetected},
		{th.Candidate, TierCandidate},
		{th.Confirmed, TierConfirmed},
		{th.Locked - time.Millisecond, TierConfirmed},
		{th.Locked, TierLocked},
		{2 * th.Locked, TierLocked},
	}
	for _, c := range cases {
		if got := Classify(c.inState, th); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.inState, got, c.want)
		}
	}
}

func TestTierOrdering(t *testing.T) {
	if !(TierDetected < TierCandidate && TierCandidate < TierConfirmed && TierConfirmed < TierLocked) {
		t.Fatal("tier ordering broken")
	}
}

func TestForDisplayDowngradesLockedOnVariance(t *testing.T) {
	config := DefaultConfig()
	displayed, stability := ForDisplay(TierLocked, config.VarianceCeiling+1, false, config)
	if displayed != TierConfirmed {
		t.Fatalf("expected display downgrade to confirmed, got %s", displayed)
	}
	if stability != StabilityUnstable {
		t.Fatalf("expected unstable, got %s", stability)
	}
}

func TestForDisplayDowngradesLockedOnAffect(t *testing.T) {
	displayed, stability := ForDisplay(TierLocked, 0, true, DefaultConfig())
	if displayed != TierConfirmed {
		t.Fatalf("expected display downgrade to confirmed, got %s", displayed)
	}
	if stability != StabilityUnstable {
		t.Fatalf("expected unstable, got %s", stability)
	}
}

func TestForDisplayKeepsLockedWhenStable(t *testing.T) {
	displayed, stability := ForDisplay(TierLocked, 3, false, DefaultConfig())
	if displayed != TierLocked {
		t.Fatalf("expected locked, got %s", displayed)
	}
	if stability != StabilityStable {
		t.Fatalf("expected stable, got %s", stability)
	}
}

func TestForDisplayEarlyTiersTransition(t *testing.T) {
	for _, tr := range []Tier{TierDetected, TierCandidate} {
		_, stability := ForDisplay(tr, 3, false, DefaultConfig())
		if stability != StabilityTransitioning {
			t.Errorf("%s: expected transitioning, got %s", tr, stability)
		}
	}
}

func TestForDisplayConfirmedNotDowngraded(t *testing.T) {
	displayed, stability := ForDisplay(TierConfirmed, 50, false, DefaultConfig())
	if displayed != TierConfirmed {
		t.Fatalf("only locked is downgraded, got %s", displayed)
	}
	if stability != StabilityUnstable {
		t.Fatalf("expected unstable label, got %s", stability)
	}
}
