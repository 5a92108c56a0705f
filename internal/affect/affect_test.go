package affect

import (
	"testing"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

func TestAnxiousPattern(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	s := sample.Sample{BetaHigh: 0.7, Alpha: 0.1}

	est := e.Estimate(s)

	if est.Top() != "anxious" {
		t.Fatalf("expected anxious on high betaHigh + low alpha, got %s", est.Top())
	}
	if est.Valence >= 0 {
		t.Fatalf("expected negative valence, got %.2f", est.Valence)
	}
	if est.Arousal <= 0.3 {
		t.Fatalf("expected elevated arousal, got %.2f", est.Arousal)
	}
}

func TestCalmPattern(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	s := sample.Sample{Alpha: 0.7, BetaHigh: 0.1}

	est := e.Estimate(s)

	if est.Top() != "calm" {
		t.Fatalf("expected calm on high alpha + low betaHigh, got %s", est.Top())
	}
	if est.Valence <= 0 {
		t.Fatalf("expected positive valence, got %.2f", est.Valence)
	}
}

func TestNeutralFloorAlwaysPresent(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	est := e.Estimate(sample.Sample{})

	if len(est.Labels) == 0 {
		t.Fatal("expected at least one label")
	}
	if est.Top() != "neutral" {
		t.Fatalf("a flat sample should read neutral, got %s", est.Top())
	}
}

func TestTopThreeLabelsOnly(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	// Trip several rules at once.
	s := sample.Sample{
		BetaHigh: 0.7, Gamma: 0.6, Theta: 0.5, Alpha: 0.1,
		Metrics: &sample.Metrics{Stress: 0.9, Engagement: 0.8},
	}
	est := e.Estimate(s)
	if len(est.Labels) > 3 {
		t.Fatalf("expected at most 3 labels, got %d", len(est.Labels))
	}
}

func TestAxesClamped(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	s := sample.Sample{
		Alpha: 0.9, Gamma: 0.9, BetaLow: 0.9, Theta: 0.6,
		Metrics: &sample.Metrics{Relaxation: 1, Focus: 1, Engagement: 1},
	}
	est := e.Estimate(s)

	if est.Valence < -1 || est.Valence > 1 {
		t.Fatalf("valence %.2f out of range", est.Valence)
	}
	if est.Arousal < 0 || est.Arousal > 1 {
		t.Fatalf("arousal %.2f out of range", est.Arousal)
	}
	if est.Control < 0 || est.Control > 1 {
		t.Fatalf("control %.2f out of range", est.Control)
	}
}

func TestUnstableOnGammaWithNegativePileup(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	// Gamma leads, and betaHigh/theta trip the overwhelm + anxiety rules.
	s := sample.Sample{Gamma: 0.8, BetaHigh: 0.7, Theta: 0.5, Alpha: 0.1}

	est := e.Estimate(s)

	if !est.Unstable {
		t.Fatal("expected unstable flag on gamma dominance with negative pileup")
	}
}

func TestStableOnCalmGamma(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	// Gamma leads but nothing negative fires.
	s := sample.Sample{Gamma: 0.8, Alpha: 0.6}

	est := e.Estimate(s)

	if est.Unstable {
		t.Fatal("calm gamma dominance should not flag unstable")
	}
}

func TestNoUnstableWithoutTranscendencePattern(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	// Heavy negative affect but betaHigh-led, not gamma/theta+gamma.
	s := sample.Sample{BetaHigh: 0.9, BetaLow: 0.8, Alpha: 0.05}

	est := e.Estimate(s)

	if est.Unstable {
		t.Fatal("unstable requires a transcendence-like band pattern")
	}
}

func TestMetricsShiftAxes(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	base := e.Estimate(sample.Sample{Alpha: 0.4})
	stressed := e.Estimate(sample.Sample{Alpha: 0.4, Metrics: &sample.Metrics{Stress: 1}})

	if stressed.Valence >= base.Valence {
		t.Fatalf("stress should lower valence: base %.2f, stressed %.2f", base.Valence, stressed.Valence)
	}
	if stressed.Arousal <= base.Arousal {
		t.Fatalf("stress should raise arousal: base %.2f, stressed %.2f", base.Arousal, stressed.Arousal)
	}
}
