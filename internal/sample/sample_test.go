package sample

import (
	"math"
	"testing"
)

func TestClampRejectsNaNAndInf(t *testing.T) {
	s := Sample{
		Theta:    float32(math.NaN()),
		Alpha:    float32(math.Inf(1)),
		BetaLow:  -0.5,
		BetaHigh: 1.5,
		Gamma:    0.4,
	}
	c := s.Clamp()

	if c.Theta != 0 {
		t.Fatalf("NaN theta should clamp to 0, got %f", c.Theta)
	}
	if c.Alpha != 0 {
		t.Fatalf("Inf alpha should clamp to 0, got %f", c.Alpha)
	}
	if c.BetaLow != 0 {
		t.Fatalf("negative betaLow should clamp to 0, got %f", c.BetaLow)
	}
	if c.BetaHigh != 1 {
		t.Fatalf("betaHigh should clamp to 1, got %f", c.BetaHigh)
	}
	if c.Gamma != 0.4 {
		t.Fatalf("in-range gamma should pass through, got %f", c.Gamma)
	}
}

func TestClampKeepsAbsentMotionSentinel(t *testing.T) {
	s := Sample{Motion: -1}
	if got := s.Clamp().Motion; got != -1 {
		t.Fatalf("absent motion should stay -1, got %f", got)
	}

	s = Sample{Motion: 2.0}
	if got := s.Clamp().Motion; got != 1 {
		t.Fatalf("motion should clamp to 1, got %f", got)
	}
}

func TestClampMetrics(t *testing.T) {
	s := Sample{Metrics: &Metrics{Stress: float32(math.NaN()), Focus: 1.2}}
	c := s.Clamp()
	if c.Metrics == nil {
		t.Fatal("metrics should survive clamping")
	}
	if c.Metrics.Stress != 0 {
		t.Fatalf("NaN stress should clamp to 0, got %f", c.Metrics.Stress)
	}
	if c.Metrics.Focus != 1 {
		t.Fatalf("focus should clamp to 1, got %f", c.Metrics.Focus)
	}
	// Clamp must not alias the input's metrics.
	c.Metrics.Focus = 0.5
	if s.Metrics.Focus != 1.2 {
		t.Fatal("clamp mutated the source sample's metrics")
	}
}

func TestTopBandsDeterministicOnTies(t *testing.T) {
	s := Sample{Theta: 0.5, Alpha: 0.5, BetaLow: 0.5, BetaHigh: 0.5, Gamma: 0.5}
	top := s.TopBands(2)
	if top[0] != BandTheta || top[1] != BandAlpha {
		t.Fatalf("ties should break on canonical order, got %v", top)
	}
}

func TestTopBandsRanksByPower(t *testing.T) {
	s := Sample{Theta: 0.1, Alpha: 0.8, BetaLow: 0.3, BetaHigh: 0.2, Gamma: 0.6}
	top := s.TopBands(3)
	want := []Band{BandAlpha, BandGamma, BandBetaLow}
	for i, b := range want {
		if top[i] != b {
			t.Fatalf("rank %d: want %s, got %s", i, b, top[i])
		}
	}
}

func TestBandValueUnknownBand(t *testing.T) {
	s := Sample{Theta: 0.9}
	if got := s.BandValue(Band("delta")); got != 0 {
		t.Fatalf("unknown band should read 0, got %f", got)
	}
}
