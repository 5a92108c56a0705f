package source

import (
	"context"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region config

// Phase is one scripted regime of the simulator: a base sample held for a
// duration with a little noise on top.
type Phase struct {
	Name     string
	Base     sample.Sample
	Duration time.Duration
}

// SimulatorConfig configures the scripted sample generator.
type SimulatorConfig struct {
	Seed     int64
	Interval time.Duration // emission cadence
	Noise    float32       // uniform band jitter amplitude
	Phases   []Phase       // cycled in order; empty falls back to the default script
}

// DefaultSimulatorConfig returns a script that walks through the common
// regimes: settled alpha, focused beta, a flow stretch, and a noisy
// transition that exercises the ambiguity and emergency paths.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Seed:     1,
		Interval: 250 * time.Millisecond,
		Noise:    0.04,
		Phases: []Phase{
			{Name: "relaxed", Duration: 20 * time.Second,
				Base: sample.Sample{Theta: 0.25, Alpha: 0.7, BetaLow: 0.2, BetaHigh: 0.1, Gamma: 0.05, Motion: 0.1}},
			{Name: "focused", Duration: 25 * time.Second,
				Base: sample.Sample{Theta: 0.1, Alpha: 0.3, BetaLow: 0.65, BetaHigh: 0.35, Gamma: 0.1, Motion: 0.1}},
			{Name: "flow", Duration: 30 * time.Second,
				Base: sample.Sample{Theta: 0.35, Alpha: 0.55, BetaLow: 0.5, BetaHigh: 0.15, Gamma: 0.15, Motion: 0.05}},
			{Name: "restless", Duration: 10 * time.Second,
				Base: sample.Sample{Theta: 0.3, Alpha: 0.3, BetaLow: 0.3, BetaHigh: 0.55, Gamma: 0.3, Motion: 0.7}},
		},
	}
}

// #endregion config

// #region simulator

// Simulator emits scripted samples on a fixed cadence. Output is a pure
// function of the seed and script, so a given configuration always
// produces the same sequence.
type Simulator struct {
	config SimulatorConfig
	rng    *rand.Rand
	out    chan sample.Sample
}

// NewSimulator creates a scripted sample generator.
func NewSimulator(config SimulatorConfig) *Simulator {
	if len(config.Phases) == 0 {
		config.Phases = DefaultSimulatorConfig().Phases
	}
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}
	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		out:    make(chan sample.Sample, 16),
	}
}

// Samples returns the sample channel. Closed when Run returns.
func (s *Simulator) Samples() <-chan sample.Sample {
	return s.out
}

// Run emits samples until the context is canceled.
func (s *Simulator) Run(ctx context.Context) error {
	defer close(s.out)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			elapsed += s.config.Interval
			select {
			case s.out <- s.At(elapsed):
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
}

// At returns the scripted sample for an offset from the start of the
// script. The script cycles once the last phase ends.
func (s *Simulator) At(offset time.Duration) sample.Sample {
	var total time.Duration
	for _, p := range s.config.Phases {
		total += p.Duration
	}
	if total > 0 {
		offset = offset % total
	}

	phase := s.config.Phases[0]
	for _, p := range s.config.Phases {
		if offset < p.Duration {
			phase = p
			break
		}
		offset -= p.Duration
	}

	out := phase.Base
	out.Theta += s.jitter()
	out.Alpha += s.jitter()
	out.BetaLow += s.jitter()
	out.BetaHigh += s.jitter()
	out.Gamma += s.jitter()
	return out.Clamp()
}

func (s *Simulator) jitter() float32 {
	if s.config.Noise <= 0 {
		return 0
	}
	return (s.rng.Float32()*2 - 1) * s.config.Noise
}

// #endregion simulator
