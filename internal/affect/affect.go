package affect

import (
	"sort"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region types

// Label is a named affect with its accumulated score.
type Label struct {
	Name  string
	Score float32
}

// Estimate is the estimator output for one sample. It never selects
// states; it only feeds the stability gate.
type Estimate struct {
	Valence float32 // [-1, 1]
	Arousal float32 // [0, 1]
	Control float32 // [0, 1]

	// Labels holds the top-3 affect labels by score, descending. Always
	// at least one entry: "neutral" carries a floor score.
	Labels []Label

	// Unstable is set when a transcendence-like band pattern coincides
	// with a high combined negative-affect score.
	Unstable bool
}

// Top returns the highest-scoring label name.
func (e Estimate) Top() string {
	if len(e.Labels) == 0 {
		return "neutral"
	}
	return e.Labels[0].Name
}

// #endregion types

// #region config

// Config holds estimator tuning knobs.
type Config struct {
	NeutralFloor float32 // minimum score for the "neutral" label

	// InstabilityThreshold is the combined anxiety/stress/fear/overwhelm
	// score above which a transcendence-like pattern flags Unstable.
	InstabilityThreshold float32
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		NeutralFloor:         0.15,
		InstabilityThreshold: 0.8,
	}
}

// #endregion config

// #region estimator

// Estimator derives a valence/arousal/control estimate from band powers
// and optional metrics via fixed-delta rules.
type Estimator struct {
	config Config
}

// NewEstimator creates an estimator with the given configuration.
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Estimate applies every rule to the sample and clamps the axes. Pure and
// deterministic; the sample must already be clamped at the boundary.
func (e *Estimator) Estimate(s sample.Sample) Estimate {
	var valence, arousal, control float32
	arousal = 0.3 // resting baseline
	control = 0.5
	scores := map[string]float32{"neutral": e.config.NeutralFloor}

	// --- Band rules ---

	// High-beta arousal with suppressed alpha reads as anxiety.
	if s.BetaHigh > 0.5 && s.Alpha < 0.3 {
		valence -= 0.3
		arousal += 0.35
		control -= 0.2
		scores["anxious"] += 0.6
		scores["stress"] += 0.4
	}

	// Alpha dominance with quiet high-beta reads as calm.
	if s.Alpha > 0.5 && s.BetaHigh < 0.3 {
		valence += 0.3
		arousal -= 0.2
		control += 0.1
		scores["calm"] += 0.6
		scores["content"] += 0.3
	}

	// Theta with supporting alpha reads as dreamy introspection.
	if s.Theta > 0.5 && s.Alpha > 0.3 {
		valence += 0.1
		arousal -= 0.15
		scores["dreamy"] += 0.5
	}

	// Strong gamma reads as expansive, mildly euphoric.
	if s.Gamma > 0.5 {
		valence += 0.2
		arousal += 0.2
		control += 0.15
		scores["expansive"] += 0.5
		scores["euphoric"] += 0.3
	}

	// Low-beta engagement without high-beta strain.
	if s.BetaLow > 0.5 && s.BetaHigh < 0.4 {
		valence += 0.15
		arousal += 0.1
		control += 0.2
		scores["engaged"] += 0.5
		scores["absorbed"] += 0.25
	}

	// Everything elevated at once reads as overwhelm.
	if s.BetaHigh > 0.6 && s.Gamma > 0.5 && s.Theta > 0.4 {
		valence -= 0.25
		arousal += 0.3
		control -= 0.3
		scores["overwhelm"] += 0.6
		scores["fear"] += 0.2
	}

	// --- Metric rules ---
	if m := s.Metrics; m != nil {
		valence += 0.3 * (m.Relaxation - m.Stress)
		arousal += 0.3*m.Stress + 0.2*m.Engagement - 0.2*m.Relaxation
		control += 0.3*m.Focus - 0.2*m.Stress

		if m.Stress > 0.6 {
			scores["stress"] += 0.4 * m.Stress
		}
		if m.Relaxation > 0.6 {
			scores["calm"] += 0.4 * m.Relaxation
		}
		if m.Engagement > 0.6 {
			scores["engaged"] += 0.4 * m.Engagement
		}
		if m.Focus > 0.6 {
			scores["absorbed"] += 0.4 * m.Focus
		}
	}

	est := Estimate{
		Valence:  clampRange(valence, -1, 1),
		Arousal:  clampRange(arousal, 0, 1),
		Control:  clampRange(control, 0, 1),
		Labels:   rankLabels(scores),
		Unstable: e.unstable(s, scores),
	}
	return est
}

// unstable checks for a transcendence-like pattern (gamma or theta+gamma
// dominance) riding on a high combined negative-affect score.
func (e *Estimator) unstable(s sample.Sample, scores map[string]float32) bool {
	top := s.TopBands(2)
	gammaLed := top[0] == sample.BandGamma
	thetaGamma := (top[0] == sample.BandTheta && top[1] == sample.BandGamma) ||
		(top[0] == sample.BandGamma && top[1] == sample.BandTheta)
	if !gammaLed && !thetaGamma {
		return false
	}
	negative := scores["anxious"] + scores["stress"] + scores["fear"] + scores["overwhelm"]
	return negative > e.config.InstabilityThreshold
}

// #endregion estimator

// #region helpers

// rankLabels sorts label scores descending and keeps the top 3. Ties
// break alphabetically so the ranking is deterministic.
func rankLabels(scores map[string]float32) []Label {
	labels := make([]Label, 0, len(scores))
	for name, score := range scores {
		if score <= 0 {
			continue
		}
		labels = append(labels, Label{Name: name, Score: score})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Score != labels[j].Score {
			return labels[i].Score > labels[j].Score
		}
		return labels[i].Name < labels[j].Name
	})
	if len(labels) > 3 {
		labels = labels[:3]
	}
	return labels
}

func clampRange(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
