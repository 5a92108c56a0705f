package sample

import (
	"math"
	"sort"
	"time"
)

// #region bands

// Band names one of the five relative power bands in a Sample.
type Band string

const (
	BandTheta    Band = "theta"
	BandAlpha    Band = "alpha"
	BandBetaLow  Band = "betaLow"
	BandBetaHigh Band = "betaHigh"
	BandGamma    Band = "gamma"
)

// Bands lists all bands in canonical order.
var Bands = []Band{BandTheta, BandAlpha, BandBetaLow, BandBetaHigh, BandGamma}

// #endregion bands

// #region metrics

// Metrics carries optional derived performance metrics, each in [0,1].
type Metrics struct {
	Stress     float32 `json:"stress"`
	Relaxation float32 `json:"relaxation"`
	Engagement float32 `json:"engagement"`
	Focus      float32 `json:"focus"`
}

// #endregion metrics

// #region sample

// Sample is one timestamped observation of normalized band powers.
// Band values are relative power in [0,1] and do not need to sum to 1.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`

	Theta    float32 `json:"theta"`
	Alpha    float32 `json:"alpha"`
	BetaLow  float32 `json:"betaLow"`
	BetaHigh float32 `json:"betaHigh"`
	Gamma    float32 `json:"gamma"`

	// Motion is the motion-artifact level in [0,1]. Negative means absent.
	Motion float32 `json:"motion"`

	Metrics *Metrics `json:"metrics,omitempty"`
}

// BandValue returns the power of the named band. Unknown bands read as 0.
func (s Sample) BandValue(b Band) float32 {
	switch b {
	case BandTheta:
		return s.Theta
	case BandAlpha:
		return s.Alpha
	case BandBetaLow:
		return s.BetaLow
	case BandBetaHigh:
		return s.BetaHigh
	case BandGamma:
		return s.Gamma
	}
	return 0
}

// TopBands returns the n highest-powered bands, strongest first.
// Ties break on canonical band order so ranking is deterministic.
func (s Sample) TopBands(n int) []Band {
	ranked := make([]Band, len(Bands))
	copy(ranked, Bands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.BandValue(ranked[i]) > s.BandValue(ranked[j])
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// #endregion sample

// #region clamp

// Clamp returns a sanitized copy: NaN and Inf band values become 0, all
// band and metric values are clamped to [0,1]. Motion keeps -1 as the
// "absent" sentinel but is otherwise clamped the same way.
func (s Sample) Clamp() Sample {
	out := s
	out.Theta = clamp01(s.Theta)
	out.Alpha = clamp01(s.Alpha)
	out.BetaLow = clamp01(s.BetaLow)
	out.BetaHigh = clamp01(s.BetaHigh)
	out.Gamma = clamp01(s.Gamma)
	if s.Motion >= 0 {
		out.Motion = clamp01(s.Motion)
	} else {
		out.Motion = -1
	}
	if s.Metrics != nil {
		m := Metrics{
			Stress:     clamp01(s.Metrics.Stress),
			Relaxation: clamp01(s.Metrics.Relaxation),
			Engagement: clamp01(s.Metrics.Engagement),
			Focus:      clamp01(s.Metrics.Focus),
		}
		out.Metrics = &m
	}
	return out
}

func clamp01(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
