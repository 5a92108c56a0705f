package scoring

import (
	"sort"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region score

// Score computes every catalog state's raw confidence for one sample.
// Pure and deterministic: no side effects, identical inputs produce
// identical results. The sample must already be clamped at the boundary.
func Score(s sample.Sample, cat *catalog.Catalog, config Config) Result {
	top2 := s.TopBands(2)
	inTop2 := map[sample.Band]bool{}
	for _, b := range top2 {
		inTop2[b] = true
	}

	defs := cat.All()
	candidates := make([]Candidate, 0, len(defs))
	for _, def := range defs {
		candidates = append(candidates, Candidate{
			StateID:    def.ID,
			Confidence: scoreState(s, def.Pattern, inTop2, config),
		})
	}

	// Sort descending; SliceStable keeps catalog order on ties so the
	// ranking is deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	result := Result{
		Candidates:    candidates,
		DominantBands: top2,
	}
	applyAmbiguity(&result, s, config)
	return result
}

// scoreState awards points for one state's declared pattern.
func scoreState(s sample.Sample, p catalog.Pattern, inTop2 map[sample.Band]bool, config Config) float32 {
	var total float32

	// Dominant bands: full award when the band leads the sample, a
	// reduced award otherwise, both scaled by the band's magnitude.
	if n := len(p.Dominant); n > 0 {
		per := config.DominantCap / float32(n)
		var pts float32
		for _, b := range p.Dominant {
			v := s.BandValue(b)
			if inTop2[b] {
				pts += per * v
			} else {
				pts += per * config.OffRankFactor * v
			}
		}
		total += min32(pts, config.DominantCap)
	}

	// Secondary bands score only above the floor.
	if n := len(p.Secondary); n > 0 {
		per := config.SecondaryCap / float32(n)
		var pts float32
		for _, b := range p.Secondary {
			if v := s.BandValue(b); v > config.SecondaryFloor {
				pts += per * v
			}
		}
		total += min32(pts, config.SecondaryCap)
	}

	// Suppressed bands reward actual absence, scaled by (1 - value).
	if n := len(p.Suppressed); n > 0 {
		per := config.SuppressedCap / float32(n)
		var pts float32
		for _, b := range p.Suppressed {
			if v := s.BandValue(b); v < config.SuppressedCeiling {
				pts += per * (1 - v)
			}
		}
		total += min32(pts, config.SuppressedCap)
	}

	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// #endregion score

// #region ambiguity

// applyAmbiguity implements the alpha-window tie-break: when the two
// leaders are nearly even and the alpha band sits in the acknowledged
// ambiguous window, the result is flagged and both leaders discounted
// rather than arbitrarily picking one.
func applyAmbiguity(r *Result, s sample.Sample, config Config) {
	if len(r.Candidates) < 2 {
		return
	}
	gap := r.Candidates[0].Confidence - r.Candidates[1].Confidence
	if gap >= config.AmbiguityMargin {
		return
	}
	alpha := s.Alpha
	if alpha < config.AmbiguousAlphaLow || alpha > config.AmbiguousAlphaHigh {
		return
	}
	r.Ambiguous = true
	r.AmbiguousPair = [2]string{r.Candidates[0].StateID, r.Candidates[1].StateID}
	r.Candidates[0].Confidence *= config.AmbiguityDiscount
	r.Candidates[1].Confidence *= config.AmbiguityDiscount
}

// #endregion ambiguity

// #region helpers

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// #endregion helpers
