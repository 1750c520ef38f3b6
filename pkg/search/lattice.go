// Package search implements the size-constrained search over the encode
// configuration lattice.
//
// The lattice (scale x quality x frame-rate divisor) is enumerated up
// front and sorted by a descending quality score. The score only decides
// trial order; the budget comparison against the muxed byte count is the
// sole correctness-relevant comparator.
package search

import (
	"sort"

	"github.com/user/stickerpress/pkg/pipeline"
)

// Axes bounds the candidate configuration lattice.
type Axes struct {
	Scales            []float64 `yaml:"scales"`
	Qualities         []int     `yaml:"qualities"`
	FrameRateDivisors []int     `yaml:"frame_rate_divisors"`
}

// DefaultAxes returns the default candidate bounds: scale steps down to
// half resolution, CRF 25-45, and up to a third of the frame rate.
func DefaultAxes() Axes {
	return Axes{
		Scales:            []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5},
		Qualities:         []int{25, 30, 35, 40, 45},
		FrameRateDivisors: []int{1, 2, 3},
	}
}

// Empty returns true if any axis has no values.
func (a Axes) Empty() bool {
	return len(a.Scales) == 0 || len(a.Qualities) == 0 || len(a.FrameRateDivisors) == 0
}

// Score is the ordering heuristic over configs. Larger scale, lower CRF
// and lower frame-rate divisor all increase the score. The combination is
// monotone in each axis, which is all the ordering needs.
func Score(c pipeline.EncodeConfig) float64 {
	return c.Scale * c.Scale * float64(64-c.Quality) / float64(c.FrameRateDivisor)
}

// Enumerate returns every lattice point sorted by descending Score.
// Ties break on scale (descending), then quality (ascending), then
// divisor (ascending), so the order is fully deterministic.
func Enumerate(axes Axes) []pipeline.EncodeConfig {
	configs := make([]pipeline.EncodeConfig, 0, len(axes.Scales)*len(axes.Qualities)*len(axes.FrameRateDivisors))
	for _, scale := range axes.Scales {
		for _, quality := range axes.Qualities {
			for _, divisor := range axes.FrameRateDivisors {
				configs = append(configs, pipeline.EncodeConfig{
					Scale:            scale,
					Quality:          quality,
					FrameRateDivisor: divisor,
				})
			}
		}
	}

	sort.SliceStable(configs, func(i, j int) bool {
		si, sj := Score(configs[i]), Score(configs[j])
		if si != sj {
			return si > sj
		}
		if configs[i].Scale != configs[j].Scale {
			return configs[i].Scale > configs[j].Scale
		}
		if configs[i].Quality != configs[j].Quality {
			return configs[i].Quality < configs[j].Quality
		}
		return configs[i].FrameRateDivisor < configs[j].FrameRateDivisor
	})
	return configs
}

// Stride maps an overshoot ratio (candidate size / byte budget) to the
// number of lattice positions to advance. Any monotone mapping preserves
// the search semantics; the constants are tunables, not format rules.
// Results far over budget skip several intermediate configs that are
// predicted to miss as well.
func Stride(overshoot, threshold float64, maxJump int) int {
	if maxJump < 1 {
		maxJump = 1
	}
	if overshoot <= threshold {
		return 1
	}
	stride := int(overshoot)
	if stride > maxJump {
		stride = maxJump
	}
	if stride < 1 {
		stride = 1
	}
	return stride
}
