package compute

import (
	"math"

	"github.com/trendrank/trendrank/pkg/types"
)

// Thresholds that map a score to a momentum tier.
const (
	// ThresholdRising is exclusive: a score of exactly 70 is Popular.
	ThresholdRising = 70
	// ThresholdPopular is inclusive: a score of exactly 40 is Popular.
	ThresholdPopular = 40
)

// Score bounds. Provider values are already normalised to this range.
const (
	MinScore = 0
	MaxScore = 100
)

// Aggregate reduces a keyword's series to a single integer score: the
// arithmetic mean, rounded to the nearest integer with ties going to the even
// neighbour. An empty or nil series scores 0.
func Aggregate(series []float64) int {
	if len(series) == 0 {
		return MinScore
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))
	return clampScore(int(math.RoundToEven(mean)))
}

// Momentum returns the display label for score.
func Momentum(score int) string {
	switch {
	case score > ThresholdRising:
		return types.MomentumRising
	case score >= ThresholdPopular:
		return types.MomentumPopular
	default:
		return types.MomentumNiche
	}
}

// Score builds a ScoredRecord for name from its raw series.
func Score(name string, series []float64) types.ScoredRecord {
	return types.ScoredRecord{Name: name, TrendScore: Aggregate(series)}
}

// clampScore restricts v to [MinScore, MaxScore].
func clampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
