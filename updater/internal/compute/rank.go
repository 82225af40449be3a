package compute

import (
	"sort"

	"github.com/trendrank/trendrank/pkg/types"
)

// DefaultTopN is the number of records kept in the published artifact.
const DefaultTopN = 5

// Rank sorts records by TrendScore (highest first), keeps the first n and
// attaches momentum labels. The sort is stable, so records with equal scores
// keep the order they arrived in. A non-positive n means DefaultTopN.
//
// records is not modified.
func Rank(records []types.ScoredRecord, n int) []types.RankedRecord {
	if n <= 0 {
		n = DefaultTopN
	}

	sorted := make([]types.ScoredRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrendScore > sorted[j].TrendScore
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]types.RankedRecord, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, types.RankedRecord{
			Name:       r.Name,
			TrendScore: r.TrendScore,
			Momentum:   Momentum(r.TrendScore),
		})
	}
	return out
}
