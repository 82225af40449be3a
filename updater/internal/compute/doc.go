// Package compute turns raw provider series into scores and ranks them.
//
// score.go provides the pure Aggregate(series) function (mean of the series,
// rounded, clamped to 0–100) and Momentum(score), which maps a score onto the
// three display tiers:
//
//	score > 70        → Rising
//	40 ≤ score ≤ 70   → Popular
//	score < 40        → Niche
//
// rank.go provides Rank, a stable descending sort that keeps the top N and
// attaches the momentum label. Equal scores keep their input order.
package compute
