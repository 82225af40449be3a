package types

// Momentum labels written to the artifact. The display matches on these exact
// strings, emoji included.
const (
	MomentumRising  = "🔥 Rising"
	MomentumPopular = "💎 Popular"
	MomentumNiche   = "✨ Niche"
)

// ScoredRecord is one keyword with its aggregated trend score (0–100).
type ScoredRecord struct {
	Name       string `json:"name"`
	TrendScore int    `json:"trendScore"`
}

// RankedRecord is a ScoredRecord with its momentum label attached.
type RankedRecord struct {
	Name       string `json:"name"`
	TrendScore int    `json:"trendScore"`
	Momentum   string `json:"momentum"`
}

// Window describes the provider query window.
type Window struct {
	// Timeframe is the provider's window expression, e.g. "now 7-d".
	Timeframe string
	// Region is the geo code, e.g. "IN".
	Region string
}
