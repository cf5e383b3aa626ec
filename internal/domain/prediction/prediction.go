// Package prediction holds the Brier-scored Prediction Ledger data model
// (spec.md §4.8).
package prediction

import "time"

// Prediction is one agent's forecast on a market.
type Prediction struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agentId"`
	MarketSlug  string     `json:"marketSlug"`
	Probability float64    `json:"probability"`
	Rationale   string     `json:"rationale"`
	Resolved    bool       `json:"resolved"`
	Outcome     *int       `json:"outcome,omitempty"`
	Brier       *float64   `json:"brier,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// Stats is an agent's rolled-up forecasting record.
type Stats struct {
	AgentID       string  `json:"agentId"`
	Resolved      int     `json:"resolved"`
	Correct       int     `json:"correct"`
	BrierScore    float64 `json:"brierScore"`
	Accuracy      float64 `json:"accuracy"`
	StreakCurrent int     `json:"streakCurrent"`
	StreakBest    int     `json:"streakBest"`
}
