// Package agent holds the Agent, Service Listing, Rating, and Reputation
// data model shared by the Agent Registry and Discovery components.
package agent

import "time"

// Status is an Agent's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Category classifies a Capability / Service Listing.
type Category string

const (
	CategoryCompute    Category = "compute"
	CategoryData       Category = "data"
	CategoryAnalytics  Category = "analytics"
	CategoryTrading    Category = "trading"
	CategoryContent    Category = "content"
	CategoryResearch   Category = "research"
	CategoryAutomation Category = "automation"
	CategoryOther      Category = "other"
)

// PricingModel classifies how a Service Listing charges.
type PricingModel string

const (
	PricingPerRequest PricingModel = "per_request"
	PricingPerMinute  PricingModel = "per_minute"
	PricingPerToken   PricingModel = "per_token"
	PricingFlat       PricingModel = "flat"
	PricingCustom     PricingModel = "custom"
)

// Reputation is the additive, monotone aggregate described in spec.md §3.
// Updates flow exclusively through RecordTransaction and RollingRating.
type Reputation struct {
	TotalTransactions      int     `json:"totalTransactions"`
	SuccessfulTransactions int     `json:"successfulTransactions"`
	AverageRating          float64 `json:"averageRating"`
	TotalRatings           int     `json:"totalRatings"`
	ResponseTimeAvgMs      float64 `json:"responseTimeAvgMs"`
}

// DisputeRate is (total-successful)/total, or 0 when there have been no
// transactions yet.
func (r Reputation) DisputeRate() float64 {
	if r.TotalTransactions == 0 {
		return 0
	}
	return float64(r.TotalTransactions-r.SuccessfulTransactions) / float64(r.TotalTransactions)
}

// SuccessRate is successful/total, or 0 when there have been no
// transactions yet.
func (r Reputation) SuccessRate() float64 {
	if r.TotalTransactions == 0 {
		return 0
	}
	return float64(r.SuccessfulTransactions) / float64(r.TotalTransactions)
}

// Capability is a declared or offered skill.
type Capability struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Agent is the identity record for a participant in the protocol.
type Agent struct {
	ID           string       `json:"id"`
	Address      string       `json:"address"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities []Capability `json:"capabilities"`
	Status       Status       `json:"status"`
	Reputation   Reputation   `json:"reputation"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// SLA is an optional service-level commitment attached to a listing.
type SLA struct {
	AvailabilityPercent float64 `json:"availabilityPercent,omitempty"`
	MaxResponseTimeMs   int     `json:"maxResponseTimeMs,omitempty"`
	MaxThroughput       int     `json:"maxThroughput,omitempty"`
}

// Pricing describes how a Service Listing charges.
type Pricing struct {
	Model    PricingModel `json:"model"`
	Amount   string       `json:"amount"` // decimal string, minor units
	Currency string       `json:"currency"`
}

// Service is a priced, categorized capability offered by an Agent.
type Service struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agentId"`
	Capability  Capability  `json:"capability"`
	Pricing     Pricing     `json:"pricing"`
	SLA         *SLA        `json:"sla,omitempty"`
	Enabled     bool        `json:"enabled"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Rating is a buyer-submitted review of a Service.
type Rating struct {
	ID            string    `json:"id"`
	ServiceID     string    `json:"serviceId"`
	RaterAddress  string    `json:"raterAddress"`
	Rating        int       `json:"rating"`
	Review        string    `json:"review,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SearchFilters narrows searchServices/searchAgents (spec.md §4.3).
type SearchFilters struct {
	Category   Category
	Capability string
	MaxPrice   string
	MinRating  float64
	Query      string
}
