// Package discovery implements the Discovery & Negotiation engine
// (spec.md §4.6): five weighted subscores per candidate service, a
// deterministic qualitative "reasons" list, and auto-negotiation.
package discovery

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	domain "github.com/agentcommerce/acp-core/internal/domain/agent"
	"github.com/agentcommerce/acp-core/internal/logger"
)

// Source is the subset of the Persistence Gateway discovery reads from.
type Source interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}

// Request is a discovery query, per spec.md §4.6.
type Request struct {
	Need                  string
	Categories            []domain.Category
	RequiredCapabilities  []string
	PreferredCapabilities []string
	MaxPrice              *float64
	MinRating             float64
	Deadline              *time.Time
	Buyer                 string
}

// Scores holds a candidate's five subscores, each in [0, 100].
type Scores struct {
	Relevance    float64
	Reputation   float64
	Price        float64
	Availability float64
	Experience   float64
}

// Match is one scored (agent, service) candidate.
type Match struct {
	Agent   domain.Agent
	Service domain.Service
	Scores  Scores
	Score   float64
	Reasons []string
}

// Weights are the weighted-sum coefficients (sum 1.0), overridable via
// internal/config.DiscoveryConfig.
type Weights struct {
	Relevance    float64
	Reputation   float64
	Price        float64
	Availability float64
	Experience   float64
}

// DefaultWeights mirrors spec.md §4.6's literal weights.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.35, Reputation: 0.25, Price: 0.20, Availability: 0.10, Experience: 0.10}
}

// Engine is the Discovery & Negotiation service.
type Engine struct {
	source  Source
	weights Weights
	log     *logger.Logger
}

// New constructs an Engine.
func New(source Source, weights Weights, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("discovery")
	}
	return &Engine{source: source, weights: weights, log: log}
}

// Search scores every eligible (agent, service) pair against req and
// returns matches sorted descending by score.
func (e *Engine) Search(ctx context.Context, req Request) ([]Match, error) {
	agents, err := e.source.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	services, err := e.source.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	agentsByID := make(map[string]domain.Agent, len(agents))
	for _, a := range agents {
		agentsByID[a.ID] = a
	}

	var matches []Match
	for _, svc := range services {
		a, ok := agentsByID[svc.AgentID]
		if !ok || a.Status != domain.StatusActive {
			continue
		}
		if !canFulfill(svc, req) {
			continue
		}

		scores := score(a, svc, req)
		final := e.weights.Relevance*scores.Relevance +
			e.weights.Reputation*scores.Reputation +
			e.weights.Price*scores.Price +
			e.weights.Availability*scores.Availability +
			e.weights.Experience*scores.Experience

		matches = append(matches, Match{
			Agent:   a,
			Service: svc,
			Scores:  scores,
			Score:   final,
			Reasons: reasons(scores),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

func canFulfill(svc domain.Service, req Request) bool {
	if !svc.Enabled {
		return false
	}
	if len(req.Categories) > 0 {
		found := false
		for _, c := range req.Categories {
			if svc.Capability.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func score(a domain.Agent, svc domain.Service, req Request) Scores {
	return Scores{
		Relevance:    relevanceScore(svc, req),
		Reputation:   reputationScore(a.Reputation),
		Price:        priceScore(svc, req),
		Availability: availabilityScore(svc),
		Experience:   experienceScore(a.Reputation),
	}
}

func relevanceScore(svc domain.Service, req Request) float64 {
	score := 0.0
	if len(req.Categories) > 0 {
		for _, c := range req.Categories {
			if svc.Capability.Category == c {
				score += 30
				break
			}
		}
	}

	haystack := strings.ToLower(svc.Capability.Name + " " + svc.Capability.Description)

	if len(req.RequiredCapabilities) > 0 {
		present := 0
		for _, c := range req.RequiredCapabilities {
			if strings.Contains(haystack, strings.ToLower(c)) {
				present++
			}
		}
		score += 40 * float64(present) / float64(len(req.RequiredCapabilities))
	}

	if len(req.PreferredCapabilities) > 0 {
		present := 0
		for _, c := range req.PreferredCapabilities {
			if strings.Contains(haystack, strings.ToLower(c)) {
				present++
			}
		}
		score += 20 * float64(present) / float64(len(req.PreferredCapabilities))
	}

	if req.Need != "" {
		needWords := significantWords(req.Need)
		capWords := significantWords(svc.Capability.Name + " " + svc.Capability.Description)
		if len(needWords) > 0 {
			overlap := 0
			for w := range needWords {
				if capWords[w] {
					overlap++
				}
			}
			score += 10 * float64(overlap) / float64(len(needWords))
		}
	}

	return clamp(score, 0, 100)
}

func significantWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}

func reputationScore(r domain.Reputation) float64 {
	score := 50*(r.AverageRating/5) +
		math.Min(30, 10*math.Log10(float64(r.TotalTransactions)+1)) +
		15*r.SuccessRate() -
		20*r.DisputeRate()
	return clamp(score, 0, 100)
}

func priceScore(svc domain.Service, req Request) float64 {
	if req.MaxPrice == nil {
		return 50
	}
	price, err := strconv.ParseFloat(svc.Pricing.Amount, 64)
	if err != nil {
		return 50
	}
	budget := *req.MaxPrice
	if price > budget {
		return 0
	}
	if budget == 0 {
		return 50
	}
	return clamp(50+50*(budget-price)/budget, 0, 100)
}

func availabilityScore(svc domain.Service) float64 {
	if !svc.Enabled {
		return 0
	}
	if svc.SLA == nil {
		return 50
	}
	availPct := svc.SLA.AvailabilityPercent
	if availPct == 0 {
		availPct = 90
	}
	score := 50 + 2*(availPct-90)

	switch {
	case svc.SLA.MaxResponseTimeMs > 0 && svc.SLA.MaxResponseTimeMs <= 1000:
		score += 20
	case svc.SLA.MaxResponseTimeMs > 0:
		score += 10
	}
	return clamp(score, 0, 100)
}

func experienceScore(r domain.Reputation) float64 {
	return math.Min(100, 25*math.Log10(float64(r.TotalTransactions)+1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func reasons(s Scores) []string {
	var out []string
	if s.Relevance >= 70 {
		out = append(out, "Highly relevant")
	}
	if s.Reputation >= 80 {
		out = append(out, "Excellent reputation")
	}
	if s.Price >= 80 {
		out = append(out, "Great value for price")
	}
	if s.Experience >= 60 {
		out = append(out, "Experienced provider")
	}
	if s.Availability >= 80 {
		out = append(out, "High availability SLA")
	}
	return out
}
