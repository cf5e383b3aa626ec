package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/agent"
	domainagreement "github.com/agentcommerce/acp-core/internal/domain/agreement"
)

type fakeSource struct {
	agents   []domain.Agent
	services []domain.Service
}

func (f fakeSource) ListAgents(context.Context) ([]domain.Agent, error)     { return f.agents, nil }
func (f fakeSource) ListServices(context.Context) ([]domain.Service, error) { return f.services, nil }

func seedSource() fakeSource {
	agent := domain.Agent{
		ID:      "agent-1",
		Address: "9yL...",
		Status:  domain.StatusActive,
		Reputation: domain.Reputation{
			TotalTransactions:      50,
			SuccessfulTransactions: 48,
			AverageRating:          4.8,
			TotalRatings:           20,
		},
	}
	svc := domain.Service{
		ID:      "svc-1",
		AgentID: "agent-1",
		Capability: domain.Capability{
			Category:    domain.CategoryData,
			Name:        "bitcoin price feed",
			Description: "real-time bitcoin price data",
		},
		Pricing: domain.Pricing{Model: domain.PricingPerRequest, Amount: "1000000", Currency: "SOL"},
		Enabled: true,
	}
	return fakeSource{agents: []domain.Agent{agent}, services: []domain.Service{svc}}
}

func TestSearchRanksMatchingServiceHighly(t *testing.T) {
	src := seedSource()
	eng := New(src, DefaultWeights(), nil)

	budget := 2_000_000.0
	matches, err := eng.Search(context.Background(), Request{
		Need:       "bitcoin price",
		Categories: []domain.Category{domain.CategoryData},
		MaxPrice:   &budget,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.GreaterOrEqual(t, matches[0].Score, 50.0)
}

func TestSearchExcludesDisabledServices(t *testing.T) {
	src := seedSource()
	src.services[0].Enabled = false
	eng := New(src, DefaultWeights(), nil)

	matches, err := eng.Search(context.Background(), Request{})
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestSearchExcludesInactiveAgents(t *testing.T) {
	src := seedSource()
	src.agents[0].Status = domain.StatusSuspended
	eng := New(src, DefaultWeights(), nil)

	matches, err := eng.Search(context.Background(), Request{})
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestPriceScoreZeroWhenOverBudget(t *testing.T) {
	svc := domain.Service{Pricing: domain.Pricing{Amount: "100"}}
	budget := 50.0
	require.Equal(t, 0.0, priceScore(svc, Request{MaxPrice: &budget}))
}

func TestPriceScoreNeutralWithoutBudget(t *testing.T) {
	svc := domain.Service{Pricing: domain.Pricing{Amount: "100"}}
	require.Equal(t, 50.0, priceScore(svc, Request{}))
}

type fakeDrafter struct {
	drafted domainagreement.Agreement
}

func (f *fakeDrafter) Draft(_ context.Context, a domainagreement.Agreement) (domainagreement.Agreement, error) {
	f.drafted = a
	return a, nil
}

func TestNegotiateAcceptsPriceAtOrAboveListing(t *testing.T) {
	eng := New(seedSource(), DefaultWeights(), nil)
	matches, err := eng.Search(context.Background(), Request{})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	drafter := &fakeDrafter{}
	price := 1_200_000.0
	result, err := eng.Negotiate(context.Background(), drafter, "buyer-addr", matches[0], &price, nil, nil)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.NotNil(t, result.Agreement)
	require.Len(t, result.Agreement.Parties, 2)
}

func TestNegotiateRejectsPriceBelowListing(t *testing.T) {
	eng := New(seedSource(), DefaultWeights(), nil)
	matches, err := eng.Search(context.Background(), Request{})
	require.NoError(t, err)

	drafter := &fakeDrafter{}
	price := 500.0
	result, err := eng.Negotiate(context.Background(), drafter, "buyer-addr", matches[0], &price, nil, nil)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.NotNil(t, result.CounterOffer)
	require.Equal(t, 1_000_000.0, result.CounterOffer.Price)
}

func TestNegotiateRejectsTooSoonDeadline(t *testing.T) {
	eng := New(seedSource(), DefaultWeights(), nil)
	matches, err := eng.Search(context.Background(), Request{})
	require.NoError(t, err)

	drafter := &fakeDrafter{}
	soon := time.Now().UTC().Add(time.Hour)
	result, err := eng.Negotiate(context.Background(), drafter, "buyer-addr", matches[0], nil, &soon, nil)
	require.NoError(t, err)
	require.False(t, result.Accepted)
}
