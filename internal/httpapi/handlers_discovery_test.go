package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainagent "github.com/agentcommerce/acp-core/internal/domain/agent"
	"github.com/agentcommerce/acp-core/internal/discovery"
)

func TestDiscoverySearchFindsRegisteredService(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/agents", registerAgentRequest{Address: "seller1", Name: "data vendor"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var a domainagent.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/agents/"+a.ID+"/services", listServiceRequest{
		Capability: domainagent.Capability{Category: domainagent.CategoryData, Name: "feed"},
		Pricing:    domainagent.Pricing{Model: domainagent.PricingPerRequest, Amount: "100", Currency: "USDC"},
		Enabled:    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/discovery/search", discovery.Request{
		RequiredCapabilities: []string{"feed"},
		Buyer:                "buyer1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []discovery.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
}

func TestDiscoveryNegotiateAcceptsAtListedPrice(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/agents", registerAgentRequest{Address: "seller1", Name: "data vendor"})
	var a domainagent.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/agents/"+a.ID+"/services", listServiceRequest{
		Capability: domainagent.Capability{Category: domainagent.CategoryData, Name: "feed"},
		Pricing:    domainagent.Pricing{Model: domainagent.PricingPerRequest, Amount: "100", Currency: "USDC"},
		Enabled:    true,
	})
	var svc domainagent.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))

	deadline := time.Now().UTC().Add(48 * time.Hour)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/discovery/negotiate", negotiateRequest{
		Buyer:            "buyer1",
		Match:            discovery.Match{Agent: a, Service: svc},
		ProposedDeadline: &deadline,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var result discovery.NegotiationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Accepted)
	require.NotNil(t, result.Agreement)
}
