package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/agent"
)

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(buf))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, r)
	return rec
}

func TestRegisterAgentThenGetAgentRoundTrips(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/agents", registerAgentRequest{
		Address: "buyer1",
		Name:    "demo agent",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, domain.StatusActive, created.Status)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/agents/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUnknownAgentReturnsNotFound(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/agents/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAgentRejectsMalformedBody(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/agents", bytes.NewReader([]byte(`{"address":`)))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListServiceAndSearchServices(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/agents", registerAgentRequest{Address: "seller1", Name: "data vendor"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var a domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/agents/"+a.ID+"/services", listServiceRequest{
		Capability: domain.Capability{Category: domain.CategoryData, Name: "feed"},
		Pricing:    domain.Pricing{Model: domain.PricingPerRequest, Amount: "100", Currency: "USDC"},
		Enabled:    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/search/services?category=data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var services []domain.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 1)
}

func TestRateServiceRequiresValidRating(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/agents", registerAgentRequest{Address: "seller2", Name: "vendor"})
	var a domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/agents/"+a.ID+"/services", listServiceRequest{
		Capability: domain.Capability{Category: domain.CategoryData, Name: "feed"},
		Pricing:    domain.Pricing{Model: domain.PricingFlat, Amount: "50", Currency: "USDC"},
		Enabled:    true,
	})
	var svc domain.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/services/"+svc.ID+"/ratings", rateServiceRequest{
		Rater: "buyer9", Rating: 6,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/services/"+svc.ID+"/ratings", rateServiceRequest{
		Rater: "buyer9", Rating: 5, Review: "great",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}
