package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcommerce/acp-core/internal/agreement"
	"github.com/agentcommerce/acp-core/internal/discovery"
	"github.com/agentcommerce/acp-core/internal/escrow"
	"github.com/agentcommerce/acp-core/internal/orchestration"
	"github.com/agentcommerce/acp-core/internal/prediction"
	"github.com/agentcommerce/acp-core/internal/registry"
	"github.com/agentcommerce/acp-core/internal/storage"
	"github.com/agentcommerce/acp-core/internal/vault"
)

func newTestDeps(jwtSecret string) Deps {
	store := storage.NewMemoryStore()
	v := vault.New(store, "test-secret", nil)
	chain := escrow.NewMemoryChain()
	agentRegistry := orchestration.NewAgentRegistry(0, nil)
	taskQueue := orchestration.NewTaskQueue(2, 0, nil)
	bus := orchestration.NewMessageBus(nil)

	return Deps{
		Registry:      registry.New(store, nil),
		Agreements:    agreement.New(store, nil),
		Escrow:        escrow.New(store, v, chain, nil, nil),
		Discovery:     discovery.New(store, discovery.Weights{Relevance: 1, Reputation: 1, Price: 1, Availability: 1, Experience: 1}, nil),
		Orchestrator:  orchestration.NewOrchestrator(agentRegistry, taskQueue, bus, "", nil),
		AgentRegistry: agentRegistry,
		TaskQueue:     taskQueue,
		MessageBus:    bus,
		Predictions:   prediction.New(store, nil),

		JWTSecret:       jwtSecret,
		RateLimitPerMin: 6000,
	}
}

func TestNewServerBuildsRoutesWithoutPanicking(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	require.Equal(t, "http", srv.Name())
	require.NotNil(t, srv.router)
}

func TestHealthzAlwaysOk(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsServesPrometheusFormat(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRoutesRejectMissingBearerTokenWhenSecretConfigured(t *testing.T) {
	srv := NewServer(newTestDeps("shh"), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search/agents", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRoutesAllowAnyRequestWhenSecretEmpty(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search/agents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
