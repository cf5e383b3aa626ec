package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
)

func TestRegisterWorkerAssignsIDAndDefaultsIdle(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/workers", registerWorkerRequest{
		Type:         "crawler",
		Capabilities: []string{"fetch"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var a domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	require.NotEmpty(t, a.ID)
	require.Equal(t, domain.AgentIdle, a.Status)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/workers/"+a.ID+"/heartbeat", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/workers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var workers []domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 1)
}

func TestSubmitTaskThenGetAndCancel(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/workers", registerWorkerRequest{Type: "crawler"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var worker domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &worker))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks", submitTaskRequest{Type: "crawl", Priority: 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks/"+task.ID+"/cancel", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCancelUnknownTaskReturnsNotFound(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks/does-not-exist/cancel", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
