package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

type submitTaskRequest struct {
	Type     string        `json:"type"`
	Priority int           `json:"priority"`
	Payload  interface{}   `json:"payload,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	task := s.deps.Orchestrator.SubmitTask(domain.Task{
		Type:     req.Type,
		Priority: req.Priority,
		Payload:  req.Payload,
		Timeout:  req.Timeout,
	})
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.TaskQueue.Get(idParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskAgentRequest struct {
	AgentID string `json:"agentId"`
	Reason  string `json:"reason,omitempty"`
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	var req taskAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	if err := s.deps.Orchestrator.CompleteTask(idParam(r, "taskID"), req.AgentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) failTask(w http.ResponseWriter, r *http.Request) {
	var req taskAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	if err := s.deps.Orchestrator.FailTask(idParam(r, "taskID"), req.AgentID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.TaskQueue.Cancel(idParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerWorkerRequest struct {
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func (s *Server) registerWorker(w http.ResponseWriter, r *http.Request) {
	var req registerWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	a := s.deps.AgentRegistry.Register(domain.Agent{
		ID:           uuid.NewString(),
		Type:         req.Type,
		Capabilities: req.Capabilities,
	})
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) workerHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.AgentRegistry.Heartbeat(idParam(r, "workerID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.AgentRegistry.List())
}
