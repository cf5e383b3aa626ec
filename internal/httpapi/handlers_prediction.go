package httpapi

import (
	"net/http"

	domain "github.com/agentcommerce/acp-core/internal/domain/prediction"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

type recordPredictionRequest struct {
	AgentID     string  `json:"agentId"`
	MarketSlug  string  `json:"marketSlug"`
	Probability float64 `json:"probability"`
	Rationale   string  `json:"rationale"`
}

func (s *Server) recordPrediction(w http.ResponseWriter, r *http.Request) {
	var req recordPredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	p, err := s.deps.Predictions.Record(r.Context(), domain.Prediction{
		AgentID:     req.AgentID,
		MarketSlug:  req.MarketSlug,
		Probability: req.Probability,
		Rationale:   req.Rationale,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type resolvePredictionRequest struct {
	Outcome int `json:"outcome"`
}

func (s *Server) resolvePrediction(w http.ResponseWriter, r *http.Request) {
	var req resolvePredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	p, err := s.deps.Predictions.Resolve(r.Context(), idParam(r, "predictionID"), req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Predictions.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPredictionsByAgent(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Predictions.ListByAgent(r.Context(), idParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
