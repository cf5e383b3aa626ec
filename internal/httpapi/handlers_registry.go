package httpapi

import (
	"net/http"

	domain "github.com/agentcommerce/acp-core/internal/domain/agent"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

type registerAgentRequest struct {
	Address      string               `json:"address"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Capabilities []domain.Capability  `json:"capabilities"`
}

func (s *Server) registerAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	a, err := s.deps.Registry.Register(r.Context(), domain.Agent{
		Address:      req.Address,
		Name:         req.Name,
		Description:  req.Description,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Registry.GetAgent(r.Context(), idParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) unregisterAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Registry.Unregister(r.Context(), idParam(r, "agentID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listServiceRequest struct {
	Capability domain.Capability `json:"capability"`
	Pricing    domain.Pricing    `json:"pricing"`
	SLA        *domain.SLA       `json:"sla,omitempty"`
	Enabled    bool              `json:"enabled"`
}

func (s *Server) listService(w http.ResponseWriter, r *http.Request) {
	var req listServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	svc, err := s.deps.Registry.ListService(r.Context(), idParam(r, "agentID"), domain.Service{
		Capability: req.Capability,
		Pricing:    req.Pricing,
		SLA:        req.SLA,
		Enabled:    req.Enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

type rateServiceRequest struct {
	Rater  string `json:"rater"`
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty"`
}

func (s *Server) rateService(w http.ResponseWriter, r *http.Request) {
	var req rateServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	rating, err := s.deps.Registry.RateService(r.Context(), idParam(r, "serviceID"), req.Rater, req.Rating, req.Review)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

type recordTransactionRequest struct {
	Success        bool     `json:"success"`
	ResponseTimeMs *float64 `json:"responseTimeMs,omitempty"`
}

func (s *Server) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	if err := s.deps.Registry.RecordTransaction(r.Context(), idParam(r, "agentID"), req.Success, req.ResponseTimeMs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchServices(w http.ResponseWriter, r *http.Request) {
	filters := searchFiltersFromQuery(r)
	out, err := s.deps.Registry.SearchServices(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) searchAgents(w http.ResponseWriter, r *http.Request) {
	filters := searchFiltersFromQuery(r)
	out, err := s.deps.Registry.SearchAgents(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func searchFiltersFromQuery(r *http.Request) domain.SearchFilters {
	q := r.URL.Query()
	var minRating float64
	if v := q.Get("minRating"); v != "" {
		minRating = parseFloatOrZero(v)
	}
	return domain.SearchFilters{
		Category:   domain.Category(q.Get("category")),
		Capability: q.Get("capability"),
		MaxPrice:   q.Get("maxPrice"),
		MinRating:  minRating,
		Query:      q.Get("q"),
	}
}
