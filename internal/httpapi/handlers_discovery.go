package httpapi

import (
	"net/http"
	"time"

	domainagreement "github.com/agentcommerce/acp-core/internal/domain/agreement"
	"github.com/agentcommerce/acp-core/internal/discovery"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

func (s *Server) discoverySearch(w http.ResponseWriter, r *http.Request) {
	var req discovery.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	matches, err := s.deps.Discovery.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

type negotiateRequest struct {
	Buyer            string                 `json:"buyer"`
	Match            discovery.Match        `json:"match"`
	ProposedPrice    *float64               `json:"proposedPrice,omitempty"`
	ProposedDeadline *time.Time             `json:"proposedDeadline,omitempty"`
	CustomTerms      []domainagreement.Term `json:"customTerms,omitempty"`
}

func (s *Server) discoveryNegotiate(w http.ResponseWriter, r *http.Request) {
	var req negotiateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	result, err := s.deps.Discovery.Negotiate(r.Context(), s.deps.Agreements, req.Buyer, req.Match, req.ProposedPrice, req.ProposedDeadline, req.CustomTerms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
