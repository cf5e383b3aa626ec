package httpapi

import (
	"net/http"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

func (s *Server) createEscrow(w http.ResponseWriter, r *http.Request) {
	var e domain.Escrow
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	created, err := s.deps.Escrow.Create(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getEscrow(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Escrow.Get(r.Context(), idParam(r, "escrowID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type escrowActionRequest struct {
	Authorizer string `json:"authorizer"`
}

func (s *Server) fundEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	e, err := s.deps.Escrow.Fund(r.Context(), idParam(r, "escrowID"), req.Authorizer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) releaseEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	e, err := s.deps.Escrow.Release(r.Context(), idParam(r, "escrowID"), req.Authorizer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) refundEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	e, err := s.deps.Escrow.Refund(r.Context(), idParam(r, "escrowID"), req.Authorizer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) disputeEscrow(w http.ResponseWriter, r *http.Request) {
	var req escrowActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	e, err := s.deps.Escrow.Dispute(r.Context(), idParam(r, "escrowID"), req.Authorizer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type resolveDisputeRequest struct {
	Authorizer string `json:"authorizer"`
	ReleaseTo  string `json:"releaseTo"`
}

func (s *Server) resolveDisputeEscrow(w http.ResponseWriter, r *http.Request) {
	var req resolveDisputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}
	e, err := s.deps.Escrow.ResolveDispute(r.Context(), idParam(r, "escrowID"), req.Authorizer, req.ReleaseTo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) listEscrowsByParty(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Escrow.ListByParty(r.Context(), idParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
