package httpapi

import (
	"crypto/ed25519"
	"net/http"

	"github.com/mr-tron/base58"

	agreementsvc "github.com/agentcommerce/acp-core/internal/agreement"
	domain "github.com/agentcommerce/acp-core/internal/domain/agreement"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

func (s *Server) draftAgreement(w http.ResponseWriter, r *http.Request) {
	var a domain.Agreement
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	drafted, err := s.deps.Agreements.Draft(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, drafted)
}

func (s *Server) getAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agreements.Get(r.Context(), idParam(r, "agreementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type signAgreementRequest struct {
	SignerAddress string `json:"signerAddress"`
	PrivateKey    string `json:"privateKey"` // base58-encoded ed25519 private key
}

func (s *Server) signAgreement(w http.ResponseWriter, r *http.Request) {
	var req signAgreementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	raw, err := base58.Decode(req.PrivateKey)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		writeError(w, acperrors.Validation("privateKey", "invalid base58 ed25519 private key"))
		return
	}

	signed, err := s.deps.Agreements.Sign(r.Context(), idParam(r, "agreementID"), ed25519.PrivateKey(raw), req.SignerAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (s *Server) completeTerm(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agreements.CompleteTerm(r.Context(), idParam(r, "agreementID"), idParam(r, "termID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type amendAgreementRequest struct {
	Signer      string          `json:"signer"`
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Terms       []domain.Term   `json:"terms,omitempty"`
	TotalValue  *float64        `json:"totalValue,omitempty"`
}

func (s *Server) amendAgreement(w http.ResponseWriter, r *http.Request) {
	var req amendAgreementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	amended, err := s.deps.Agreements.Amend(r.Context(), idParam(r, "agreementID"), func(a *domain.Agreement) {
		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.Terms != nil {
			a.Terms = req.Terms
		}
		if req.TotalValue != nil {
			a.TotalValue = req.TotalValue
		}
	}, req.Signer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, amended)
}

func (s *Server) exportAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agreements.Get(r.Context(), idParam(r, "agreementID"))
	if err != nil {
		writeError(w, err)
		return
	}

	encoded, err := agreementsvc.Export(a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"envelope": encoded})
}

type importAgreementRequest struct {
	Envelope string `json:"envelope"`
}

func (s *Server) importAgreement(w http.ResponseWriter, r *http.Request) {
	var req importAgreementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, acperrors.Validation("body", "malformed JSON"))
		return
	}

	a, err := agreementsvc.Import(req.Envelope)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.deps.Agreements.Restore(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
