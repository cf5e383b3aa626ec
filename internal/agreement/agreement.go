// Package agreement implements the Agreement Store (spec.md §4.4): canonical
// hashing, detached-signature verification, amendment chains, and
// import/export.
package agreement

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/agreement"
	acpcrypto "github.com/agentcommerce/acp-core/internal/crypto"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/storage"
)

// Store is the Agreement Store service.
type Store struct {
	gateway storage.AgreementStore
	log     *logger.Logger
}

// New constructs an Agreement Store service.
func New(gateway storage.AgreementStore, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("agreement")
	}
	return &Store{gateway: gateway, log: log}
}

// Draft creates a new, unsigned Agreement at version 1 and computes its
// canonical hash.
func (s *Store) Draft(ctx context.Context, a domain.Agreement) (domain.Agreement, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Version = 1
	a.PreviousVersionHash = ""
	a.Status = domain.StatusDraft
	for i := range a.Parties {
		a.Parties[i].Signature = nil
		a.Parties[i].SignedAt = nil
	}

	hash, err := acpcrypto.HashAgreement(a)
	if err != nil {
		return domain.Agreement{}, acperrors.Wrap(acperrors.CodeIntegrity, "hash agreement", err)
	}
	a.Hash = hash

	if err := s.gateway.SaveAgreement(ctx, a); err != nil {
		return domain.Agreement{}, acperrors.Store("save agreement", err)
	}
	return a, nil
}

// Sign has signerAddress sign agreementID using priv. On first signature
// status transitions draft->proposed; when every party has signed,
// proposed->signed (spec.md §4.4).
func (s *Store) Sign(ctx context.Context, agreementID string, priv ed25519.PrivateKey, signerAddress string) (domain.Agreement, error) {
	a, ok, err := s.gateway.GetAgreement(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, acperrors.Store("get agreement", err)
	}
	if !ok {
		return domain.Agreement{}, acperrors.NotFound("agreement", agreementID)
	}

	idx := -1
	for i, p := range a.Parties {
		if p.Address == signerAddress {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Agreement{}, acperrors.Unauthorized("signer is not a party to this agreement")
	}

	now := time.Now().UTC()
	sig, err := acpcrypto.SignParty(priv, a.ID, a.Hash, signerAddress, now.UnixMilli())
	if err != nil {
		return domain.Agreement{}, err
	}
	a.Parties[idx].Signature = &sig
	a.Parties[idx].SignedAt = &now

	allSigned := true
	for _, p := range a.Parties {
		if p.Signature == nil {
			allSigned = false
			break
		}
	}

	switch {
	case allSigned:
		a.Status = domain.StatusSigned
	case a.Status == domain.StatusDraft:
		a.Status = domain.StatusProposed
	}
	a.UpdatedAt = now

	if err := s.gateway.SaveAgreement(ctx, a); err != nil {
		return domain.Agreement{}, acperrors.Store("save agreement", err)
	}
	return a, nil
}

// Verify re-serializes the signature payload and checks the three
// conditions named in spec.md §4.4.
func Verify(a domain.Agreement, partyAddress string, pub ed25519.PublicKey) bool {
	for _, p := range a.Parties {
		if p.Address != partyAddress {
			continue
		}
		if p.Signature == nil {
			return false
		}
		return acpcrypto.VerifyParty(pub, a.ID, a.Hash, *p.Signature)
	}
	return false
}

// UpdateStatus handles the explicit transitions named in spec.md §4.4
// (executed, completed, cancelled, disputed).
func (s *Store) UpdateStatus(ctx context.Context, agreementID string, status domain.Status) error {
	if err := s.gateway.UpdateAgreementStatus(ctx, agreementID, status); err != nil {
		return acperrors.Store("update agreement status", err)
	}
	return nil
}

// CompleteTerm flips a term's completion flag; if every term is then
// complete, status auto-transitions to completed (spec.md §4.4).
func (s *Store) CompleteTerm(ctx context.Context, agreementID, termID string) (domain.Agreement, error) {
	a, ok, err := s.gateway.GetAgreement(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, acperrors.Store("get agreement", err)
	}
	if !ok {
		return domain.Agreement{}, acperrors.NotFound("agreement", agreementID)
	}

	found := false
	allComplete := true
	for i, t := range a.Terms {
		if t.ID == termID {
			a.Terms[i].Completed = true
			found = true
		}
		if !a.Terms[i].Completed {
			allComplete = false
		}
	}
	if !found {
		return domain.Agreement{}, acperrors.NotFound("term", termID)
	}

	if allComplete {
		a.Status = domain.StatusCompleted
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.gateway.SaveAgreement(ctx, a); err != nil {
		return domain.Agreement{}, acperrors.Store("save agreement", err)
	}
	return a, nil
}

// Amend creates a new version of the agreement: version+1,
// previousVersionHash = original.hash, signatures cleared, hash recomputed.
// signer must be an existing party (spec.md §4.4).
func (s *Store) Amend(ctx context.Context, originalID string, changes func(*domain.Agreement), signer string) (domain.Agreement, error) {
	original, ok, err := s.gateway.GetAgreement(ctx, originalID)
	if err != nil {
		return domain.Agreement{}, acperrors.Store("get agreement", err)
	}
	if !ok {
		return domain.Agreement{}, acperrors.NotFound("agreement", originalID)
	}

	isParty := false
	for _, p := range original.Parties {
		if p.Address == signer {
			isParty = true
			break
		}
	}
	if !isParty {
		return domain.Agreement{}, acperrors.Unauthorized("amendment signer is not a party to this agreement")
	}

	amended := original
	amended.ID = uuid.NewString()
	amended.Version = original.Version + 1
	amended.PreviousVersionHash = original.Hash
	amended.Parties = clonePartiesWithoutSignatures(original.Parties)
	amended.Status = domain.StatusDraft
	now := time.Now().UTC()
	amended.CreatedAt = now
	amended.UpdatedAt = now

	if changes != nil {
		changes(&amended)
	}

	hash, err := acpcrypto.HashAgreement(amended)
	if err != nil {
		return domain.Agreement{}, acperrors.Wrap(acperrors.CodeIntegrity, "hash amended agreement", err)
	}
	amended.Hash = hash

	if err := s.gateway.SaveAgreement(ctx, amended); err != nil {
		return domain.Agreement{}, acperrors.Store("save amended agreement", err)
	}
	return amended, nil
}

// Get returns a single Agreement by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Agreement, error) {
	a, ok, err := s.gateway.GetAgreement(ctx, id)
	if err != nil {
		return domain.Agreement{}, acperrors.Store("get agreement", err)
	}
	if !ok {
		return domain.Agreement{}, acperrors.NotFound("agreement", id)
	}
	return a, nil
}

// ListByParty returns every Agreement naming address as a party.
func (s *Store) ListByParty(ctx context.Context, address string) ([]domain.Agreement, error) {
	out, err := s.gateway.ListAgreementsByParty(ctx, address)
	if err != nil {
		return nil, acperrors.Store("list agreements by party", err)
	}
	return out, nil
}

func clonePartiesWithoutSignatures(parties []domain.Party) []domain.Party {
	out := make([]domain.Party, len(parties))
	for i, p := range parties {
		out[i] = domain.Party{Address: p.Address, Role: p.Role}
	}
	return out
}

// VerifyChain walks previousVersionHash back to a root, confirming the
// chain is acyclic and terminates. A missing link surfaces IntegrityError
// (spec.md §4.4: "BrokenChain").
func (s *Store) VerifyChain(ctx context.Context, a domain.Agreement) error {
	seen := map[string]bool{a.Hash: true}
	cur := a
	for cur.PreviousVersionHash != "" {
		if seen[cur.PreviousVersionHash] {
			return acperrors.Integrity("amendment chain contains a cycle", nil)
		}
		prev, ok, err := s.gateway.GetAgreementByHash(ctx, cur.PreviousVersionHash)
		if err != nil {
			return acperrors.Store("get agreement by hash", err)
		}
		if !ok {
			return acperrors.Integrity("amendment chain is broken: previous version not found", nil)
		}
		seen[prev.Hash] = true
		cur = prev
	}
	return nil
}

// Restore persists an agreement exactly as provided, for use after Import:
// unlike Draft, it does not reset version, status, or signatures.
func (s *Store) Restore(ctx context.Context, a domain.Agreement) (domain.Agreement, error) {
	if err := s.gateway.SaveAgreement(ctx, a); err != nil {
		return domain.Agreement{}, acperrors.Store("save restored agreement", err)
	}
	return a, nil
}

// Export wraps a as an envelope and base64-encodes its JSON, per spec.md
// §4.4/§6.
func Export(a domain.Agreement) (string, error) {
	env := domain.Envelope{
		Version:    1,
		Type:       "acp.agreement",
		Agreement:  a,
		ExportedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", acperrors.Wrap(acperrors.CodeIntegrity, "marshal export envelope", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Import decodes an export envelope, recomputes the hash, and rejects on
// mismatch (spec.md §4.4: "HashMismatch").
func Import(encoded string) (domain.Agreement, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Agreement{}, acperrors.Validation("envelope", "invalid base64 encoding")
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Agreement{}, acperrors.Validation("envelope", "invalid JSON envelope")
	}

	recomputed, err := acpcrypto.HashAgreement(env.Agreement)
	if err != nil {
		return domain.Agreement{}, acperrors.Wrap(acperrors.CodeIntegrity, "recompute hash", err)
	}
	if recomputed != env.Agreement.Hash {
		return domain.Agreement{}, acperrors.Validation("hash", "imported agreement hash mismatch")
	}
	return env.Agreement, nil
}
