// Package crypto implements the Agreement canonical-hash, detached-signing,
// and signature-envelope primitives used by internal/agreement.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/agentcommerce/acp-core/internal/domain/agreement"
)

// canonicalParty mirrors spec.md §4.4's canonical hash preimage: only
// address and role, never the signature or signedAt.
type canonicalParty struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

// canonicalTerm omits nothing from Term; terms carry no timestamps that
// would make the hash non-reproducible.
type canonicalTerm struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Value       *float64 `json:"value,omitempty"`
	DueDateUnix *int64   `json:"dueDate,omitempty"`
	Completed   bool     `json:"completed"`
}

// canonicalAgreement is the fixed field order named in spec.md §4.4/§6:
// (id, title, description, parties, terms, totalValue, currency, startDate,
// endDate, escrowId, version, previousVersionHash). Fields that are absent
// are omitted rather than null-padded.
type canonicalAgreement struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Parties             []canonicalParty `json:"parties"`
	Terms               []canonicalTerm  `json:"terms"`
	TotalValue          *float64         `json:"totalValue,omitempty"`
	Currency            string           `json:"currency,omitempty"`
	StartDateUnix       *int64           `json:"startDate,omitempty"`
	EndDateUnix         *int64           `json:"endDate,omitempty"`
	EscrowID            string           `json:"escrowId,omitempty"`
	Version             int              `json:"version"`
	PreviousVersionHash string           `json:"previousVersionHash,omitempty"`
}

// CanonicalBytes serializes an Agreement's content excluding signatures and
// timestamps, in the fixed field order spec.md §4.4/§6 requires. This is
// the SHA-256 preimage.
func CanonicalBytes(a agreement.Agreement) ([]byte, error) {
	parties := make([]canonicalParty, len(a.Parties))
	for i, p := range a.Parties {
		parties[i] = canonicalParty{Address: p.Address, Role: p.Role}
	}
	terms := make([]canonicalTerm, len(a.Terms))
	for i, t := range a.Terms {
		ct := canonicalTerm{
			ID:          t.ID,
			Type:        string(t.Type),
			Description: t.Description,
			Value:       t.Value,
			Completed:   t.Completed,
		}
		if t.DueDate != nil {
			u := t.DueDate.UnixMilli()
			ct.DueDateUnix = &u
		}
		terms[i] = ct
	}

	ca := canonicalAgreement{
		ID:                  a.ID,
		Title:               a.Title,
		Description:         a.Description,
		Parties:             parties,
		Terms:               terms,
		TotalValue:          a.TotalValue,
		Currency:            a.Currency,
		EscrowID:            a.EscrowID,
		Version:             a.Version,
		PreviousVersionHash: a.PreviousVersionHash,
	}
	if a.StartDate != nil {
		u := a.StartDate.UnixMilli()
		ca.StartDateUnix = &u
	}
	if a.EndDate != nil {
		u := a.EndDate.UnixMilli()
		ca.EndDateUnix = &u
	}

	return json.Marshal(ca)
}

// HashAgreement computes the canonical SHA-256 hash (hex-encoded) of an
// Agreement's content.
func HashAgreement(a agreement.Agreement) (string, error) {
	b, err := CanonicalBytes(a)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
