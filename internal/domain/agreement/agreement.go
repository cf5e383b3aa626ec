// Package agreement holds the signed Agreement data model (spec.md §3, §4.4).
package agreement

import "time"

// Status is an Agreement's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusProposed  Status = "proposed"
	StatusSigned    Status = "signed"
	StatusExecuted  Status = "executed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
)

// TermType classifies a Term.
type TermType string

const (
	TermPayment    TermType = "payment"
	TermDeliverable TermType = "deliverable"
	TermDeadline   TermType = "deadline"
	TermCondition  TermType = "condition"
	TermCustom     TermType = "custom"
)

// Signature is the detached-signature envelope stored on a Party, per
// spec.md §6 ("Signature envelope").
type Signature struct {
	Payload   SignaturePayload `json:"payload"`
	Signature string           `json:"signature"` // base58 Ed25519
}

// SignaturePayload is serialized deterministically and signed.
type SignaturePayload struct {
	AgreementID   string `json:"agreementId"`
	AgreementHash string `json:"agreementHash"`
	SignerAddress string `json:"signerAddress"`
	Timestamp     int64  `json:"timestamp"`
	Nonce         string `json:"nonce"` // hex, 16 bytes
}

// Party is one signatory to an Agreement.
type Party struct {
	Address   string     `json:"address"`
	Role      string     `json:"role"`
	Signature *Signature `json:"signature,omitempty"`
	SignedAt  *time.Time `json:"signedAt,omitempty"`
}

// Term is one clause of an Agreement.
type Term struct {
	ID          string     `json:"id"`
	Type        TermType   `json:"type"`
	Description string     `json:"description"`
	Value       *float64   `json:"value,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
}

// Agreement is a proof-of-agreement record between two or more parties.
type Agreement struct {
	ID                  string    `json:"id"`
	Hash                string    `json:"hash"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Parties             []Party   `json:"parties"`
	Terms               []Term    `json:"terms"`
	TotalValue          *float64  `json:"totalValue,omitempty"`
	Currency            string    `json:"currency,omitempty"`
	StartDate           *time.Time `json:"startDate,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	EscrowID            string    `json:"escrowId,omitempty"`
	Version             int       `json:"version"`
	PreviousVersionHash string    `json:"previousVersionHash,omitempty"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Envelope is the export/import wrapper described in spec.md §4.4.
type Envelope struct {
	Version    int       `json:"version"`
	Type       string    `json:"type"`
	Agreement  Agreement `json:"agreement"`
	ExportedAt time.Time `json:"exportedAt"`
}
