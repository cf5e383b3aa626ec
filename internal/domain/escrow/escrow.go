// Package escrow holds the Escrow and Condition data model (spec.md §3, §4.5).
package escrow

import "time"

// Status is an Escrow's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFunded   Status = "funded"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
	StatusDisputed Status = "disputed"
	StatusExpired  Status = "expired"
)

// Chain names the settlement chain. Only "solana" exists today.
type Chain string

const ChainSolana Chain = "solana"

// ConditionType classifies a release/refund Condition.
type ConditionType string

const (
	ConditionTime      ConditionType = "time"
	ConditionSignature ConditionType = "signature"
	ConditionOracle    ConditionType = "oracle"
	ConditionCustom    ConditionType = "custom"
)

// Condition gates a release or refund transition.
type Condition struct {
	Type        ConditionType `json:"type"`
	Value       string        `json:"value"`
	Description string        `json:"description,omitempty"`
}

// Escrow holds funds pending release or refund conditions.
type Escrow struct {
	ID                string      `json:"id"`
	Chain             Chain       `json:"chain"`
	Buyer             string      `json:"buyer"`
	Seller            string      `json:"seller"`
	Arbiter           string      `json:"arbiter,omitempty"`
	Amount            string      `json:"amount"` // integer string, minor units
	TokenMint         string      `json:"tokenMint,omitempty"`
	ReleaseConditions []Condition `json:"releaseConditions"`
	RefundConditions  []Condition `json:"refundConditions"`
	ExpiresAt         time.Time   `json:"expiresAt"`
	Description       string      `json:"description,omitempty"`
	AgreementHash     string      `json:"agreementHash,omitempty"`
	Status            Status      `json:"status"`
	EscrowAddress     string      `json:"escrowAddress"`
	TxSignatures      []string    `json:"txSignatures"`
	CreatedAt         time.Time   `json:"createdAt"`
	FundedAt          *time.Time `json:"fundedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// ConditionKind selects which of an Escrow's two condition lists to
// evaluate or persist against.
type ConditionKind string

const (
	KindRelease ConditionKind = "release"
	KindRefund  ConditionKind = "refund"
)
