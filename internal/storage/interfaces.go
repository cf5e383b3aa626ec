// Package storage defines the Persistence Gateway: per-entity repositories
// with save/get/list/updateStatus plus entity-specific queries (spec.md §4.2).
package storage

import (
	"context"

	"github.com/agentcommerce/acp-core/internal/domain/agent"
	"github.com/agentcommerce/acp-core/internal/domain/agreement"
	"github.com/agentcommerce/acp-core/internal/domain/escrow"
	"github.com/agentcommerce/acp-core/internal/domain/prediction"
)

// AgentStore persists Agent profiles.
type AgentStore interface {
	SaveAgent(ctx context.Context, a agent.Agent) error
	GetAgent(ctx context.Context, id string) (agent.Agent, bool, error)
	GetAgentByAddress(ctx context.Context, address string) (agent.Agent, bool, error)
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error
}

// ServiceStore persists Service Listings.
type ServiceStore interface {
	SaveService(ctx context.Context, s agent.Service) error
	GetService(ctx context.Context, id string) (agent.Service, bool, error)
	ListServices(ctx context.Context) ([]agent.Service, error)
	ListServicesByAgent(ctx context.Context, agentID string) ([]agent.Service, error)
	DeleteServicesByAgent(ctx context.Context, agentID string) error
}

// RatingStore persists Ratings.
type RatingStore interface {
	SaveRating(ctx context.Context, r agent.Rating) error
	ListRatingsByService(ctx context.Context, serviceID string) ([]agent.Rating, error)
}

// AgreementStore persists Agreements, keyed by id and by canonical hash.
type AgreementStore interface {
	SaveAgreement(ctx context.Context, a agreement.Agreement) error
	GetAgreement(ctx context.Context, id string) (agreement.Agreement, bool, error)
	GetAgreementByHash(ctx context.Context, hash string) (agreement.Agreement, bool, error)
	ListAgreementsByParty(ctx context.Context, address string) ([]agreement.Agreement, error)
	UpdateAgreementStatus(ctx context.Context, id string, status agreement.Status) error
}

// EscrowStore persists Escrows.
type EscrowStore interface {
	SaveEscrow(ctx context.Context, e escrow.Escrow) error
	GetEscrow(ctx context.Context, id string) (escrow.Escrow, bool, error)
	ListEscrowsByParty(ctx context.Context, address string) ([]escrow.Escrow, error)
	ListEscrowsByStatus(ctx context.Context, status escrow.Status) ([]escrow.Escrow, error)
	UpdateEscrowStatus(ctx context.Context, id string, status escrow.Status) error
}

// KeypairStore persists encrypted escrow keypair envelopes. Mirrors the
// vault.Store contract so internal/vault has no import-time dependency on
// internal/storage; both are satisfied by the same concrete implementation.
type KeypairStore interface {
	PutKeypairEnvelope(ctx context.Context, escrowID, envelope string) error
	GetKeypairEnvelope(ctx context.Context, escrowID string) (string, bool, error)
	DeleteKeypairEnvelope(ctx context.Context, escrowID string) error
}

// PredictionStore persists Predictions and per-agent Stats.
type PredictionStore interface {
	SavePrediction(ctx context.Context, p prediction.Prediction) error
	GetPrediction(ctx context.Context, id string) (prediction.Prediction, bool, error)
	GetActivePrediction(ctx context.Context, agentID, marketSlug string) (prediction.Prediction, bool, error)
	ListPredictionsByAgent(ctx context.Context, agentID string) ([]prediction.Prediction, error)
	ListPredictionsByMarket(ctx context.Context, marketSlug string) ([]prediction.Prediction, error)

	SaveStats(ctx context.Context, s prediction.Stats) error
	GetStats(ctx context.Context, agentID string) (prediction.Stats, bool, error)
	ListStats(ctx context.Context) ([]prediction.Stats, error)
}

// Gateway is the full Persistence Gateway surface, composed of the
// per-entity repositories above.
type Gateway interface {
	AgentStore
	ServiceStore
	RatingStore
	AgreementStore
	EscrowStore
	KeypairStore
	PredictionStore
}
