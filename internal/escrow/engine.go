// Package escrow implements the Escrow Engine (spec.md §4.5): the pending
// -> funded -> {released, refunded, disputed -> released|refunded} state
// machine, its authorization rules, and its pluggable condition evaluator.
package escrow

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/robfig/cron/v3"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/storage"
)

// Vault is the subset of internal/vault.Vault the engine depends on.
type Vault interface {
	Put(ctx context.Context, escrowID string, secretKey []byte) error
	Get(ctx context.Context, escrowID string) ([]byte, bool, error)
	Clear(ctx context.Context, escrowID string) error
}

// Engine is the Escrow Engine service.
type Engine struct {
	store storage.EscrowStore
	vault Vault
	chain ChainAdapter
	eval  evaluator
	log   *logger.Logger
	cron  *cron.Cron
}

// New constructs an Engine. oracleReader may be nil if no oracle
// conditions will ever be configured.
func New(store storage.EscrowStore, vault Vault, chain ChainAdapter, oracleReader OracleReader, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("escrow")
	}
	return &Engine{
		store: store,
		vault: vault,
		chain: chain,
		eval:  evaluator{oracleReader: oracleReader},
		log:   log,
	}
}

// Create registers a new pending Escrow and provisions a fresh settlement
// keypair in the Keypair Vault.
func (e *Engine) Create(ctx context.Context, input domain.Escrow) (domain.Escrow, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.Chain == "" {
		input.Chain = domain.ChainSolana
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return domain.Escrow{}, acperrors.Wrap(acperrors.CodeIntegrity, "generate escrow keypair", err)
	}
	if err := e.vault.Put(ctx, input.ID, priv); err != nil {
		return domain.Escrow{}, err
	}

	input.EscrowAddress = base58.Encode(pub)
	input.Status = domain.StatusPending
	input.TxSignatures = []string{}
	input.CreatedAt = time.Now().UTC()

	if err := e.store.SaveEscrow(ctx, input); err != nil {
		return domain.Escrow{}, acperrors.Store("save escrow", err)
	}
	return input, nil
}

func (e *Engine) load(ctx context.Context, id string) (domain.Escrow, error) {
	esc, ok, err := e.store.GetEscrow(ctx, id)
	if err != nil {
		return domain.Escrow{}, acperrors.Store("get escrow", err)
	}
	if !ok {
		return domain.Escrow{}, acperrors.NotFound("escrow", id)
	}
	return esc, nil
}

func (e *Engine) persist(ctx context.Context, esc domain.Escrow) (domain.Escrow, error) {
	if err := e.store.SaveEscrow(ctx, esc); err != nil {
		return domain.Escrow{}, acperrors.Store("save escrow", err)
	}
	return esc, nil
}

// Fund transfers the escrow amount from the buyer into the escrow account.
// Only the buyer may fund (spec.md §4.5).
func (e *Engine) Fund(ctx context.Context, id, authorizer string) (domain.Escrow, error) {
	esc, err := e.load(ctx, id)
	if err != nil {
		return domain.Escrow{}, err
	}
	if esc.Status != domain.StatusPending {
		return domain.Escrow{}, acperrors.InvalidState("escrow is not pending")
	}
	if authorizer != esc.Buyer {
		return domain.Escrow{}, acperrors.Unauthorized("only the buyer may fund this escrow")
	}

	sig, err := e.transfer(ctx, esc.Buyer, esc.EscrowAddress, esc.TokenMint, esc.Amount)
	if err != nil {
		return domain.Escrow{}, err
	}

	now := time.Now().UTC()
	esc.TxSignatures = append(esc.TxSignatures, sig)
	esc.Status = domain.StatusFunded
	esc.FundedAt = &now
	return e.persist(ctx, esc)
}

// Release transfers the escrowed amount to the seller. The arbiter may
// override unconditionally; the buyer may only release if every release
// condition evaluates true (spec.md §4.5).
func (e *Engine) Release(ctx context.Context, id, authorizer string) (domain.Escrow, error) {
	esc, err := e.load(ctx, id)
	if err != nil {
		return domain.Escrow{}, err
	}
	if esc.Status != domain.StatusFunded {
		return domain.Escrow{}, acperrors.InvalidState("escrow is not funded")
	}

	isArbiter := esc.Arbiter != "" && authorizer == esc.Arbiter
	isBuyer := authorizer == esc.Buyer
	switch {
	case isArbiter:
		// arbiter override, conditions not required.
	case isBuyer:
		if !e.eval.CheckConditions(ctx, esc, domain.KindRelease) {
			return domain.Escrow{}, acperrors.InvalidState("release conditions not met")
		}
	default:
		return domain.Escrow{}, acperrors.Unauthorized("only the buyer or arbiter may release this escrow")
	}

	return e.settle(ctx, esc, esc.Seller, domain.StatusReleased)
}

// Refund returns the escrowed amount to the buyer. The seller or arbiter
// may refund at any time; the buyer only after expiresAt (spec.md §4.5).
func (e *Engine) Refund(ctx context.Context, id, authorizer string) (domain.Escrow, error) {
	esc, err := e.load(ctx, id)
	if err != nil {
		return domain.Escrow{}, err
	}
	if esc.Status != domain.StatusFunded {
		return domain.Escrow{}, acperrors.InvalidState("escrow is not funded")
	}

	isSeller := authorizer == esc.Seller
	isArbiter := esc.Arbiter != "" && authorizer == esc.Arbiter
	isExpiredBuyer := authorizer == esc.Buyer && time.Now().UTC().After(esc.ExpiresAt)
	if !isSeller && !isArbiter && !isExpiredBuyer {
		return domain.Escrow{}, acperrors.Unauthorized("refund is not authorized for this caller")
	}

	return e.settle(ctx, esc, esc.Buyer, domain.StatusRefunded)
}

// Dispute moves a funded escrow into the disputed state. Requires an
// arbiter to be configured (spec.md §4.5, invariant (iv)).
func (e *Engine) Dispute(ctx context.Context, id, authorizer string) (domain.Escrow, error) {
	esc, err := e.load(ctx, id)
	if err != nil {
		return domain.Escrow{}, err
	}
	if esc.Status != domain.StatusFunded {
		return domain.Escrow{}, acperrors.InvalidState("only a funded escrow can be disputed")
	}
	if esc.Arbiter == "" {
		return domain.Escrow{}, acperrors.InvalidState("escrow has no arbiter configured")
	}
	if authorizer != esc.Buyer && authorizer != esc.Seller {
		return domain.Escrow{}, acperrors.Unauthorized("only the buyer or seller may raise a dispute")
	}

	esc.Status = domain.StatusDisputed
	return e.persist(ctx, esc)
}

// ResolveDispute is the arbiter's exclusive resolution of a disputed
// escrow, releasing to either party (spec.md §4.5).
func (e *Engine) ResolveDispute(ctx context.Context, id, authorizer, releaseTo string) (domain.Escrow, error) {
	esc, err := e.load(ctx, id)
	if err != nil {
		return domain.Escrow{}, err
	}
	if esc.Status != domain.StatusDisputed {
		return domain.Escrow{}, acperrors.InvalidState("escrow is not disputed")
	}
	if esc.Arbiter == "" || authorizer != esc.Arbiter {
		return domain.Escrow{}, acperrors.Unauthorized("only the configured arbiter may resolve this dispute")
	}

	switch releaseTo {
	case esc.Buyer:
		return e.settle(ctx, esc, esc.Buyer, domain.StatusRefunded)
	case esc.Seller:
		return e.settle(ctx, esc, esc.Seller, domain.StatusReleased)
	default:
		return domain.Escrow{}, acperrors.Validation("releaseTo", "must be the escrow's buyer or seller address")
	}
}

// settle performs the on-chain transfer to recipient, records the result,
// marks esc terminal, and clears its vault entry (spec.md §4.5 invariant
// (i)).
func (e *Engine) settle(ctx context.Context, esc domain.Escrow, recipient string, final domain.Status) (domain.Escrow, error) {
	sig, err := e.transfer(ctx, esc.EscrowAddress, recipient, esc.TokenMint, esc.Amount)
	if err != nil {
		return domain.Escrow{}, err
	}

	now := time.Now().UTC()
	esc.TxSignatures = append(esc.TxSignatures, sig)
	esc.Status = final
	esc.CompletedAt = &now

	if err := e.vault.Clear(ctx, esc.ID); err != nil {
		return domain.Escrow{}, err
	}
	return e.persist(ctx, esc)
}

func (e *Engine) transfer(ctx context.Context, from, to, mint, amount string) (string, error) {
	if mint != "" {
		sig, err := e.chain.TransferToken(ctx, from, to, mint, amount)
		if err != nil {
			return "", acperrors.External("chain-adapter", err)
		}
		return sig, nil
	}
	sig, err := e.chain.TransferNative(ctx, from, to, amount)
	if err != nil {
		return "", acperrors.External("chain-adapter", err)
	}
	return sig, nil
}

// Get returns a single Escrow by id.
func (e *Engine) Get(ctx context.Context, id string) (domain.Escrow, error) {
	return e.load(ctx, id)
}

// ListByParty returns every Escrow naming address as buyer, seller, or
// arbiter.
func (e *Engine) ListByParty(ctx context.Context, address string) ([]domain.Escrow, error) {
	out, err := e.store.ListEscrowsByParty(ctx, address)
	if err != nil {
		return nil, acperrors.Store("list escrows by party", err)
	}
	return out, nil
}

// CheckConditions exposes the condition evaluator for a given escrow and
// condition kind, per spec.md §4.5's public `checkConditions` operation.
func (e *Engine) CheckConditions(ctx context.Context, esc domain.Escrow, kind domain.ConditionKind) bool {
	return e.eval.CheckConditions(ctx, esc, kind)
}

// ExpireSweep transitions every non-terminal Escrow past its expiresAt
// into the expired state (spec.md §4.5's optional expiry-sweep
// transition; driven by a scheduled cron job in SPEC_FULL.md §7).
func (e *Engine) ExpireSweep(ctx context.Context) (int, error) {
	nonTerminal := []domain.Status{domain.StatusPending, domain.StatusFunded, domain.StatusDisputed}
	now := time.Now().UTC()
	swept := 0

	for _, status := range nonTerminal {
		escrows, err := e.store.ListEscrowsByStatus(ctx, status)
		if err != nil {
			return swept, acperrors.Store("list escrows by status", err)
		}
		for _, esc := range escrows {
			if now.Before(esc.ExpiresAt) {
				continue
			}
			esc.Status = domain.StatusExpired
			esc.CompletedAt = &now
			if _, err := e.persist(ctx, esc); err != nil {
				return swept, err
			}
			swept++
		}
	}
	return swept, nil
}

// StartExpirySweep starts a background cron job that runs ExpireSweep on
// interval, logging any failure rather than stopping the ticker (spec.md
// §4.5's expiry transition, scheduled per SPEC_FULL.md §7).
func (e *Engine) StartExpirySweep(interval time.Duration) error {
	e.cron = cron.New()
	spec := "@every " + interval.String()
	_, err := e.cron.AddFunc(spec, func() {
		swept, err := e.ExpireSweep(context.Background())
		if err != nil {
			e.log.WithError(err).Warn("escrow: expiry sweep failed")
			return
		}
		if swept > 0 {
			e.log.WithField("count", swept).Info("escrow: swept expired escrows")
		}
	})
	if err != nil {
		return err
	}
	e.cron.Start()
	return nil
}

// Stop cancels the expiry sweep ticker, if running.
func (e *Engine) Stop() {
	if e.cron != nil {
		e.cron.Stop()
	}
}
