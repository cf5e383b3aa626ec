package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/storage"
	"github.com/agentcommerce/acp-core/internal/vault"
)

type fakeChain struct {
	transfers int
}

func (f *fakeChain) TransferNative(_ context.Context, from, to, amount string) (string, error) {
	f.transfers++
	return "sig-native-" + amount, nil
}

func (f *fakeChain) TransferToken(_ context.Context, from, to, mint, amount string) (string, error) {
	f.transfers++
	return "sig-token-" + amount, nil
}

func (f *fakeChain) GetNativeBalance(context.Context, string) (string, error) { return "0", nil }

func (f *fakeChain) GetOrCreateTokenAccount(context.Context, string, string) (TokenAccount, error) {
	return TokenAccount{}, nil
}

func newTestEngine() (*Engine, *fakeChain) {
	store := storage.NewMemoryStore()
	v := vault.New(store, "test-secret", nil)
	chain := &fakeChain{}
	return New(store, v, chain, nil, nil), chain
}

func baseEscrow(buyer, seller, arbiter string) domain.Escrow {
	return domain.Escrow{
		Buyer:     buyer,
		Seller:    seller,
		Arbiter:   arbiter,
		Amount:    "1000000",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
}

func TestCreateProvisionsVaultKeypair(t *testing.T) {
	eng, _ := newTestEngine()
	esc, err := eng.Create(context.Background(), baseEscrow("buyer1", "seller1", ""))
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, esc.Status)
	require.NotEmpty(t, esc.EscrowAddress)
}

func TestFundRequiresBuyer(t *testing.T) {
	eng, chain := newTestEngine()
	esc, err := eng.Create(context.Background(), baseEscrow("buyer1", "seller1", ""))
	require.NoError(t, err)

	_, err = eng.Fund(context.Background(), esc.ID, "seller1")
	require.True(t, acperrors.IsUnauthorized(err))
	require.Equal(t, 0, chain.transfers)

	funded, err := eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusFunded, funded.Status)
	require.Len(t, funded.TxSignatures, 1)
	require.Equal(t, 1, chain.transfers)
}

func TestReleaseRequiresConditionsUnlessArbiter(t *testing.T) {
	eng, _ := newTestEngine()
	input := baseEscrow("buyer1", "seller1", "arbiter1")
	input.ReleaseConditions = []domain.Condition{{Type: domain.ConditionCustom, Value: "always_false"}}
	esc, err := eng.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)

	_, err = eng.Release(context.Background(), esc.ID, "buyer1")
	require.True(t, acperrors.IsInvalidState(err))

	released, err := eng.Release(context.Background(), esc.ID, "arbiter1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusReleased, released.Status)
	require.NotNil(t, released.CompletedAt)

	_, ok, err := eng.vault.Get(context.Background(), esc.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefundBeforeExpiryRejectsBuyer(t *testing.T) {
	eng, _ := newTestEngine()
	esc, err := eng.Create(context.Background(), baseEscrow("buyer1", "seller1", ""))
	require.NoError(t, err)
	_, err = eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)

	_, err = eng.Refund(context.Background(), esc.ID, "buyer1")
	require.True(t, acperrors.IsUnauthorized(err))

	refunded, err := eng.Refund(context.Background(), esc.ID, "seller1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRefunded, refunded.Status)
}

func TestRefundAllowsExpiredBuyer(t *testing.T) {
	eng, _ := newTestEngine()
	input := baseEscrow("buyer1", "seller1", "")
	input.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	esc, err := eng.Create(context.Background(), input)
	require.NoError(t, err)
	_, err = eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)

	refunded, err := eng.Refund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRefunded, refunded.Status)
}

func TestDisputeRequiresArbiterConfigured(t *testing.T) {
	eng, _ := newTestEngine()
	esc, err := eng.Create(context.Background(), baseEscrow("buyer1", "seller1", ""))
	require.NoError(t, err)
	_, err = eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)

	_, err = eng.Dispute(context.Background(), esc.ID, "buyer1")
	require.True(t, acperrors.IsInvalidState(err))
}

func TestDisputeAndResolveToSellerReleases(t *testing.T) {
	eng, _ := newTestEngine()
	esc, err := eng.Create(context.Background(), baseEscrow("buyer1", "seller1", "arbiter1"))
	require.NoError(t, err)
	_, err = eng.Fund(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)

	disputed, err := eng.Dispute(context.Background(), esc.ID, "buyer1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDisputed, disputed.Status)

	_, err = eng.ResolveDispute(context.Background(), esc.ID, "buyer1", "seller1")
	require.True(t, acperrors.IsUnauthorized(err))

	resolved, err := eng.ResolveDispute(context.Background(), esc.ID, "arbiter1", "seller1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusReleased, resolved.Status)
}

func TestExpireSweepMarksPastDeadlineEscrowsExpired(t *testing.T) {
	eng, _ := newTestEngine()
	input := baseEscrow("buyer1", "seller1", "")
	input.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	_, err := eng.Create(context.Background(), input)
	require.NoError(t, err)

	swept, err := eng.ExpireSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)
}
