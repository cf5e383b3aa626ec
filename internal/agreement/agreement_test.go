package agreement

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/agreement"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/storage"
)

func newTestStore() *Store {
	return New(storage.NewMemoryStore(), nil)
}

func sampleAgreement(buyer, seller string) domain.Agreement {
	return domain.Agreement{
		Title: "data feed subscription",
		Parties: []domain.Party{
			{Address: buyer, Role: "buyer"},
			{Address: seller, Role: "seller"},
		},
		Terms: []domain.Term{
			{ID: "t1", Type: domain.TermPayment, Description: "pay 100 USDC"},
		},
	}
}

func TestDraftAssignsVersionOneAndHash(t *testing.T) {
	s := newTestStore()
	pub1, _, _ := ed25519.GenerateKey(nil)
	pub2, _, _ := ed25519.GenerateKey(nil)

	a, err := s.Draft(context.Background(), sampleAgreement(
		string(pub1), string(pub2),
	))
	require.NoError(t, err)
	require.Equal(t, 1, a.Version)
	require.Equal(t, domain.StatusDraft, a.Status)
	require.NotEmpty(t, a.Hash)
}

func TestSignTransitionsDraftToProposedToSigned(t *testing.T) {
	s := newTestStore()
	buyerPub, buyerPriv, _ := ed25519.GenerateKey(nil)
	sellerPub, sellerPriv, _ := ed25519.GenerateKey(nil)

	a, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	a, err = s.Sign(context.Background(), a.ID, buyerPriv, string(buyerPub))
	require.NoError(t, err)
	require.Equal(t, domain.StatusProposed, a.Status)

	a, err = s.Sign(context.Background(), a.ID, sellerPriv, string(sellerPub))
	require.NoError(t, err)
	require.Equal(t, domain.StatusSigned, a.Status)

	require.True(t, Verify(a, string(buyerPub), buyerPub))
	require.True(t, Verify(a, string(sellerPub), sellerPub))
}

func TestSignRejectsNonParty(t *testing.T) {
	s := newTestStore()
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)
	outsiderPub, outsiderPriv, _ := ed25519.GenerateKey(nil)

	a, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), a.ID, outsiderPriv, string(outsiderPub))
	require.True(t, acperrors.IsUnauthorized(err))
}

func TestAmendProducesNewVersionLinkedByHash(t *testing.T) {
	s := newTestStore()
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)

	original, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	amended, err := s.Amend(context.Background(), original.ID, func(a *domain.Agreement) {
		a.Title = "revised data feed subscription"
	}, string(buyerPub))
	require.NoError(t, err)

	require.Equal(t, 2, amended.Version)
	require.Equal(t, original.Hash, amended.PreviousVersionHash)
	require.NotEqual(t, original.Hash, amended.Hash)
	require.Equal(t, domain.StatusDraft, amended.Status)
	for _, p := range amended.Parties {
		require.Nil(t, p.Signature)
	}

	require.NoError(t, s.VerifyChain(context.Background(), amended))
}

func TestAmendRejectsNonParty(t *testing.T) {
	s := newTestStore()
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)
	outsiderPub, _, _ := ed25519.GenerateKey(nil)

	original, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	_, err = s.Amend(context.Background(), original.ID, nil, string(outsiderPub))
	require.True(t, acperrors.IsUnauthorized(err))
}

func TestCompleteTermAutoCompletesAgreement(t *testing.T) {
	s := newTestStore()
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)

	a, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	a, err = s.CompleteTerm(context.Background(), a.ID, "t1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, a.Status)
}

func TestExportImportRoundTrip(t *testing.T) {
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)
	s := newTestStore()

	a, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	encoded, err := Export(a)
	require.NoError(t, err)

	imported, err := Import(encoded)
	require.NoError(t, err)
	require.Equal(t, a.Hash, imported.Hash)
	require.Equal(t, a.ID, imported.ID)
}

func TestImportRejectsTamperedEnvelope(t *testing.T) {
	buyerPub, _, _ := ed25519.GenerateKey(nil)
	sellerPub, _, _ := ed25519.GenerateKey(nil)
	s := newTestStore()

	a, err := s.Draft(context.Background(), sampleAgreement(string(buyerPub), string(sellerPub)))
	require.NoError(t, err)

	encoded, err := Export(a)
	require.NoError(t, err)

	tampered := encoded[:len(encoded)-4] + "abcd"
	_, err = Import(tampered)
	require.Error(t, err)
}
