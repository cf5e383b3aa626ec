package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
)

func createTestEscrow(t *testing.T, srv *Server, buyer, seller, arbiter string) domain.Escrow {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/escrows", domain.Escrow{
		Buyer:     buyer,
		Seller:    seller,
		Arbiter:   arbiter,
		Amount:    "1000000",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var e domain.Escrow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestCreateFundReleaseEscrowHappyPath(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	e := createTestEscrow(t, srv, "buyer1", "seller1", "")
	require.Equal(t, domain.StatusPending, e.Status)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/fund", escrowActionRequest{Authorizer: "buyer1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var funded domain.Escrow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &funded))
	require.Equal(t, domain.StatusFunded, funded.Status)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/release", escrowActionRequest{Authorizer: "buyer1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var released domain.Escrow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &released))
	require.Equal(t, domain.StatusReleased, released.Status)
}

func TestFundEscrowRejectsNonBuyerAuthorizer(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	e := createTestEscrow(t, srv, "buyer1", "seller1", "")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/fund", escrowActionRequest{Authorizer: "seller1"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDisputeAndResolveDisputeEscrow(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	e := createTestEscrow(t, srv, "buyer1", "seller1", "arbiter1")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/fund", escrowActionRequest{Authorizer: "buyer1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/dispute", escrowActionRequest{Authorizer: "buyer1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/escrows/"+e.ID+"/resolve", resolveDisputeRequest{
		Authorizer: "arbiter1",
		ReleaseTo:  "seller1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved domain.Escrow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	require.Equal(t, domain.StatusReleased, resolved.Status)
}

func TestListEscrowsByParty(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	createTestEscrow(t, srv, "buyer1", "seller1", "")
	createTestEscrow(t, srv, "buyer1", "seller2", "")
	createTestEscrow(t, srv, "buyer2", "seller1", "")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/parties/buyer1/escrows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []domain.Escrow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
}
