package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/prediction"
)

func TestRecordPredictionRejectsShortRationale(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/predictions", recordPredictionRequest{
		AgentID:     "agent1",
		MarketSlug:  "will-it-rain",
		Probability: 0.7,
		Rationale:   "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordThenResolvePredictionAndLeaderboard(t *testing.T) {
	srv := NewServer(newTestDeps(""), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/predictions", recordPredictionRequest{
		AgentID:     "agent1",
		MarketSlug:  "will-it-rain",
		Probability: 0.7,
		Rationale:   "clear skies forecast all week long",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/predictions/"+p.ID+"/resolve", resolvePredictionRequest{Outcome: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	require.True(t, resolved.Resolved)
	require.NotNil(t, resolved.Brier)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/predictions/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []domain.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	// One resolution is below the leaderboard's five-resolution minimum.
	require.Len(t, board, 0)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/agents/agent1/predictions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byAgent []domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byAgent))
	require.Len(t, byAgent, 1)
}
