package prediction

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/prediction"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/storage"
)

func newTestStore() *Store {
	return New(storage.NewMemoryStore(), nil)
}

func validRationale() string {
	return strings.Repeat("a", 20)
}

func TestRecordRejectsOutOfRangeProbability(t *testing.T) {
	s := newTestStore()
	_, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 1.5, Rationale: validRationale()})
	require.True(t, acperrors.IsValidation(err))
}

func TestRecordRejectsShortRationale(t *testing.T) {
	s := newTestStore()
	_, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.5, Rationale: "short"})
	require.True(t, acperrors.IsValidation(err))
}

func TestRecordAcceptsBoundaryProbabilities(t *testing.T) {
	s := newTestStore()
	_, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0, Rationale: validRationale()})
	require.NoError(t, err)

	_, err = s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m2", Probability: 1, Rationale: validRationale()})
	require.NoError(t, err)
}

func TestRecordUpdatesExistingActivePrediction(t *testing.T) {
	s := newTestStore()
	first, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.5, Rationale: validRationale()})
	require.NoError(t, err)

	second, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.6, Rationale: validRationale()})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 0.6, second.Probability)

	preds, err := s.ListByAgent(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, preds, 1)
}

func TestRecordAfterResolutionCreatesNewActivePrediction(t *testing.T) {
	s := newTestStore()
	first, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.5, Rationale: validRationale()})
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), first.ID, 1)
	require.NoError(t, err)

	second, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.7, Rationale: validRationale()})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestResolveComputesBrierAndUpdatesStats(t *testing.T) {
	s := newTestStore()
	p, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.8, Rationale: validRationale()})
	require.NoError(t, err)

	resolved, err := s.Resolve(context.Background(), p.ID, 1)
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.InDelta(t, 0.04, *resolved.Brier, 1e-9)

	stats, err := s.GetStats(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 1, stats.Correct)
	require.Equal(t, 1, stats.StreakCurrent)
	require.InDelta(t, 0.04, stats.BrierScore, 1e-9)
}

func TestResolveRejectsAlreadyResolved(t *testing.T) {
	s := newTestStore()
	p, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.8, Rationale: validRationale()})
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), p.ID, 1)
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), p.ID, 1)
	require.True(t, acperrors.IsInvalidState(err))
}

func TestResolveRejectsNonBinaryOutcome(t *testing.T) {
	s := newTestStore()
	p, err := s.Record(context.Background(), domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.8, Rationale: validRationale()})
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), p.ID, 2)
	require.True(t, acperrors.IsValidation(err))
}

func TestStreakResetsOnIncorrectPrediction(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	p1, _ := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: "m1", Probability: 0.9, Rationale: validRationale()})
	s.Resolve(ctx, p1.ID, 1)
	p2, _ := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: "m2", Probability: 0.9, Rationale: validRationale()})
	s.Resolve(ctx, p2.ID, 1)

	stats, err := s.GetStats(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.StreakCurrent)
	require.Equal(t, 2, stats.StreakBest)

	p3, _ := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: "m3", Probability: 0.9, Rationale: validRationale()})
	s.Resolve(ctx, p3.ID, 0)

	stats, err = s.GetStats(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 0, stats.StreakCurrent)
	require.Equal(t, 2, stats.StreakBest)
}

// TestLeaderboardSeedScenario reproduces spec.md §8 seed scenario 6's
// literal numbers: 10 resolved, 8 correct, brierScore == 0.17.
func TestLeaderboardSeedScenario(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	correctProb := 1 - math.Sqrt(0.05)
	wrongProb := math.Sqrt(0.65)

	for i := 0; i < 8; i++ {
		p, err := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: marketSlug(i), Probability: correctProb, Rationale: validRationale()})
		require.NoError(t, err)
		_, err = s.Resolve(ctx, p.ID, 1)
		require.NoError(t, err)
	}
	for i := 8; i < 10; i++ {
		p, err := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: marketSlug(i), Probability: wrongProb, Rationale: validRationale()})
		require.NoError(t, err)
		_, err = s.Resolve(ctx, p.ID, 0)
		require.NoError(t, err)
	}

	stats, err := s.GetStats(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 10, stats.Resolved)
	require.Equal(t, 8, stats.Correct)
	require.InDelta(t, 0.17, stats.BrierScore, 1e-9)
	require.InDelta(t, 0.8, stats.Accuracy, 1e-9)

	board, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	require.Equal(t, "a1", board[0].AgentID)
}

func TestLeaderboardExcludesAgentsBelowFiveResolved(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := s.Record(ctx, domain.Prediction{AgentID: "a1", MarketSlug: marketSlug(i), Probability: 0.7, Rationale: validRationale()})
		require.NoError(t, err)
		_, err = s.Resolve(ctx, p.ID, 1)
		require.NoError(t, err)
	}

	board, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Empty(t, board)
}

func marketSlug(i int) string {
	return "market-" + string(rune('a'+i))
}
