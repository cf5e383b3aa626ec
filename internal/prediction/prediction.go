// Package prediction implements the Brier-scored Prediction Ledger
// (spec.md §4.8): one active forecast per (agent, market), resolution
// into a Brier contribution, and a rolling per-agent leaderboard.
package prediction

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/prediction"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/storage"
)

const (
	minRationaleLen = 10
	maxRationaleLen = 800
	leaderboardMin  = 5
)

// Store is the Prediction Ledger service.
type Store struct {
	gateway storage.PredictionStore
	log     *logger.Logger
}

// New constructs a Store.
func New(gateway storage.PredictionStore, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("prediction")
	}
	return &Store{gateway: gateway, log: log}
}

// Record validates and stores a forecast. At most one active (unresolved)
// prediction may exist per (agentId, marketSlug); resubmitting against the
// same pair updates that existing record in place rather than creating a
// second one, as long as it remains unresolved (spec.md §4.8, §9 Open
// Question (a) addendum: "resubmission updates the existing record only
// if unresolved").
func (s *Store) Record(ctx context.Context, p domain.Prediction) (domain.Prediction, error) {
	if p.Probability < 0 || p.Probability > 1 {
		return domain.Prediction{}, acperrors.Validation("probability", "must be between 0 and 1")
	}
	if len(p.Rationale) < minRationaleLen || len(p.Rationale) > maxRationaleLen {
		return domain.Prediction{}, acperrors.Validation("rationale", "must be between 10 and 800 characters")
	}

	existing, ok, err := s.gateway.GetActivePrediction(ctx, p.AgentID, p.MarketSlug)
	if err != nil {
		return domain.Prediction{}, acperrors.Store("get active prediction", err)
	}

	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now().UTC()
	}
	p.Resolved = false
	p.Outcome = nil
	p.Brier = nil
	p.ResolvedAt = nil

	if err := s.gateway.SavePrediction(ctx, p); err != nil {
		return domain.Prediction{}, acperrors.Store("save prediction", err)
	}
	return p, nil
}

// Resolve settles a prediction against a binary outcome (0 or 1), computes
// its Brier contribution, and rolls the agent's Stats forward.
func (s *Store) Resolve(ctx context.Context, predictionID string, outcome int) (domain.Prediction, error) {
	if outcome != 0 && outcome != 1 {
		return domain.Prediction{}, acperrors.Validation("outcome", "must be 0 or 1")
	}

	p, ok, err := s.gateway.GetPrediction(ctx, predictionID)
	if err != nil {
		return domain.Prediction{}, acperrors.Store("get prediction", err)
	}
	if !ok {
		return domain.Prediction{}, acperrors.NotFound("prediction", predictionID)
	}
	if p.Resolved {
		return domain.Prediction{}, acperrors.InvalidState("prediction is already resolved")
	}

	brier := (p.Probability - float64(outcome)) * (p.Probability - float64(outcome))
	now := time.Now().UTC()
	p.Resolved = true
	p.Outcome = &outcome
	p.Brier = &brier
	p.ResolvedAt = &now

	if err := s.gateway.SavePrediction(ctx, p); err != nil {
		return domain.Prediction{}, acperrors.Store("save prediction", err)
	}

	if err := s.rollStats(ctx, p.AgentID, brier, predictedOutcome(p.Probability) == outcome); err != nil {
		return domain.Prediction{}, err
	}
	return p, nil
}

func predictedOutcome(probability float64) int {
	if probability >= 0.5 {
		return 1
	}
	return 0
}

// rollStats folds one resolution's Brier contribution and correctness
// into the agent's rolling Stats (spec.md §4.8, §8 seed scenario 6).
func (s *Store) rollStats(ctx context.Context, agentID string, brier float64, correct bool) error {
	stats, ok, err := s.gateway.GetStats(ctx, agentID)
	if err != nil {
		return acperrors.Store("get stats", err)
	}
	if !ok {
		stats = domain.Stats{AgentID: agentID}
	}

	priorResolved := stats.Resolved
	stats.BrierScore = (stats.BrierScore*float64(priorResolved) + brier) / float64(priorResolved+1)
	stats.Resolved++

	if correct {
		stats.Correct++
		stats.StreakCurrent++
		if stats.StreakCurrent > stats.StreakBest {
			stats.StreakBest = stats.StreakCurrent
		}
	} else {
		stats.StreakCurrent = 0
	}
	stats.Accuracy = float64(stats.Correct) / float64(stats.Resolved)

	if err := s.gateway.SaveStats(ctx, stats); err != nil {
		return acperrors.Store("save stats", err)
	}
	return nil
}

// GetStats returns an agent's rolled-up record, or the zero value if it
// has never resolved a prediction.
func (s *Store) GetStats(ctx context.Context, agentID string) (domain.Stats, error) {
	stats, ok, err := s.gateway.GetStats(ctx, agentID)
	if err != nil {
		return domain.Stats{}, acperrors.Store("get stats", err)
	}
	if !ok {
		return domain.Stats{AgentID: agentID}, nil
	}
	return stats, nil
}

// ListByAgent returns every prediction an agent has made.
func (s *Store) ListByAgent(ctx context.Context, agentID string) ([]domain.Prediction, error) {
	preds, err := s.gateway.ListPredictionsByAgent(ctx, agentID)
	if err != nil {
		return nil, acperrors.Store("list predictions by agent", err)
	}
	return preds, nil
}

// ListByMarket returns every prediction made against a market.
func (s *Store) ListByMarket(ctx context.Context, marketSlug string) ([]domain.Prediction, error) {
	preds, err := s.gateway.ListPredictionsByMarket(ctx, marketSlug)
	if err != nil {
		return nil, acperrors.Store("list predictions by market", err)
	}
	return preds, nil
}

// Leaderboard ranks agents with at least 5 resolved predictions by
// ascending Brier score (lower is better), per spec.md §4.8.
func (s *Store) Leaderboard(ctx context.Context) ([]domain.Stats, error) {
	all, err := s.gateway.ListStats(ctx)
	if err != nil {
		return nil, acperrors.Store("list stats", err)
	}

	qualified := make([]domain.Stats, 0, len(all))
	for _, st := range all {
		if st.Resolved >= leaderboardMin {
			qualified = append(qualified, st)
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].BrierScore != qualified[j].BrierScore {
			return qualified[i].BrierScore < qualified[j].BrierScore
		}
		if qualified[i].Accuracy != qualified[j].Accuracy {
			return qualified[i].Accuracy > qualified[j].Accuracy
		}
		return qualified[i].AgentID < qualified[j].AgentID
	})
	return qualified, nil
}
