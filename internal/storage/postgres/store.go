// Package postgres implements the Persistence Gateway (storage.Gateway)
// against PostgreSQL using database/sql and github.com/lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/agentcommerce/acp-core/internal/domain/agent"
	"github.com/agentcommerce/acp-core/internal/domain/agreement"
	"github.com/agentcommerce/acp-core/internal/domain/escrow"
	"github.com/agentcommerce/acp-core/internal/domain/prediction"
	"github.com/agentcommerce/acp-core/internal/storage"
)

// Store implements storage.Gateway backed by PostgreSQL. JSON-shaped
// fields (capabilities, parties, terms, conditions, tx signatures) are
// marshalled to JSON and stored in JSONB columns; Store is the sole party
// that interprets them.
type Store struct {
	db *sql.DB
}

var _ storage.Gateway = (*Store)(nil)

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open dials dsn, verifies connectivity, and returns a ready Store.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return New(db), nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

func toNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// --- Agents -----------------------------------------------------------

func (s *Store) SaveAgent(ctx context.Context, a agent.Agent) error {
	capsJSON, err := json.Marshal(a.Capabilities)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acp_agents (
			id, address, name, description, capabilities, status,
			total_transactions, successful_transactions, average_rating,
			total_ratings, response_time_avg_ms, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			capabilities = EXCLUDED.capabilities,
			status = EXCLUDED.status,
			total_transactions = EXCLUDED.total_transactions,
			successful_transactions = EXCLUDED.successful_transactions,
			average_rating = EXCLUDED.average_rating,
			total_ratings = EXCLUDED.total_ratings,
			response_time_avg_ms = EXCLUDED.response_time_avg_ms,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.Address, a.Name, a.Description, capsJSON, a.Status,
		a.Reputation.TotalTransactions, a.Reputation.SuccessfulTransactions,
		a.Reputation.AverageRating, a.Reputation.TotalRatings,
		a.Reputation.ResponseTimeAvgMs, a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAgent(scanner interface {
	Scan(dest ...interface{}) error
}) (agent.Agent, error) {
	var (
		a        agent.Agent
		capsJSON []byte
	)
	if err := scanner.Scan(
		&a.ID, &a.Address, &a.Name, &a.Description, &capsJSON, &a.Status,
		&a.Reputation.TotalTransactions, &a.Reputation.SuccessfulTransactions,
		&a.Reputation.AverageRating, &a.Reputation.TotalRatings,
		&a.Reputation.ResponseTimeAvgMs, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return agent.Agent{}, err
	}
	if len(capsJSON) > 0 {
		_ = json.Unmarshal(capsJSON, &a.Capabilities)
	}
	return a, nil
}

const selectAgentColumns = `
	id, address, name, description, capabilities, status,
	total_transactions, successful_transactions, average_rating,
	total_ratings, response_time_avg_ms, created_at, updated_at
`

func (s *Store) GetAgent(ctx context.Context, id string) (agent.Agent, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectAgentColumns+` FROM acp_agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return agent.Agent{}, false, nil
	}
	if err != nil {
		return agent.Agent{}, false, err
	}
	return a, true, nil
}

func (s *Store) GetAgentByAddress(ctx context.Context, address string) (agent.Agent, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectAgentColumns+` FROM acp_agents WHERE address = $1`, address)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return agent.Agent{}, false, nil
	}
	if err != nil {
		return agent.Agent{}, false, err
	}
	return a, true, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectAgentColumns+` FROM acp_agents ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE acp_agents SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	return err
}

// --- Services -----------------------------------------------------------

func (s *Store) SaveService(ctx context.Context, svc agent.Service) error {
	capJSON, err := json.Marshal(svc.Capability)
	if err != nil {
		return err
	}
	pricingJSON, err := json.Marshal(svc.Pricing)
	if err != nil {
		return err
	}
	var slaJSON []byte
	if svc.SLA != nil {
		if slaJSON, err = json.Marshal(svc.SLA); err != nil {
			return err
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acp_services (
			id, agent_id, capability, capability_category, pricing, sla, enabled, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			capability = EXCLUDED.capability,
			capability_category = EXCLUDED.capability_category,
			pricing = EXCLUDED.pricing,
			sla = EXCLUDED.sla,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`, svc.ID, svc.AgentID, capJSON, svc.Capability.Category, pricingJSON, slaJSON, svc.Enabled, svc.CreatedAt, svc.UpdatedAt)
	return err
}

const selectServiceColumns = `
	id, agent_id, capability, pricing, sla, enabled, created_at, updated_at
`

func scanService(scanner interface {
	Scan(dest ...interface{}) error
}) (agent.Service, error) {
	var (
		svc         agent.Service
		capJSON     []byte
		pricingJSON []byte
		slaJSON     []byte
	)
	if err := scanner.Scan(&svc.ID, &svc.AgentID, &capJSON, &pricingJSON, &slaJSON, &svc.Enabled, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return agent.Service{}, err
	}
	_ = json.Unmarshal(capJSON, &svc.Capability)
	_ = json.Unmarshal(pricingJSON, &svc.Pricing)
	if len(slaJSON) > 0 {
		var sla agent.SLA
		if json.Unmarshal(slaJSON, &sla) == nil {
			svc.SLA = &sla
		}
	}
	return svc, nil
}

func (s *Store) GetService(ctx context.Context, id string) (agent.Service, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectServiceColumns+` FROM acp_services WHERE id = $1`, id)
	svc, err := scanService(row)
	if err == sql.ErrNoRows {
		return agent.Service{}, false, nil
	}
	if err != nil {
		return agent.Service{}, false, err
	}
	return svc, true, nil
}

func (s *Store) ListServices(ctx context.Context) ([]agent.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectServiceColumns+` FROM acp_services ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agent.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) ListServicesByAgent(ctx context.Context, agentID string) ([]agent.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectServiceColumns+` FROM acp_services WHERE agent_id = $1 ORDER BY created_at`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agent.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) DeleteServicesByAgent(ctx context.Context, agentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM acp_services WHERE agent_id = $1`, agentID)
	return err
}

// --- Ratings -----------------------------------------------------------

func (s *Store) SaveRating(ctx context.Context, r agent.Rating) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acp_ratings (id, service_id, rater_address, rating, review, transaction_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.ServiceID, r.RaterAddress, r.Rating, toNullString(r.Review), toNullString(r.TransactionID), r.CreatedAt)
	return err
}

func (s *Store) ListRatingsByService(ctx context.Context, serviceID string) ([]agent.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, rater_address, rating, review, transaction_id, created_at
		FROM acp_ratings WHERE service_id = $1 ORDER BY created_at
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agent.Rating
	for rows.Next() {
		var (
			r      agent.Rating
			review sql.NullString
			txID   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.RaterAddress, &r.Rating, &review, &txID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Review = review.String
		r.TransactionID = txID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Agreements -----------------------------------------------------------

func (s *Store) SaveAgreement(ctx context.Context, a agreement.Agreement) error {
	partiesJSON, err := json.Marshal(a.Parties)
	if err != nil {
		return err
	}
	termsJSON, err := json.Marshal(a.Terms)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acp_agreements (
			id, hash, title, description, parties, terms, total_value, currency,
			escrow_id, version, previous_version_hash, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			hash = EXCLUDED.hash,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			parties = EXCLUDED.parties,
			terms = EXCLUDED.terms,
			total_value = EXCLUDED.total_value,
			currency = EXCLUDED.currency,
			escrow_id = EXCLUDED.escrow_id,
			version = EXCLUDED.version,
			previous_version_hash = EXCLUDED.previous_version_hash,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.Hash, a.Title, a.Description, partiesJSON, termsJSON, a.TotalValue,
		toNullString(a.Currency), toNullString(a.EscrowID), a.Version,
		toNullString(a.PreviousVersionHash), a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

const selectAgreementColumns = `
	id, hash, title, description, parties, terms, total_value, currency,
	escrow_id, version, previous_version_hash, status, created_at, updated_at
`

func scanAgreement(scanner interface {
	Scan(dest ...interface{}) error
}) (agreement.Agreement, error) {
	var (
		a           agreement.Agreement
		partiesJSON []byte
		termsJSON   []byte
		currency    sql.NullString
		escrowID    sql.NullString
		prevHash    sql.NullString
	)
	if err := scanner.Scan(
		&a.ID, &a.Hash, &a.Title, &a.Description, &partiesJSON, &termsJSON,
		&a.TotalValue, &currency, &escrowID, &a.Version, &prevHash, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return agreement.Agreement{}, err
	}
	_ = json.Unmarshal(partiesJSON, &a.Parties)
	_ = json.Unmarshal(termsJSON, &a.Terms)
	a.Currency = currency.String
	a.EscrowID = escrowID.String
	a.PreviousVersionHash = prevHash.String
	return a, nil
}

func (s *Store) GetAgreement(ctx context.Context, id string) (agreement.Agreement, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectAgreementColumns+` FROM acp_agreements WHERE id = $1`, id)
	a, err := scanAgreement(row)
	if err == sql.ErrNoRows {
		return agreement.Agreement{}, false, nil
	}
	if err != nil {
		return agreement.Agreement{}, false, err
	}
	return a, true, nil
}

func (s *Store) GetAgreementByHash(ctx context.Context, hash string) (agreement.Agreement, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectAgreementColumns+` FROM acp_agreements WHERE hash = $1`, hash)
	a, err := scanAgreement(row)
	if err == sql.ErrNoRows {
		return agreement.Agreement{}, false, nil
	}
	if err != nil {
		return agreement.Agreement{}, false, err
	}
	return a, true, nil
}

func (s *Store) ListAgreementsByParty(ctx context.Context, address string) ([]agreement.Agreement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectAgreementColumns+` FROM acp_agreements
		WHERE parties @> $1
		ORDER BY created_at
	`, `[{"address":"`+address+`"}]`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []agreement.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAgreementStatus(ctx context.Context, id string, status agreement.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE acp_agreements SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	return err
}

// --- Escrows -----------------------------------------------------------

func (s *Store) SaveEscrow(ctx context.Context, e escrow.Escrow) error {
	releaseJSON, err := json.Marshal(e.ReleaseConditions)
	if err != nil {
		return err
	}
	refundJSON, err := json.Marshal(e.RefundConditions)
	if err != nil {
		return err
	}
	txJSON, err := json.Marshal(e.TxSignatures)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acp_escrows (
			id, chain, buyer, seller, arbiter, amount, token_mint,
			release_conditions, refund_conditions, expires_at, description,
			agreement_hash, status, escrow_address, tx_signatures,
			created_at, funded_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			tx_signatures = EXCLUDED.tx_signatures,
			funded_at = EXCLUDED.funded_at,
			completed_at = EXCLUDED.completed_at
	`, e.ID, e.Chain, e.Buyer, e.Seller, toNullString(e.Arbiter), e.Amount,
		toNullString(e.TokenMint), releaseJSON, refundJSON, e.ExpiresAt,
		toNullString(e.Description), toNullString(e.AgreementHash), e.Status,
		e.EscrowAddress, txJSON, e.CreatedAt, toNullTime(e.FundedAt), toNullTime(e.CompletedAt))
	return err
}

const selectEscrowColumns = `
	id, chain, buyer, seller, arbiter, amount, token_mint,
	release_conditions, refund_conditions, expires_at, description,
	agreement_hash, status, escrow_address, tx_signatures,
	created_at, funded_at, completed_at
`

func scanEscrow(scanner interface {
	Scan(dest ...interface{}) error
}) (escrow.Escrow, error) {
	var (
		e           escrow.Escrow
		arbiter     sql.NullString
		tokenMint   sql.NullString
		description sql.NullString
		agreeHash   sql.NullString
		releaseJSON []byte
		refundJSON  []byte
		txJSON      []byte
		fundedAt    sql.NullTime
		completedAt sql.NullTime
	)
	if err := scanner.Scan(
		&e.ID, &e.Chain, &e.Buyer, &e.Seller, &arbiter, &e.Amount, &tokenMint,
		&releaseJSON, &refundJSON, &e.ExpiresAt, &description, &agreeHash,
		&e.Status, &e.EscrowAddress, &txJSON, &e.CreatedAt, &fundedAt, &completedAt,
	); err != nil {
		return escrow.Escrow{}, err
	}
	e.Arbiter = arbiter.String
	e.TokenMint = tokenMint.String
	e.Description = description.String
	e.AgreementHash = agreeHash.String
	_ = json.Unmarshal(releaseJSON, &e.ReleaseConditions)
	_ = json.Unmarshal(refundJSON, &e.RefundConditions)
	_ = json.Unmarshal(txJSON, &e.TxSignatures)
	e.FundedAt = fromNullTime(fundedAt)
	e.CompletedAt = fromNullTime(completedAt)
	return e, nil
}

func (s *Store) GetEscrow(ctx context.Context, id string) (escrow.Escrow, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectEscrowColumns+` FROM acp_escrows WHERE id = $1`, id)
	e, err := scanEscrow(row)
	if err == sql.ErrNoRows {
		return escrow.Escrow{}, false, nil
	}
	if err != nil {
		return escrow.Escrow{}, false, err
	}
	return e, true, nil
}

func (s *Store) ListEscrowsByParty(ctx context.Context, address string) ([]escrow.Escrow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectEscrowColumns+` FROM acp_escrows
		WHERE buyer = $1 OR seller = $1 OR arbiter = $1
		ORDER BY created_at
	`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []escrow.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEscrowsByStatus(ctx context.Context, status escrow.Status) ([]escrow.Escrow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectEscrowColumns+` FROM acp_escrows WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []escrow.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEscrowStatus(ctx context.Context, id string, status escrow.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE acp_escrows SET status = $2 WHERE id = $1`, id, status)
	return err
}

// --- Keypair envelopes -----------------------------------------------------------

func (s *Store) PutKeypairEnvelope(ctx context.Context, escrowID, envelope string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acp_escrow_keypairs (escrow_id, encrypted_keypair)
		VALUES ($1,$2)
		ON CONFLICT (escrow_id) DO UPDATE SET encrypted_keypair = EXCLUDED.encrypted_keypair
	`, escrowID, envelope)
	return err
}

func (s *Store) GetKeypairEnvelope(ctx context.Context, escrowID string) (string, bool, error) {
	var env string
	err := s.db.QueryRowContext(ctx, `SELECT encrypted_keypair FROM acp_escrow_keypairs WHERE escrow_id = $1`, escrowID).Scan(&env)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return env, true, nil
}

func (s *Store) DeleteKeypairEnvelope(ctx context.Context, escrowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM acp_escrow_keypairs WHERE escrow_id = $1`, escrowID)
	return err
}

// --- Predictions -----------------------------------------------------------

func (s *Store) SavePrediction(ctx context.Context, p prediction.Prediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acp_predictions (
			id, agent_id, market_slug, probability, rationale, resolved,
			outcome, brier, created_at, resolved_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			probability = EXCLUDED.probability,
			rationale = EXCLUDED.rationale,
			resolved = EXCLUDED.resolved,
			outcome = EXCLUDED.outcome,
			brier = EXCLUDED.brier,
			resolved_at = EXCLUDED.resolved_at
	`, p.ID, p.AgentID, p.MarketSlug, p.Probability, p.Rationale, p.Resolved,
		p.Outcome, p.Brier, p.CreatedAt, toNullTime(p.ResolvedAt))
	return err
}

const selectPredictionColumns = `
	id, agent_id, market_slug, probability, rationale, resolved, outcome, brier, created_at, resolved_at
`

func scanPrediction(scanner interface {
	Scan(dest ...interface{}) error
}) (prediction.Prediction, error) {
	var (
		p          prediction.Prediction
		resolvedAt sql.NullTime
	)
	if err := scanner.Scan(&p.ID, &p.AgentID, &p.MarketSlug, &p.Probability, &p.Rationale,
		&p.Resolved, &p.Outcome, &p.Brier, &p.CreatedAt, &resolvedAt); err != nil {
		return prediction.Prediction{}, err
	}
	p.ResolvedAt = fromNullTime(resolvedAt)
	return p, nil
}

func (s *Store) GetPrediction(ctx context.Context, id string) (prediction.Prediction, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectPredictionColumns+` FROM acp_predictions WHERE id = $1`, id)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return prediction.Prediction{}, false, nil
	}
	if err != nil {
		return prediction.Prediction{}, false, err
	}
	return p, true, nil
}

func (s *Store) GetActivePrediction(ctx context.Context, agentID, marketSlug string) (prediction.Prediction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectPredictionColumns+` FROM acp_predictions
		WHERE agent_id = $1 AND market_slug = $2 AND resolved = false
		ORDER BY created_at DESC LIMIT 1
	`, agentID, marketSlug)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return prediction.Prediction{}, false, nil
	}
	if err != nil {
		return prediction.Prediction{}, false, err
	}
	return p, true, nil
}

func (s *Store) ListPredictionsByAgent(ctx context.Context, agentID string) ([]prediction.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectPredictionColumns+` FROM acp_predictions WHERE agent_id = $1 ORDER BY created_at`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []prediction.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPredictionsByMarket(ctx context.Context, marketSlug string) ([]prediction.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectPredictionColumns+` FROM acp_predictions WHERE market_slug = $1 ORDER BY created_at`, marketSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []prediction.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveStats(ctx context.Context, st prediction.Stats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acp_prediction_stats (
			agent_id, resolved, correct, brier_score, accuracy, streak_current, streak_best
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (agent_id) DO UPDATE SET
			resolved = EXCLUDED.resolved,
			correct = EXCLUDED.correct,
			brier_score = EXCLUDED.brier_score,
			accuracy = EXCLUDED.accuracy,
			streak_current = EXCLUDED.streak_current,
			streak_best = EXCLUDED.streak_best
	`, st.AgentID, st.Resolved, st.Correct, st.BrierScore, st.Accuracy, st.StreakCurrent, st.StreakBest)
	return err
}

func (s *Store) GetStats(ctx context.Context, agentID string) (prediction.Stats, bool, error) {
	var st prediction.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT agent_id, resolved, correct, brier_score, accuracy, streak_current, streak_best
		FROM acp_prediction_stats WHERE agent_id = $1
	`, agentID).Scan(&st.AgentID, &st.Resolved, &st.Correct, &st.BrierScore, &st.Accuracy, &st.StreakCurrent, &st.StreakBest)
	if err == sql.ErrNoRows {
		return prediction.Stats{}, false, nil
	}
	if err != nil {
		return prediction.Stats{}, false, err
	}
	return st, true, nil
}

func (s *Store) ListStats(ctx context.Context) ([]prediction.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, resolved, correct, brier_score, accuracy, streak_current, streak_best
		FROM acp_prediction_stats WHERE resolved >= 5 ORDER BY brier_score ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []prediction.Stats
	for rows.Next() {
		var st prediction.Stats
		if err := rows.Scan(&st.AgentID, &st.Resolved, &st.Correct, &st.BrierScore, &st.Accuracy, &st.StreakCurrent, &st.StreakBest); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
