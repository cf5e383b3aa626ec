package storage

import (
	"context"
	"sync"

	"github.com/agentcommerce/acp-core/internal/domain/agent"
	"github.com/agentcommerce/acp-core/internal/domain/agreement"
	"github.com/agentcommerce/acp-core/internal/domain/escrow"
	"github.com/agentcommerce/acp-core/internal/domain/prediction"
)

// MemoryStore is a thread-safe, process-local Gateway implementation used
// for tests and for the development/no-database run mode. Getters return
// struct copies; slice and map fields inside them still share backing
// storage with the stored record.
type MemoryStore struct {
	mu sync.RWMutex

	agents          map[string]agent.Agent
	agentsByAddr    map[string]string // address -> id
	services        map[string]agent.Service
	servicesByAgent map[string][]string
	ratings         map[string][]agent.Rating // serviceID -> ratings

	agreements       map[string]agreement.Agreement
	agreementsByHash map[string]string // hash -> id

	escrows map[string]escrow.Escrow
	keypairs map[string]string // escrowID -> envelope

	predictions    map[string]prediction.Prediction
	activePrediction map[string]string // agentID|marketSlug -> predictionID
	stats          map[string]prediction.Stats
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:           make(map[string]agent.Agent),
		agentsByAddr:     make(map[string]string),
		services:         make(map[string]agent.Service),
		servicesByAgent:  make(map[string][]string),
		ratings:          make(map[string][]agent.Rating),
		agreements:       make(map[string]agreement.Agreement),
		agreementsByHash: make(map[string]string),
		escrows:          make(map[string]escrow.Escrow),
		keypairs:         make(map[string]string),
		predictions:      make(map[string]prediction.Prediction),
		activePrediction: make(map[string]string),
		stats:            make(map[string]prediction.Stats),
	}
}

// --- Agents ---

func (m *MemoryStore) SaveAgent(_ context.Context, a agent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = a
	m.agentsByAddr[a.Address] = a.ID
	return nil
}

func (m *MemoryStore) GetAgent(_ context.Context, id string) (agent.Agent, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	return a, ok, nil
}

func (m *MemoryStore) GetAgentByAddress(_ context.Context, address string) (agent.Agent, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.agentsByAddr[address]
	if !ok {
		return agent.Agent{}, false, nil
	}
	a, ok := m.agents[id]
	return a, ok, nil
}

func (m *MemoryStore) ListAgents(_ context.Context) ([]agent.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]agent.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) UpdateAgentStatus(_ context.Context, id string, status agent.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil
	}
	a.Status = status
	m.agents[id] = a
	return nil
}

// --- Services ---

func (m *MemoryStore) SaveService(_ context.Context, s agent.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.services[s.ID]; !exists {
		m.servicesByAgent[s.AgentID] = append(m.servicesByAgent[s.AgentID], s.ID)
	}
	m.services[s.ID] = s
	return nil
}

func (m *MemoryStore) GetService(_ context.Context, id string) (agent.Service, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	return s, ok, nil
}

func (m *MemoryStore) ListServices(_ context.Context) ([]agent.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]agent.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) ListServicesByAgent(_ context.Context, agentID string) ([]agent.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.servicesByAgent[agentID]
	out := make([]agent.Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.services[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteServicesByAgent(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.servicesByAgent[agentID] {
		delete(m.services, id)
		delete(m.ratings, id)
	}
	delete(m.servicesByAgent, agentID)
	return nil
}

// --- Ratings ---

func (m *MemoryStore) SaveRating(_ context.Context, r agent.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[r.ServiceID] = append(m.ratings[r.ServiceID], r)
	return nil
}

func (m *MemoryStore) ListRatingsByService(_ context.Context, serviceID string) ([]agent.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.ratings[serviceID]
	out := make([]agent.Rating, len(src))
	copy(out, src)
	return out, nil
}

// --- Agreements ---

func (m *MemoryStore) SaveAgreement(_ context.Context, a agreement.Agreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agreements[a.ID] = a
	m.agreementsByHash[a.Hash] = a.ID
	return nil
}

func (m *MemoryStore) GetAgreement(_ context.Context, id string) (agreement.Agreement, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agreements[id]
	return a, ok, nil
}

func (m *MemoryStore) GetAgreementByHash(_ context.Context, hash string) (agreement.Agreement, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.agreementsByHash[hash]
	if !ok {
		return agreement.Agreement{}, false, nil
	}
	a, ok := m.agreements[id]
	return a, ok, nil
}

func (m *MemoryStore) ListAgreementsByParty(_ context.Context, address string) ([]agreement.Agreement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []agreement.Agreement
	for _, a := range m.agreements {
		for _, p := range a.Parties {
			if p.Address == address {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateAgreementStatus(_ context.Context, id string, status agreement.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return nil
	}
	a.Status = status
	m.agreements[id] = a
	return nil
}

// --- Escrows ---

func (m *MemoryStore) SaveEscrow(_ context.Context, e escrow.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escrows[e.ID] = e
	return nil
}

func (m *MemoryStore) GetEscrow(_ context.Context, id string) (escrow.Escrow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.escrows[id]
	return e, ok, nil
}

func (m *MemoryStore) ListEscrowsByParty(_ context.Context, address string) ([]escrow.Escrow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []escrow.Escrow
	for _, e := range m.escrows {
		if e.Buyer == address || e.Seller == address || e.Arbiter == address {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListEscrowsByStatus(_ context.Context, status escrow.Status) ([]escrow.Escrow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []escrow.Escrow
	for _, e := range m.escrows {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateEscrowStatus(_ context.Context, id string, status escrow.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.escrows[id]
	if !ok {
		return nil
	}
	e.Status = status
	m.escrows[id] = e
	return nil
}

// --- Keypair envelopes ---

func (m *MemoryStore) PutKeypairEnvelope(_ context.Context, escrowID, envelope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keypairs[escrowID] = envelope
	return nil
}

func (m *MemoryStore) GetKeypairEnvelope(_ context.Context, escrowID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env, ok := m.keypairs[escrowID]
	return env, ok, nil
}

func (m *MemoryStore) DeleteKeypairEnvelope(_ context.Context, escrowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keypairs, escrowID)
	return nil
}

// --- Predictions ---

func activeKey(agentID, marketSlug string) string { return agentID + "|" + marketSlug }

func (m *MemoryStore) SavePrediction(_ context.Context, p prediction.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[p.ID] = p
	key := activeKey(p.AgentID, p.MarketSlug)
	if p.Resolved {
		if m.activePrediction[key] == p.ID {
			delete(m.activePrediction, key)
		}
	} else {
		m.activePrediction[key] = p.ID
	}
	return nil
}

func (m *MemoryStore) GetPrediction(_ context.Context, id string) (prediction.Prediction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.predictions[id]
	return p, ok, nil
}

func (m *MemoryStore) GetActivePrediction(_ context.Context, agentID, marketSlug string) (prediction.Prediction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.activePrediction[activeKey(agentID, marketSlug)]
	if !ok {
		return prediction.Prediction{}, false, nil
	}
	p, ok := m.predictions[id]
	return p, ok, nil
}

func (m *MemoryStore) ListPredictionsByAgent(_ context.Context, agentID string) ([]prediction.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []prediction.Prediction
	for _, p := range m.predictions {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListPredictionsByMarket(_ context.Context, marketSlug string) ([]prediction.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []prediction.Prediction
	for _, p := range m.predictions {
		if p.MarketSlug == marketSlug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveStats(_ context.Context, s prediction.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[s.AgentID] = s
	return nil
}

func (m *MemoryStore) GetStats(_ context.Context, agentID string) (prediction.Stats, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[agentID]
	return s, ok, nil
}

func (m *MemoryStore) ListStats(_ context.Context) ([]prediction.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]prediction.Stats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, s)
	}
	return out, nil
}

var _ Gateway = (*MemoryStore)(nil)
