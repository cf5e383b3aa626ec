// Package registry implements the Agent Registry (spec.md §4.3): a
// write-through cache over agent profiles, service listings, and ratings,
// with reputation mutated under a per-agent logical lock.
package registry

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/agent"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/storage"
)

// Store is the subset of the Persistence Gateway the registry writes
// through.
type Store interface {
	storage.AgentStore
	storage.ServiceStore
	storage.RatingStore
}

// Registry caches Agent/Service/Rating state and enforces the registry's
// mutation contracts.
type Registry struct {
	store Store
	log   *logger.Logger

	mu       sync.RWMutex
	agents   map[string]domain.Agent
	byAddr   map[string]string
	services map[string]domain.Service
	byAgent  map[string][]string

	locks   sync.Map // agentID -> *sync.Mutex
}

// New constructs a Registry. Call Hydrate to eagerly load cached state
// from store (spec.md §9 prefers eager hydration over lazy loading).
func New(store Store, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Registry{
		store:    store,
		log:      log,
		agents:   make(map[string]domain.Agent),
		byAddr:   make(map[string]string),
		services: make(map[string]domain.Service),
		byAgent:  make(map[string][]string),
	}
}

// Hydrate loads every Agent and Service from the store into the cache.
func (r *Registry) Hydrate(ctx context.Context) error {
	agents, err := r.store.ListAgents(ctx)
	if err != nil {
		return acperrors.Store("list agents", err)
	}
	services, err := r.store.ListServices(ctx)
	if err != nil {
		return acperrors.Store("list services", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		r.agents[a.ID] = a
		r.byAddr[a.Address] = a.ID
	}
	for _, s := range services {
		r.services[s.ID] = s
		r.byAgent[s.AgentID] = append(r.byAgent[s.AgentID], s.ID)
	}
	return nil
}

func (r *Registry) lockFor(agentID string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(agentID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Register creates a new Agent. Fails Conflict if address is already
// indexed.
func (r *Registry) Register(ctx context.Context, profile domain.Agent) (domain.Agent, error) {
	r.mu.RLock()
	_, exists := r.byAddr[profile.Address]
	r.mu.RUnlock()
	if exists {
		return domain.Agent{}, acperrors.Conflict("agent address already registered")
	}

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.Status == "" {
		profile.Status = domain.StatusActive
	}
	profile.Reputation = domain.Reputation{}

	if err := r.store.SaveAgent(ctx, profile); err != nil {
		return domain.Agent{}, acperrors.Store("save agent", err)
	}

	r.mu.Lock()
	r.agents[profile.ID] = profile
	r.byAddr[profile.Address] = profile.ID
	r.mu.Unlock()

	r.log.WithField("agentId", profile.ID).Info("registry: agent registered")
	return profile, nil
}

// Unregister removes an Agent and its services from the cache and deletes
// its services from the store, so a subsequent Register with the same
// address passes the registry's duplicate check. The agent record itself
// is not deleted from the store.
func (r *Registry) Unregister(ctx context.Context, agentID string) error {
	r.mu.Lock()
	a, ok := r.agents[agentID]
	if ok {
		delete(r.agents, agentID)
		delete(r.byAddr, a.Address)
		for _, sid := range r.byAgent[agentID] {
			delete(r.services, sid)
		}
		delete(r.byAgent, agentID)
	}
	r.mu.Unlock()

	if err := r.store.DeleteServicesByAgent(ctx, agentID); err != nil {
		return acperrors.Store("delete services by agent", err)
	}
	return nil
}

// GetAgent returns a cached Agent.
func (r *Registry) GetAgent(_ context.Context, id string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return domain.Agent{}, acperrors.NotFound("agent", id)
	}
	return a, nil
}

// ListService appends a listing to agentID. Fails NotFound if the agent is
// absent.
func (r *Registry) ListService(ctx context.Context, agentID string, listing domain.Service) (domain.Service, error) {
	r.mu.RLock()
	_, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return domain.Service{}, acperrors.NotFound("agent", agentID)
	}

	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	listing.AgentID = agentID
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := r.store.SaveService(ctx, listing); err != nil {
		return domain.Service{}, acperrors.Store("save service", err)
	}

	r.mu.Lock()
	r.services[listing.ID] = listing
	r.byAgent[agentID] = append(r.byAgent[agentID], listing.ID)
	r.mu.Unlock()

	return listing, nil
}

type serviceMatch struct {
	service domain.Service
	agent   domain.Agent
}

// SearchServices scans the cache for Services matching filters, ranked by
// averageRating * log10(totalTransactions+1) descending, ties broken by
// most-recent update (spec.md §4.3).
func (r *Registry) SearchServices(_ context.Context, filters domain.SearchFilters) ([]domain.Service, error) {
	matches := r.matchServices(filters)
	sort.Slice(matches, func(i, j int) bool {
		si, sj := rankScore(matches[i].agent), rankScore(matches[j].agent)
		if si != sj {
			return si > sj
		}
		return matches[i].service.UpdatedAt.After(matches[j].service.UpdatedAt)
	})
	out := make([]domain.Service, len(matches))
	for i, m := range matches {
		out[i] = m.service
	}
	return out, nil
}

// SearchAgents scans the cache for Agents offering a Service matching
// filters, deduplicated by agent id, ranked the same way as SearchServices.
func (r *Registry) SearchAgents(_ context.Context, filters domain.SearchFilters) ([]domain.Agent, error) {
	matches := r.matchServices(filters)
	seen := make(map[string]bool)
	var agents []domain.Agent
	for _, m := range matches {
		if seen[m.agent.ID] {
			continue
		}
		seen[m.agent.ID] = true
		agents = append(agents, m.agent)
	}
	sort.Slice(agents, func(i, j int) bool {
		si, sj := rankScore(agents[i]), rankScore(agents[j])
		if si != sj {
			return si > sj
		}
		return agents[i].UpdatedAt.After(agents[j].UpdatedAt)
	})
	return agents, nil
}

func rankScore(a domain.Agent) float64 {
	return a.Reputation.AverageRating * math.Log10(float64(a.Reputation.TotalTransactions)+1)
}

func (r *Registry) matchServices(filters domain.SearchFilters) []serviceMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []serviceMatch
	for _, s := range r.services {
		a, ok := r.agents[s.AgentID]
		if !ok {
			continue
		}
		if !matchesFilters(s, a, filters) {
			continue
		}
		out = append(out, serviceMatch{service: s, agent: a})
	}
	return out
}

func matchesFilters(s domain.Service, a domain.Agent, f domain.SearchFilters) bool {
	if f.Category != "" && s.Capability.Category != f.Category {
		return false
	}
	if f.Capability != "" {
		needle := strings.ToLower(f.Capability)
		haystack := strings.ToLower(s.Capability.Name + " " + s.Capability.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if f.MaxPrice != "" {
		budget, err1 := strconv.ParseFloat(f.MaxPrice, 64)
		price, err2 := strconv.ParseFloat(s.Pricing.Amount, 64)
		if err1 == nil && err2 == nil && price > budget {
			return false
		}
	}
	if f.MinRating > 0 && a.Reputation.AverageRating < f.MinRating {
		return false
	}
	if f.Query != "" {
		needle := strings.ToLower(f.Query)
		haystack := strings.ToLower(a.Name + " " + a.Description + " " + s.Capability.Name)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// RateService applies a rolling-average update per spec.md §4.3:
// newAvg = (oldAvg*n + r)/(n+1), rounded to 2 decimals. Multiple ratings
// per rater are accepted; de-duplication is out of scope for the core
// (spec.md §9, Open Question (a)).
func (r *Registry) RateService(ctx context.Context, serviceID, rater string, rating int, review string) (domain.Rating, error) {
	if rating < 1 || rating > 5 {
		return domain.Rating{}, acperrors.Validation("rating", "must be between 1 and 5")
	}

	r.mu.RLock()
	svc, ok := r.services[serviceID]
	r.mu.RUnlock()
	if !ok {
		return domain.Rating{}, acperrors.NotFound("service", serviceID)
	}

	lock := r.lockFor(svc.AgentID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	a := r.agents[svc.AgentID]
	r.mu.RUnlock()

	n := a.Reputation.TotalRatings
	newAvg := round2((a.Reputation.AverageRating*float64(n) + float64(rating)) / float64(n+1))
	a.Reputation.AverageRating = newAvg
	a.Reputation.TotalRatings = n + 1
	a.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveAgent(ctx, a); err != nil {
		return domain.Rating{}, acperrors.Store("save agent", err)
	}

	r.mu.Lock()
	r.agents[a.ID] = a
	r.mu.Unlock()

	rec := domain.Rating{
		ID:           uuid.NewString(),
		ServiceID:    serviceID,
		RaterAddress: rater,
		Rating:       rating,
		Review:       review,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.store.SaveRating(ctx, rec); err != nil {
		return domain.Rating{}, acperrors.Store("save rating", err)
	}
	return rec, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RecordTransaction increments an agent's transaction counters and rolling
// response-time mean (spec.md §4.3).
func (r *Registry) RecordTransaction(ctx context.Context, agentID string, success bool, responseTimeMs *float64) error {
	lock := r.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	a, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return acperrors.NotFound("agent", agentID)
	}

	n := a.Reputation.TotalTransactions
	a.Reputation.TotalTransactions = n + 1
	if success {
		a.Reputation.SuccessfulTransactions++
	}
	if responseTimeMs != nil {
		a.Reputation.ResponseTimeAvgMs = (a.Reputation.ResponseTimeAvgMs*float64(n) + *responseTimeMs) / float64(n+1)
	}
	a.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveAgent(ctx, a); err != nil {
		return acperrors.Store("save agent", err)
	}

	r.mu.Lock()
	r.agents[agentID] = a
	r.mu.Unlock()
	return nil
}
