package orchestration

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
)

const defaultHeartbeatInterval = 30 * time.Second

// AgentRegistry tracks orchestration-plane workers and their liveness
// (spec.md §4.7). Distinct from internal/registry, which tracks
// commerce-plane agent/service listings.
type AgentRegistry struct {
	mu                sync.RWMutex
	agents            map[string]domain.Agent
	heartbeatInterval time.Duration
	cron              *cron.Cron
	events            chan AgentEvent
	log               *logger.Logger
}

// NewAgentRegistry constructs an AgentRegistry. heartbeatInterval governs
// both the expected heartbeat cadence and the staleness sweep period; an
// agent silent for 2x that interval is marked offline.
func NewAgentRegistry(heartbeatInterval time.Duration, log *logger.Logger) *AgentRegistry {
	if log == nil {
		log = logger.NewDefault("orchestration.registry")
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	return &AgentRegistry{
		agents:            make(map[string]domain.Agent),
		heartbeatInterval: heartbeatInterval,
		events:            newAgentChan(),
		log:               log,
	}
}

// Events exposes the agent event stream (offline transitions today).
func (r *AgentRegistry) Events() <-chan AgentEvent { return r.events }

// Register adds or replaces a worker record.
func (r *AgentRegistry) Register(a domain.Agent) domain.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Status == "" {
		a.Status = domain.AgentIdle
	}
	a.LastHeartbeat = time.Now().UTC()
	r.agents[a.ID] = a
	return a
}

// Unregister removes a worker record; a no-op if absent.
func (r *AgentRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// UpdateStatus transitions a worker's status directly.
func (r *AgentRegistry) UpdateStatus(id string, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return acperrors.NotFound("orchestration agent", id)
	}
	a.Status = status
	r.agents[id] = a
	return nil
}

// Heartbeat refreshes LastHeartbeat and revives an offline agent to idle.
func (r *AgentRegistry) Heartbeat(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return acperrors.NotFound("orchestration agent", id)
	}
	a.LastHeartbeat = time.Now().UTC()
	if a.Status == domain.AgentOffline {
		a.Status = domain.AgentIdle
	}
	r.agents[id] = a
	return nil
}

// Get returns a single worker record.
func (r *AgentRegistry) Get(id string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return domain.Agent{}, acperrors.NotFound("orchestration agent", id)
	}
	return a, nil
}

// List returns every registered worker.
func (r *AgentRegistry) List() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// ListIdle returns idle workers ordered oldest-heartbeat-first, which
// doubles as the round-robin/least-busy tie-break the Orchestrator uses.
func (r *AgentRegistry) ListIdle() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Agent
	for _, a := range r.agents {
		if a.Status == domain.AgentIdle {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastHeartbeat.Before(out[j].LastHeartbeat) })
	return out
}

// FindBest selects the longest-idle worker matching filter (spec.md §4.7).
func (r *AgentRegistry) FindBest(filter domain.FindBestFilter) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []domain.Agent
	for _, a := range r.agents {
		if a.Status == domain.AgentOffline || a.Status == domain.AgentError {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.PreferIdle && a.Status != domain.AgentIdle {
			continue
		}
		if len(filter.Capabilities) > 0 && !hasAllCapabilities(a.Capabilities, filter.Capabilities) {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return domain.Agent{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastHeartbeat.Before(candidates[j].LastHeartbeat)
	})
	return candidates[0], true
}

func hasAllCapabilities(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

// StartHeartbeatSweep starts the background ticker that marks agents
// offline once they've missed two heartbeat intervals (spec.md §4.7).
func (r *AgentRegistry) StartHeartbeatSweep() error {
	r.cron = cron.New()
	spec := fmt.Sprintf("@every %s", r.heartbeatInterval)
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *AgentRegistry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-2 * r.heartbeatInterval)
	for id, a := range r.agents {
		if a.Status != domain.AgentOffline && a.LastHeartbeat.Before(cutoff) {
			a.Status = domain.AgentOffline
			r.agents[id] = a
			emitAgent(r.events, AgentEvent{Kind: AgentEventOffline, Agent: a})
		}
	}
}

// Stop cancels the heartbeat sweep ticker (spec.md §5: subsystem stop
// cancels all tickers/timers).
func (r *AgentRegistry) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
