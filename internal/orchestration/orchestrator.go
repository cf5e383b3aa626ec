package orchestration

import (
	"context"
	"math/rand"
	"sync"
	"time"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	"github.com/agentcommerce/acp-core/internal/logger"
)

// debounceDelay is the fixed scheduling debounce (spec.md §4.7): bursts of
// submissions within this window collapse into one dispatch sweep.
const debounceDelay = 100 * time.Millisecond

// Orchestrator binds an AgentRegistry, TaskQueue, and MessageBus, assigning
// pending tasks to idle agents as a debounced dispatch loop rather than
// per-submission (spec.md §4.7).
type Orchestrator struct {
	registry *AgentRegistry
	queue    *TaskQueue
	bus      *MessageBus
	policy   domain.LoadBalancing

	mu      sync.Mutex
	timer   *time.Timer
	rrIndex int

	log *logger.Logger
}

// NewOrchestrator constructs an Orchestrator using policy for agent
// selection (round-robin if unset/unrecognized).
func NewOrchestrator(registry *AgentRegistry, queue *TaskQueue, bus *MessageBus, policy domain.LoadBalancing, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewDefault("orchestration.orchestrator")
	}
	return &Orchestrator{registry: registry, queue: queue, bus: bus, policy: policy, log: log}
}

// SubmitTask enqueues t and schedules a debounced dispatch sweep.
func (o *Orchestrator) SubmitTask(t domain.Task) domain.Task {
	task := o.queue.Submit(t)
	o.scheduleDebounced()
	return task
}

// CompleteTask marks taskID completed, frees agentID back to idle, and
// schedules another sweep so any tasks it was blocking can proceed.
func (o *Orchestrator) CompleteTask(taskID, agentID string) error {
	if err := o.queue.Complete(taskID); err != nil {
		return err
	}
	if err := o.registry.UpdateStatus(agentID, domain.AgentIdle); err != nil {
		return err
	}
	o.scheduleDebounced()
	return nil
}

// FailTask records taskID's failure (which may re-queue it under the retry
// cap), frees agentID, and schedules another sweep.
func (o *Orchestrator) FailTask(taskID, agentID, reason string) error {
	if err := o.queue.Fail(taskID, reason); err != nil {
		return err
	}
	if err := o.registry.UpdateStatus(agentID, domain.AgentIdle); err != nil {
		return err
	}
	o.scheduleDebounced()
	return nil
}

func (o *Orchestrator) scheduleDebounced() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(debounceDelay, o.dispatch)
}

// dispatch drains the pending queue, assigning each task to an agent
// chosen per o.policy, until no idle agent or no pending task remains.
func (o *Orchestrator) dispatch() {
	for {
		agent, ok := o.pickAgent()
		if !ok {
			return
		}
		task, ok := o.queue.Assign(agent.ID)
		if !ok {
			return
		}

		if err := o.registry.UpdateStatus(agent.ID, domain.AgentBusy); err != nil {
			o.log.WithError(err).Warn("orchestrator: failed to mark agent busy")
			continue
		}
		if err := o.queue.Start(task.ID, nil); err != nil {
			o.log.WithError(err).Warn("orchestrator: failed to start task")
			continue
		}

		o.bus.Send(context.Background(), domain.Message{
			From:    "orchestrator",
			To:      agent.ID,
			Type:    domain.MessageCommand,
			Payload: map[string]interface{}{"command": "execute", "task": task},
		})
	}
}

func (o *Orchestrator) pickAgent() (domain.Agent, bool) {
	idle := o.registry.ListIdle()
	if len(idle) == 0 {
		return domain.Agent{}, false
	}

	switch o.policy {
	case domain.LBLeastBusy, domain.LBCapability:
		// ListIdle is already ordered oldest-heartbeat-first, which stands
		// in for "least busy" among agents with no finer-grained load
		// signal; capability-based filtering happens upstream of pickAgent
		// via FindBestFilter when the caller needs it.
		return idle[0], true
	case domain.LBRandom:
		return idle[rand.Intn(len(idle))], true
	default: // round-robin
		o.mu.Lock()
		idx := o.rrIndex % len(idle)
		o.rrIndex++
		o.mu.Unlock()
		return idle[idx], true
	}
}

// Stop cancels the pending debounce timer.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
}
