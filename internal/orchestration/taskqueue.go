package orchestration

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
)

const defaultTaskTimeout = 5 * time.Minute

// TaskQueue is a priority-sorted work queue with retry and one-shot
// per-task timeout support (spec.md §4.7).
type TaskQueue struct {
	mu             sync.Mutex
	tasks          map[string]domain.Task
	pending        []string
	timers         map[string]*time.Timer
	maxRetries     int
	defaultTimeout time.Duration
	events         chan TaskEvent
	log            *logger.Logger
}

// NewTaskQueue constructs a TaskQueue. maxRetries bounds Fail's retry
// counter; defaultTimeout is used for tasks submitted without one.
func NewTaskQueue(maxRetries int, defaultTimeout time.Duration, log *logger.Logger) *TaskQueue {
	if log == nil {
		log = logger.NewDefault("orchestration.taskqueue")
	}
	if defaultTimeout <= 0 {
		defaultTimeout = defaultTaskTimeout
	}
	return &TaskQueue{
		tasks:          make(map[string]domain.Task),
		timers:         make(map[string]*time.Timer),
		maxRetries:     maxRetries,
		defaultTimeout: defaultTimeout,
		events:         newTaskChan(),
		log:            log,
	}
}

// Events exposes the task lifecycle event stream.
func (q *TaskQueue) Events() <-chan TaskEvent { return q.events }

// Submit enqueues a task, assigning it an ID/timeout/timestamps if unset.
func (q *TaskQueue) Submit(t domain.Task) domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timeout <= 0 {
		t.Timeout = q.defaultTimeout
	}
	now := time.Now().UTC()
	t.Status = domain.TaskPending
	t.CreatedAt = now
	t.UpdatedAt = now
	q.tasks[t.ID] = t
	q.insertPending(t.ID)

	emitTask(q.events, TaskEvent{Kind: TaskEventSubmit, Task: t})
	return t
}

// insertPending keeps q.pending sorted descending by priority, stable on
// ties (equal-priority tasks stay in submission order). Caller holds q.mu.
func (q *TaskQueue) insertPending(id string) {
	t := q.tasks[id]
	idx := sort.Search(len(q.pending), func(i int) bool {
		return q.tasks[q.pending[i]].Priority < t.Priority
	})
	q.pending = append(q.pending, "")
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = id
}

func (q *TaskQueue) removePending(id string) {
	for i, pid := range q.pending {
		if pid == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Assign pops the highest-priority pending task and binds it to agentID.
func (q *TaskQueue) Assign(agentID string) (domain.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return domain.Task{}, false
	}
	id := q.pending[0]
	q.pending = q.pending[1:]

	t := q.tasks[id]
	t.Status = domain.TaskAssigned
	t.AssignedTo = agentID
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t

	emitTask(q.events, TaskEvent{Kind: TaskEventAssign, Task: t})
	return t, true
}

// Start marks id running and arms its one-shot timeout timer. onTimeout,
// if non-nil, runs after the task is auto-failed for exceeding its
// timeout.
func (q *TaskQueue) Start(id string, onTimeout func(taskID string)) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return acperrors.NotFound("task", id)
	}
	t.Status = domain.TaskRunning
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t
	timeout := t.Timeout
	q.mu.Unlock()

	emitTask(q.events, TaskEvent{Kind: TaskEventStart, Task: t})

	timer := time.AfterFunc(timeout, func() {
		q.Fail(id, "task timeout")
		if onTimeout != nil {
			onTimeout(id)
		}
	})
	q.mu.Lock()
	q.timers[id] = timer
	q.mu.Unlock()
	return nil
}

func (q *TaskQueue) disarm(id string) {
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
}

// Complete marks id completed and disarms its timeout timer.
func (q *TaskQueue) Complete(id string) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return acperrors.NotFound("task", id)
	}
	q.disarm(id)
	t.Status = domain.TaskCompleted
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t
	q.mu.Unlock()

	emitTask(q.events, TaskEvent{Kind: TaskEventComplete, Task: t})
	return nil
}

// Fail records reason and either re-queues id (under maxRetries) or
// terminates it as failed.
func (q *TaskQueue) Fail(id, reason string) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return acperrors.NotFound("task", id)
	}
	q.disarm(id)
	t.Error = reason
	t.UpdatedAt = time.Now().UTC()

	if t.Retries < q.maxRetries {
		t.Retries++
		t.Status = domain.TaskPending
		t.AssignedTo = ""
		q.tasks[id] = t
		q.insertPending(id)
		q.mu.Unlock()

		emitTask(q.events, TaskEvent{Kind: TaskEventRetry, Task: t})
		return nil
	}

	t.Status = domain.TaskFailed
	q.tasks[id] = t
	q.mu.Unlock()

	emitTask(q.events, TaskEvent{Kind: TaskEventFail, Task: t})
	return nil
}

// Cancel transitions id to cancelled from any non-terminal state.
func (q *TaskQueue) Cancel(id string) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return acperrors.NotFound("task", id)
	}
	if isTerminal(t.Status) {
		q.mu.Unlock()
		return acperrors.InvalidState("task is already terminal")
	}
	q.disarm(id)
	q.removePending(id)
	t.Status = domain.TaskCancelled
	t.UpdatedAt = time.Now().UTC()
	q.tasks[id] = t
	q.mu.Unlock()

	emitTask(q.events, TaskEvent{Kind: TaskEventCancel, Task: t})
	return nil
}

func isTerminal(s domain.TaskStatus) bool {
	return s == domain.TaskCompleted || s == domain.TaskFailed || s == domain.TaskCancelled
}

// Get returns a single task record.
func (q *TaskQueue) Get(id string) (domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return domain.Task{}, acperrors.NotFound("task", id)
	}
	return t, nil
}

// PendingCount reports the number of tasks awaiting assignment.
func (q *TaskQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
