package orchestration

import domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"

// Event family kinds, per spec.md §9's redesign note (typed channels
// instead of a string-keyed emitter).

type AgentEventKind string

const (
	AgentEventOffline AgentEventKind = "agent:offline"
	AgentEventStatus  AgentEventKind = "agent:status"
)

// AgentEvent is published on AgentRegistry.Events().
type AgentEvent struct {
	Kind  AgentEventKind
	Agent domain.Agent
}

type TaskEventKind string

const (
	TaskEventSubmit   TaskEventKind = "task:submit"
	TaskEventAssign   TaskEventKind = "task:assign"
	TaskEventStart    TaskEventKind = "task:start"
	TaskEventComplete TaskEventKind = "task:complete"
	TaskEventRetry    TaskEventKind = "task:retry"
	TaskEventFail     TaskEventKind = "task:fail"
	TaskEventCancel   TaskEventKind = "task:cancel"
)

// TaskEvent is published on TaskQueue.Events().
type TaskEvent struct {
	Kind TaskEventKind
	Task domain.Task
}

type MessageEventKind string

const MessageEventSent MessageEventKind = "message:sent"

// MessageEvent is published on MessageBus.Events().
type MessageEvent struct {
	Kind    MessageEventKind
	Message domain.Message
}

const eventBufferSize = 256

func newAgentChan() chan AgentEvent     { return make(chan AgentEvent, eventBufferSize) }
func newTaskChan() chan TaskEvent       { return make(chan TaskEvent, eventBufferSize) }
func newMessageChan() chan MessageEvent { return make(chan MessageEvent, eventBufferSize) }

// emit* drop the event rather than block a full channel: event delivery to
// external observers (the websocket facade) is best-effort, never a
// correctness dependency of the orchestration plane itself.

func emitAgent(ch chan AgentEvent, ev AgentEvent) {
	select {
	case ch <- ev:
	default:
	}
}

func emitTask(ch chan TaskEvent, ev TaskEvent) {
	select {
	case ch <- ev:
	default:
	}
}

func emitMessage(ch chan MessageEvent, ev MessageEvent) {
	select {
	case ch <- ev:
	default:
	}
}
