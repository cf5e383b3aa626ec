// Package orchestration holds the Task, Message, and orchestration-plane
// Agent data model (spec.md §3, §4.7).
package orchestration

import "time"

// AgentStatus is an orchestration-plane Agent's liveness/availability state.
// Distinct from agent.Status (commerce-plane lifecycle); an orchestration
// Agent is a worker the Orchestrator dispatches Tasks to.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentBusy    AgentStatus = "busy"
	AgentOffline AgentStatus = "offline"
	AgentError   AgentStatus = "error"
)

// Agent is a worker registered with the orchestration AgentRegistry.
type Agent struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Capabilities  []string    `json:"capabilities"`
	Status        AgentStatus `json:"status"`
	LastHeartbeat time.Time   `json:"lastHeartbeat"`
	CurrentTaskID string      `json:"currentTaskId,omitempty"`
}

// TaskStatus is a Task's lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of work routed through the TaskQueue/Orchestrator.
type Task struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Priority   int           `json:"priority"`
	Payload    interface{}   `json:"payload"`
	Status     TaskStatus    `json:"status"`
	AssignedTo string        `json:"assignedTo,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	Retries    int           `json:"-"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Error      string        `json:"error,omitempty"`
}

// MessageType classifies a Message on the bus.
type MessageType string

const (
	MessageRequest   MessageType = "request"
	MessageResponse  MessageType = "response"
	MessageEvent     MessageType = "event"
	MessageCommand   MessageType = "command"
	MessageHeartbeat MessageType = "heartbeat"
)

// Message is exchanged over the MessageBus.
type Message struct {
	ID            string      `json:"id"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Type          MessageType `json:"type"`
	Payload       interface{} `json:"payload"`
	Timestamp     time.Time   `json:"timestamp"`
	ReplyTo       string      `json:"replyTo,omitempty"`
	CorrelationID string      `json:"correlationId,omitempty"`
}

// LoadBalancing selects how the Orchestrator picks an agent for a task.
type LoadBalancing string

const (
	LBRoundRobin LoadBalancing = "round-robin"
	LBLeastBusy  LoadBalancing = "least-busy"
	LBRandom     LoadBalancing = "random"
	LBCapability LoadBalancing = "capability"
)

// FindBestFilter narrows findBest (spec.md §4.7).
type FindBestFilter struct {
	Type         string
	Capabilities []string
	PreferIdle   bool
}
