package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
)

const defaultRequestTimeout = 30 * time.Second

// Handler processes a Message delivered to a subscriber.
type Handler func(ctx context.Context, msg domain.Message)

type subscription struct {
	id      string
	agentID string
	handler Handler
}

type pendingReply struct {
	ch chan domain.Message
}

// MessageBus is the request/response and pub/sub transport between
// orchestration-plane agents (spec.md §4.7). Message ordering per sender
// is preserved because Send dispatches synchronously to every subscriber.
type MessageBus struct {
	mu      sync.Mutex
	subs    map[string][]subscription
	pending map[string]pendingReply
	events  chan MessageEvent
	log     *logger.Logger
}

// NewMessageBus constructs a MessageBus.
func NewMessageBus(log *logger.Logger) *MessageBus {
	if log == nil {
		log = logger.NewDefault("orchestration.messagebus")
	}
	return &MessageBus{
		subs:    make(map[string][]subscription),
		pending: make(map[string]pendingReply),
		events:  newMessageChan(),
		log:     log,
	}
}

// Events exposes the message-sent event stream.
func (b *MessageBus) Events() <-chan MessageEvent { return b.events }

// Subscribe registers handler for messages addressed to agentID, returning
// a token for Unsubscribe.
func (b *MessageBus) Subscribe(agentID string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := uuid.NewString()
	b.subs[agentID] = append(b.subs[agentID], subscription{id: token, agentID: agentID, handler: handler})
	return token
}

// Unsubscribe removes a handler registered under token.
func (b *MessageBus) Unsubscribe(agentID, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[agentID]
	for i, s := range subs {
		if s.id == token {
			b.subs[agentID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Send fills in ID/Timestamp, dispatches msg to every subscriber of
// msg.To, and resolves a pending Request if msg is a matching response.
func (b *MessageBus) Send(ctx context.Context, msg domain.Message) domain.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = time.Now().UTC()

	if msg.Type == domain.MessageResponse && msg.ReplyTo != "" {
		b.mu.Lock()
		reply, ok := b.pending[msg.ReplyTo]
		if ok {
			delete(b.pending, msg.ReplyTo)
		}
		b.mu.Unlock()
		if ok {
			reply.ch <- msg
		}
	}

	b.mu.Lock()
	handlers := append([]subscription(nil), b.subs[msg.To]...)
	b.mu.Unlock()
	for _, s := range handlers {
		s.handler(ctx, msg)
	}

	emitMessage(b.events, MessageEvent{Kind: MessageEventSent, Message: msg})
	return msg
}

// Request sends a request message and blocks for the matching Reply, or
// until timeout (default 30s) or ctx is done.
func (b *MessageBus) Request(ctx context.Context, from, to string, payload interface{}, timeout time.Duration) (domain.Message, error) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	correlationID := uuid.NewString()
	replyCh := make(chan domain.Message, 1)

	b.mu.Lock()
	b.pending[correlationID] = pendingReply{ch: replyCh}
	b.mu.Unlock()

	b.Send(ctx, domain.Message{
		From:          from,
		To:            to,
		Type:          domain.MessageRequest,
		Payload:       payload,
		CorrelationID: correlationID,
	})

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-time.After(timeout):
		b.mu.Lock()
		delete(b.pending, correlationID)
		b.mu.Unlock()
		return domain.Message{}, acperrors.Timeout("message bus request/reply")
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, correlationID)
		b.mu.Unlock()
		return domain.Message{}, ctx.Err()
	}
}

// Reply answers original, preserving its CorrelationID as ReplyTo so a
// blocked Request caller is resolved.
func (b *MessageBus) Reply(ctx context.Context, original domain.Message, payload interface{}) domain.Message {
	return b.Send(ctx, domain.Message{
		From:          original.To,
		To:            original.From,
		Type:          domain.MessageResponse,
		Payload:       payload,
		CorrelationID: original.CorrelationID,
		ReplyTo:       original.CorrelationID,
	})
}

// Broadcast fans payload out to every subscriber except from.
func (b *MessageBus) Broadcast(ctx context.Context, from string, payload interface{}, msgType domain.MessageType) []domain.Message {
	if msgType == "" {
		msgType = domain.MessageEvent
	}

	b.mu.Lock()
	var targets []subscription
	for agentID, subs := range b.subs {
		if agentID == from {
			continue
		}
		targets = append(targets, subs...)
	}
	b.mu.Unlock()

	sent := make([]domain.Message, 0, len(targets))
	for _, s := range targets {
		msg := domain.Message{
			ID:        uuid.NewString(),
			From:      from,
			To:        s.agentID,
			Type:      msgType,
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		}
		s.handler(ctx, msg)
		sent = append(sent, msg)
		emitMessage(b.events, MessageEvent{Kind: MessageEventSent, Message: msg})
	}
	return sent
}
