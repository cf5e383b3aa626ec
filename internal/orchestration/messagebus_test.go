package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/orchestration"
)

func TestSendDispatchesToSubscriber(t *testing.T) {
	b := NewMessageBus(nil)
	received := make(chan domain.Message, 1)
	b.Subscribe("agent-1", func(_ context.Context, msg domain.Message) { received <- msg })

	b.Send(context.Background(), domain.Message{From: "orchestrator", To: "agent-1", Type: domain.MessageCommand, Payload: "go"})

	select {
	case msg := <-received:
		require.Equal(t, "go", msg.Payload)
		require.NotEmpty(t, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("expected delivery")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMessageBus(nil)
	received := make(chan domain.Message, 1)
	token := b.Subscribe("agent-1", func(_ context.Context, msg domain.Message) { received <- msg })
	b.Unsubscribe("agent-1", token)

	b.Send(context.Background(), domain.Message{To: "agent-1", Type: domain.MessageEvent})

	select {
	case <-received:
		t.Fatal("did not expect delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRequestReplyRoundTrips(t *testing.T) {
	b := NewMessageBus(nil)
	b.Subscribe("agent-1", func(ctx context.Context, msg domain.Message) {
		b.Reply(ctx, msg, "pong")
	})

	resp, err := b.Request(context.Background(), "orchestrator", "agent-1", "ping", time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", resp.Payload)
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	b := NewMessageBus(nil)
	b.Subscribe("agent-1", func(context.Context, domain.Message) {})

	_, err := b.Request(context.Background(), "orchestrator", "agent-1", "ping", 20*time.Millisecond)
	require.Error(t, err)
}

func TestBroadcastSkipsSender(t *testing.T) {
	b := NewMessageBus(nil)
	var fromA, toB int
	b.Subscribe("agent-a", func(context.Context, domain.Message) { fromA++ })
	b.Subscribe("agent-b", func(context.Context, domain.Message) { toB++ })

	sent := b.Broadcast(context.Background(), "agent-a", "alert", domain.MessageEvent)
	require.Len(t, sent, 1)
	require.Equal(t, 0, fromA)
	require.Equal(t, 1, toB)
}
