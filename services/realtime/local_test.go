package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trezcool/skripsi/core/notification"
)

func receive(t *testing.T, sub notification.Subscription) (notification.Notification, bool) {
	t.Helper()
	select {
	case note, ok := <-sub.C():
		return note, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return notification.Notification{}, false
	}
}

func TestLocalBroker_PublishSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewLocalBroker()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "u1")
	require.NoError(t, err)
	other, err := broker.Subscribe(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, notification.Notification{ID: "n1", UserID: "u1", Title: "Halo"}))

	note, ok := receive(t, sub)
	assert.True(t, ok)
	assert.Equal(t, "n1", note.ID)
	assert.Len(t, other.C(), 0)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close()) // idempotent
	require.NoError(t, other.Close())
	_, ok = <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, broker.subscribers("u1"))
}

func TestLocalBroker_ContextCancelClosesSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := broker.Subscribe(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, broker.subscribers("u1"))

	cancel()
	_, ok := receive(t, sub)
	assert.False(t, ok)
	assert.Equal(t, 0, broker.subscribers("u1"))

	// publishing to a user without subscribers is a no-op
	assert.NoError(t, broker.Publish(context.Background(), notification.Notification{UserID: "u1"}))
}

func TestLocalBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewLocalBroker()
	sub, err := broker.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < subscriptionBuffer*2; i++ {
		require.NoError(t, broker.Publish(context.Background(), notification.Notification{UserID: "u1"}))
	}
	assert.Len(t, sub.C(), subscriptionBuffer)
}
