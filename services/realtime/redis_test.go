package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisBroker) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisBroker(client, core.NewNopLogger())
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	_, broker := setupMiniRedis(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, notification.Notification{ID: "n1", UserID: "u1", Title: "Jadwal seminar hasil"}))
	require.NoError(t, broker.Publish(ctx, notification.Notification{ID: "n2", UserID: "u2"}))

	note, ok := receive(t, sub)
	assert.True(t, ok)
	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "Jadwal seminar hasil", note.Title)

	require.NoError(t, sub.Close())
	_, ok = <-sub.C()
	assert.False(t, ok)
}

func TestRedisBroker_ContextCancelClosesSubscription(t *testing.T) {
	_, broker := setupMiniRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := broker.Subscribe(ctx, "u1")
	require.NoError(t, err)

	cancel()
	_, ok := receive(t, sub)
	assert.False(t, ok)
}

func TestRedisBroker_IgnoresMalformedPayloads(t *testing.T) {
	mr, broker := setupMiniRedis(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(Channel("u1"), "{not json")
	require.NoError(t, broker.Publish(ctx, notification.Notification{ID: "n1", UserID: "u1"}))

	note, ok := receive(t, sub)
	assert.True(t, ok)
	assert.Equal(t, "n1", note.ID)
}

func TestRedisBroker_PublishFailure(t *testing.T) {
	mr, broker := setupMiniRedis(t)
	mr.Close()

	err := broker.Publish(context.Background(), notification.Notification{UserID: "u1"})
	assert.Error(t, err)
}
