package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessages() []Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []Message{
		{Role: RoleUser, Content: "recommend me a brewery", Timestamp: base},
		{Role: RoleAssistant, Content: "How about Modern Times Beer?", Timestamp: base.Add(2 * time.Second)},
	}
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func runStoreTests(t *testing.T, store Store) {
	ctx := context.Background()
	id := NewID()

	_, err := store.History(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	for _, msg := range testMessages() {
		require.NoError(t, store.Append(ctx, id, msg))
	}

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "How about Modern Times Beer?", history[1].Content)

	// Sessions are isolated from each other.
	other := NewID()
	require.NoError(t, store.Append(ctx, other, Message{Role: RoleUser, Content: "hi"}))
	history, err = store.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, store.Clear(ctx, id))
	_, err = store.History(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestMemoryStoreHistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := NewID()
	require.NoError(t, store.Append(ctx, id, Message{Role: RoleUser, Content: "original"}))

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	history[0].Content = "mutated"

	history, err = store.History(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", history[0].Content)
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client)
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, newRedisStore(t))
}

func TestRedisStoreRoundTripsTimestamps(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	id := NewID()

	msg := testMessages()[0]
	require.NoError(t, store.Append(ctx, id, msg))

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.True(t, msg.Timestamp.Equal(history[0].Timestamp))
}

func TestComputeStats(t *testing.T) {
	msgs := testMessages()
	stats := ComputeStats(msgs)
	assert.Equal(t, 2, stats.Messages)
	assert.Equal(t, 1, stats.UserMessages)
	assert.Equal(t, 1, stats.AssistantMessages)
	assert.Equal(t, 2*time.Second, stats.Duration)

	assert.Zero(t, ComputeStats(nil).Messages)
	assert.Zero(t, ComputeStats(msgs[:1]).Duration)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
