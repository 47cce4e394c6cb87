package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemory_Allow(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m := NewMemory(3, time.Minute)
	m.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := m.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 3-i-1, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := m.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetAt.After(current))
	assert.Equal(t, 20*time.Second, res.RetryAfter(current))

	// Other clients have their own bucket.
	res, err = m.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// One token refills every 20s.
	current = base.Add(21 * time.Second)
	res, err = m.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemory_EvictsIdleClients(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m := NewMemory(5, time.Minute)
	m.now = func() time.Time { return current }

	_, err := m.Allow(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, m.clients, 1)

	current = base.Add(2 * time.Minute)
	_, err = m.Allow(context.Background(), "b")
	require.NoError(t, err)

	assert.Len(t, m.clients, 1)
	assert.Contains(t, m.clients, "b")
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, time.Second, (&Result{ResetAt: now.Add(-time.Second)}).RetryAfter(now))
	assert.Equal(t, 2*time.Second, (&Result{ResetAt: now.Add(1500 * time.Millisecond)}).RetryAfter(now))
	assert.Equal(t, 3*time.Second, (&Result{ResetAt: now.Add(3 * time.Second)}).RetryAfter(now))
}

func TestRedis_SlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, "test:ratelimit:", 5, time.Minute)
	require.NoError(t, l.Ping(ctx))

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 5-i-1, res.Remaining)
	}

	res, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.ResetAt.After(time.Now()))

	res, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, "client"))
	res, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
