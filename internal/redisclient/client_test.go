package redisclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Integration test - requires docker")
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
	if err != nil {
		t.Skipf("Integration test - docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := NewClient(fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockIsExclusiveAndOwned(t *testing.T) {
	c := newRedisClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "cart:s1", "owner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "cart:s1", "intruder", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := c.ReleaseLock(ctx, "cart:s1", "intruder")
	require.NoError(t, err)
	assert.False(t, released, "only the owner may release")

	released, err = c.ReleaseLock(ctx, "cart:s1", "owner")
	require.NoError(t, err)
	assert.True(t, released)
}

func TestLockerTimesOut(t *testing.T) {
	c := newRedisClient(t)
	ctx := context.Background()
	locker := NewLocker(c, time.Minute, 100*time.Millisecond)

	unlock, err := locker.Lock(ctx, "cart:s1")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "cart:s1")
	assert.ErrorIs(t, err, models.ErrLockTimeout)

	unlock()
	unlock2, err := locker.Lock(ctx, "cart:s1")
	require.NoError(t, err)
	unlock2()
}

func TestSetStockIgnoresOlderVersions(t *testing.T) {
	c := newRedisClient(t)
	ctx := context.Background()

	_, ok, err := c.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetStock(ctx, 1, 10, 2))
	require.NoError(t, c.SetStock(ctx, 1, 99, 1))

	stock, ok, err := c.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10, stock)

	require.NoError(t, c.SetStock(ctx, 1, 7, 3))
	stock, _, err = c.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)

	require.NoError(t, c.DeleteStock(ctx, 1))
	_, ok, err = c.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
