//go:build integration

package store

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

	"github.com/moolen/faultline/internal/models"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		AutoRemove:   true,
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%d", host, port.Int())
}

func TestRedisStore_Integration(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	s, err := NewRedisStore(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Records, "missing key is an empty window")

	writer := redis.NewClient(&redis.Options{Addr: addr})
	defer writer.Close()
	payload := `[
		{"id": 1, "user": "alice", "timestamp": "02.01.2024 15:04:05", "type": "IOError", "severity": "High", "content": "disk full"},
		{"id": 2, "user": "bob", "timestamp": "bogus", "type": "IOError", "severity": "High"}
	]`
	require.NoError(t, writer.Set(ctx, cfg.Key, payload, time.Hour).Err())

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "alice", snap.Records[0].User)
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, int64(2), *snap.Diagnostics[0].RecordID)
}

func TestRedisStore_Unavailable(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.MaxRetries = 0
	cfg.DialTimeout = 200 * time.Millisecond
	s, err := NewRedisStore(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Snapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}
