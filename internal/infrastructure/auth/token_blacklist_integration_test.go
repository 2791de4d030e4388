//go:build integration

package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	bl := NewRedisTokenBlacklist(client, "")

	blacklisted, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, client.Set(ctx, "token:blacklist:jti:jti-1", "1", time.Minute).Err())
	blacklisted, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	now := time.Now()
	require.NoError(t, client.Set(ctx, "token:blacklist:user:u-1", strconv.FormatInt(now.Unix(), 10), time.Minute).Err())
	invalidated, err := bl.IsUserTokenInvalidated(ctx, "u-1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, invalidated)
	invalidated, err = bl.IsUserTokenInvalidated(ctx, "u-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, invalidated)
}
