package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/config"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.DefaultTTL = time.Minute
	cfg.HealthCheckInterval = 0

	manager, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return mr, manager
}

func TestNewManager_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.MaxRetries = -1
	_, err := NewManager(cfg, nil)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.RedisConfig{Addr: "redis:6379", Password: "pw", DB: 2})
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 10, cfg.PoolSize, "zero keeps default")
	assert.Equal(t, "tripcrew:", cfg.KeyPrefix)

	cfg = FromAppConfig(config.RedisConfig{PoolSize: 50, MinIdleConns: 7})
	assert.Equal(t, 50, cfg.PoolSize)
	assert.Equal(t, 7, cfg.MinIdleConns)
}

func TestManager_SetGetWithPrefix(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "city", "Isfahan", 0))

	value, err := manager.Get(ctx, "city")
	require.NoError(t, err)
	assert.Equal(t, "Isfahan", value)

	raw, err := mr.Get("tripcrew:city")
	require.NoError(t, err)
	assert.Equal(t, "Isfahan", raw)
	assert.Equal(t, time.Minute, mr.TTL("tripcrew:city"), "zero ttl falls back to default")
}

func TestManager_Miss(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(context.Background(), "missing")
	assert.True(t, IsCacheMiss(err))
	assert.Empty(t, value)

	var dest []string
	assert.True(t, IsCacheMiss(manager.GetJSON(context.Background(), "missing", &dest)))
}

func TestManager_JSONAndExpiry(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	type result struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	in := []result{{Title: "Vank Cathedral", URL: "https://example.com/vank"}}
	require.NoError(t, manager.SetJSON(ctx, "search:vank", in, 10*time.Second))

	var out []result
	require.NoError(t, manager.GetJSON(ctx, "search:vank", &out))
	assert.Equal(t, in, out)

	mr.FastForward(11 * time.Second)
	assert.True(t, IsCacheMiss(manager.GetJSON(ctx, "search:vank", &out)))

	require.NoError(t, manager.Set(ctx, "bad", "{not json", 0))
	assert.ErrorContains(t, manager.GetJSON(ctx, "bad", &out), "unmarshal")
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "a", "1", 0))
	require.NoError(t, manager.Set(ctx, "b", "2", 0))
	require.NoError(t, manager.Delete(ctx, "a", "b"))
	require.NoError(t, manager.Delete(ctx))

	assert.False(t, mr.Exists("tripcrew:a"))
	assert.False(t, mr.Exists("tripcrew:b"))
}

func TestManager_GetStats(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, manager.Set(ctx, "k1", "v", 0))
	require.NoError(t, manager.Set(ctx, "k2", "v", 0))

	stats, err := manager.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Keys)
}

func TestParseInfo(t *testing.T) {
	fields := parseInfo("# Stats\r\nkeyspace_hits:12\r\nkeyspace_misses:3\r\n\r\n# Memory\r\nused_memory:1024\r\n")
	assert.Equal(t, "12", fields["keyspace_hits"])
	assert.Equal(t, "3", fields["keyspace_misses"])
	assert.Equal(t, "1024", fields["used_memory"])
	assert.Len(t, fields, 3)
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, err := manager.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.Set(ctx, "x", "y", 0), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, manager.Delete(ctx, "x"), ErrClosed)
	_, err = manager.GetStats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_HealthCheckStopsOnClose(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthCheckInterval = 5 * time.Millisecond

	manager, err := NewManager(cfg, nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, manager.Close())
}
