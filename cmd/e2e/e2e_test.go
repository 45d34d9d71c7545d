// Package e2e drives a real, locally-started server instance with an
// actual wire client, the same way eternalApril-moonlight's
// cmd/testpipeline/pipeline_test.go exercises a running server with
// github.com/redis/go-redis/v9 instead of calling into the command
// package directly.
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/config"
	"github.com/minidb/goredis/internal/server"
)

const addr = "127.0.0.1:16399"

var rdb *redis.Client

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "goredis-e2e-")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Server.Address = addr
	cfg.Snapshot.Filename = dir + "/dump.rdb"
	cfg.AOF.Filename = dir + "/appendonly.aof"
	cfg.AOF.Enabled = false
	cfg.Snapshot.Enabled = false

	srv, err := server.Construct(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	go func() {
		_ = srv.Serve()
	}()
	time.Sleep(100 * time.Millisecond)

	rdb = redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	code := m.Run()
	server.Shutdown(srv)
	os.Exit(code)
}

func TestStringCommands(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "greeting", "hello", 0).Err())

	val, err := rdb.Get(ctx, "greeting").Result()
	require.NoError(t, err)
	assert.Equal(t, "hello", val)

	n, err := rdb.Incr(ctx, "counter").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = rdb.Get(ctx, "does-not-exist").Result()
	assert.Equal(t, redis.Nil, err)
}

func TestListAndHashAndSetAndZSet(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, rdb.RPush(ctx, "mylist", "a", "b", "c").Err())
	items, err := rdb.LRange(ctx, "mylist", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	require.NoError(t, rdb.HSet(ctx, "myhash", "field1", "value1").Err())
	hval, err := rdb.HGet(ctx, "myhash", "field1").Result()
	require.NoError(t, err)
	assert.Equal(t, "value1", hval)

	require.NoError(t, rdb.SAdd(ctx, "myset", "x", "y", "z").Err())
	card, err := rdb.SCard(ctx, "myset").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), card)

	require.NoError(t, rdb.ZAdd(ctx, "myzset", redis.Z{Score: 1, Member: "one"}, redis.Z{Score: 2, Member: "two"}).Err())
	ranked, err := rdb.ZRange(ctx, "myzset", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, ranked)
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "ephemeral", "x", 50*time.Millisecond).Err())

	ttl, err := rdb.PTTL(ctx, "ephemeral").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0)

	time.Sleep(120 * time.Millisecond)
	_, err = rdb.Get(ctx, "ephemeral").Result()
	assert.Equal(t, redis.Nil, err)
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, "tx1", "1", 0)
	pipe.Incr(ctx, "tx1")
	_, err := pipe.Exec(ctx)
	require.NoError(t, err)

	val, err := rdb.Get(ctx, "tx1").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "news")
	defer sub.Close()

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n, err := rdb.Publish(ctx, "news", "hello world").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world", msg.Payload)
	assert.Equal(t, "news", msg.Channel)
}
