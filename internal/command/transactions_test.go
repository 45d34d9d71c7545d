package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/session"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.New(log.Config{Console: false})
	require.NoError(t, err)
	return logger
}

func newManager(t *testing.T) *dbmanager.Manager {
	t.Helper()
	return newManagerN(t, NewRegistry(), 1)
}

func newManagerN(t *testing.T, reg *Registry, n int) *dbmanager.Manager {
	t.Helper()
	m := dbmanager.New(n, keyspace.NoEviction, 0, reg, testLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestMultiExecRunsQueuedCommands(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "MULTI", nil).IsError())
	assert.Equal(t, "QUEUED", m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("1")}).Str)
	assert.Equal(t, "QUEUED", m.Dispatch(ctx, sess, nil, nil, nil, "INCR", [][]byte{[]byte("k")}).Str)

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "EXEC", nil)
	require.Equal(t, 2, len(reply.Items))
	assert.Equal(t, int64(2), reply.Items[1].Int)
}

func TestDiscardDropsQueuedCommands(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "MULTI", nil)
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("1")})
	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "DISCARD", nil).IsError())

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "GET", [][]byte{[]byte("k")})
	assert.True(t, reply.IsNull, "a discarded transaction must never have run SET")

	assert.True(t, m.Dispatch(ctx, sess, nil, nil, nil, "EXEC", nil).IsError(), "EXEC after DISCARD has nothing to run")
}

func TestWatchAbortsExecOnConcurrentWrite(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	watcher := session.New(1)
	other := session.New(2)

	m.Dispatch(ctx, watcher, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("1")})
	m.Dispatch(ctx, watcher, nil, nil, nil, "WATCH", [][]byte{[]byte("k")})
	m.Dispatch(ctx, watcher, nil, nil, nil, "MULTI", nil)
	m.Dispatch(ctx, watcher, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("2")})

	m.Dispatch(ctx, other, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("interloper")})

	reply := m.Dispatch(ctx, watcher, nil, nil, nil, "EXEC", nil)
	assert.True(t, reply.IsNull, "EXEC must abort when a watched key changed since WATCH")

	reply = m.Dispatch(ctx, watcher, nil, nil, nil, "GET", [][]byte{[]byte("k")})
	assert.Equal(t, []byte("interloper"), reply.Bulk)
}

func TestWatchDoesNotAbortWhenUnrelatedKeyChanges(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	sess := session.New(1)

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("watched"), []byte("1")})
	m.Dispatch(ctx, sess, nil, nil, nil, "WATCH", [][]byte{[]byte("watched")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("unrelated"), []byte("x")})
	m.Dispatch(ctx, sess, nil, nil, nil, "MULTI", nil)
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("watched"), []byte("2")})

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "EXEC", nil)
	assert.False(t, reply.IsNull)
}

// TestWatchSurvivesOwnWriteBeforeMulti covers spec.md §8's third
// transaction scenario verbatim: WATCH k; SET k y; MULTI; INCR k; EXEC must
// not abort, because the SET happened on this same connection before MULTI
// started queuing.
func TestWatchSurvivesOwnWriteBeforeMulti(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	sess := session.New(1)

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("1")})
	m.Dispatch(ctx, sess, nil, nil, nil, "WATCH", [][]byte{[]byte("k")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("5")})
	m.Dispatch(ctx, sess, nil, nil, nil, "MULTI", nil)
	m.Dispatch(ctx, sess, nil, nil, nil, "INCR", [][]byte{[]byte("k")})

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "EXEC", nil)
	require.False(t, reply.IsNull, "a pre-MULTI self-write must not abort the transaction")
	require.Equal(t, 1, len(reply.Items))
	assert.EqualValues(t, 6, reply.Items[0].Int)
}
