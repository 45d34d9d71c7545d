package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/session"
)

func TestSetWithNXAndXX(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("1"), []byte("NX")})
	require.False(t, reply.IsError())

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("2"), []byte("NX")})
	assert.True(t, reply.IsNull, "NX must refuse to overwrite an existing key")

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("other"), []byte("x"), []byte("XX")})
	assert.True(t, reply.IsNull, "XX must refuse to create a missing key")
}

func TestSetWithEXInstallsTTL(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v"), []byte("EX"), []byte("100")})
	reply := m.Dispatch(ctx, sess, nil, nil, nil, "TTL", [][]byte{[]byte("k")})
	assert.True(t, reply.Int > 0 && reply.Int <= 100)
}

func TestExpireAndPersist(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v")})
	reply := m.Dispatch(ctx, sess, nil, nil, nil, "EXPIRE", [][]byte{[]byte("k"), []byte("100")})
	assert.EqualValues(t, 1, reply.Int)

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "PERSIST", [][]byte{[]byte("k")})
	assert.EqualValues(t, 1, reply.Int)

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "TTL", [][]byte{[]byte("k")})
	assert.EqualValues(t, keyspace.TTLPersistent, reply.Int)
}

func TestTypeReportsEachContainer(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("s"), []byte("v")})
	m.Dispatch(ctx, sess, nil, nil, nil, "RPUSH", [][]byte{[]byte("l"), []byte("v")})

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "TYPE", [][]byte{[]byte("s")})
	assert.Equal(t, "string", reply.Str)

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "TYPE", [][]byte{[]byte("l")})
	assert.Equal(t, "list", reply.Str)

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "TYPE", [][]byte{[]byte("ghost")})
	assert.Equal(t, "none", reply.Str)
}

func TestRenameMovesValueAndReportsMissingSource(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "RENAME", [][]byte{[]byte("missing"), []byte("dst")})
	assert.True(t, reply.IsError())

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("src"), []byte("v")})
	reply = m.Dispatch(ctx, sess, nil, nil, nil, "RENAME", [][]byte{[]byte("src"), []byte("dst")})
	require.False(t, reply.IsError())

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "GET", [][]byte{[]byte("dst")})
	assert.Equal(t, []byte("v"), reply.Bulk)
}

func TestSetRejectsWithOOMUnderNoEvictionAtCapacity(t *testing.T) {
	reg := NewRegistry()
	m := dbmanager.New(1, keyspace.NoEviction, 2, reg, testLogger(t))
	t.Cleanup(m.Close)
	sess := session.New(1)
	ctx := context.Background()

	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("a"), []byte("1")}).IsError())
	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("b"), []byte("2")}).IsError())

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("c"), []byte("3")})
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "OOM")

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "EXISTS", [][]byte{[]byte("c")})
	assert.EqualValues(t, 0, reply.Int, "a rejected write must not take effect")

	// overwriting an existing key never grows the keyspace, so it is exempt.
	reply = m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("a"), []byte("updated")})
	require.False(t, reply.IsError())
}

func TestDelAndExists(t *testing.T) {
	m := newManager(t)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("a"), []byte("1")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("b"), []byte("2")})

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "EXISTS", [][]byte{[]byte("a"), []byte("b"), []byte("ghost")})
	assert.EqualValues(t, 2, reply.Int)

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "DEL", [][]byte{[]byte("a"), []byte("ghost")})
	assert.EqualValues(t, 1, reply.Int)
}
