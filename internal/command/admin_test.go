package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/session"
)

func TestFlushDBClearsOnlyCurrentDB(t *testing.T) {
	reg := NewRegistry()
	m := newManagerN(t, reg, 2)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SELECT", [][]byte{[]byte("1")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k2"), []byte("v")})

	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "FLUSHDB", nil).IsError())

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "DBSIZE", nil)
	assert.EqualValues(t, 0, reply.Int)

	m.Dispatch(ctx, sess, nil, nil, nil, "SELECT", [][]byte{[]byte("0")})
	reply = m.Dispatch(ctx, sess, nil, nil, nil, "DBSIZE", nil)
	assert.EqualValues(t, 1, reply.Int)
}

func TestFlushAllClearsEveryDBThroughDispatch(t *testing.T) {
	reg := NewRegistry()
	m := newManagerN(t, reg, 2)
	sess := session.New(1)
	ctx := context.Background()

	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SELECT", [][]byte{[]byte("1")})
	m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k2"), []byte("v")})

	require.False(t, m.Dispatch(ctx, sess, nil, nil, nil, "FLUSHALL", nil).IsError())

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "DBSIZE", nil)
	assert.EqualValues(t, 0, reply.Int)
}
