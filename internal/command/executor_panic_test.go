package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
)

// TestDispatchRecoversHandlerPanic guards against a regression to the bug
// the maintainer review flagged: a handler panic used to escape the
// executor goroutine and crash the whole process. A panicking handler
// must now turn into an error reply, and the executor (and the database
// it owns) must keep serving requests afterward.
func TestDispatchRecoversHandlerPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spec{Name: "PANICTEST", MinArgs: 0, MaxArgs: 0, Handler: func(ec *def.ExecContext) resp.Value {
		panic("boom")
	}})

	m := newManagerN(t, reg, 1)
	sess := session.New(1)
	ctx := context.Background()

	reply := m.Dispatch(ctx, sess, nil, nil, nil, "PANICTEST", nil)
	assert.True(t, reply.IsError(), "a panicking handler must surface as an error reply, not crash")

	// the executor goroutine must still be alive and servicing this (and
	// every other) database after recovering the panic.
	reply = m.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v")})
	assert.False(t, reply.IsError())

	reply = m.Dispatch(ctx, sess, nil, nil, nil, "GET", [][]byte{[]byte("k")})
	assert.Equal(t, []byte("v"), reply.Bulk)
}
