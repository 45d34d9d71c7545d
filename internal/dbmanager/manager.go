package dbmanager

import (
	"context"

	"github.com/minidb/goredis/internal/command"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
)

// Manager owns the fixed-size array of keyspaces (spec §4.3's "Database:
// a numbered keyspace (indices 0..N-1 where N defaults to 16)") and
// routes each incoming command to the executor owning the caller's
// currently-selected database.
type Manager struct {
	executors []*executor
	registry  *command.Registry
}

// New builds n independent keyspaces, each with its own executor
// goroutine, under the given eviction policy and per-database memory
// bound.
func New(n int, policy keyspace.EvictionPolicy, maxMemory int64, registry *command.Registry, logger log.Logger) *Manager {
	m := &Manager{registry: registry}
	for i := 0; i < n; i++ {
		ks := keyspace.New(i, policy, maxMemory)
		m.executors = append(m.executors, newExecutor(ks, registry, logger))
	}
	return m
}

func (m *Manager) DBCount() int { return len(m.executors) }

// KeyspaceAt exposes a bare keyspace handle, safe only for the one caller
// that genuinely runs before any executor sees traffic: startup recovery
// (persistence.Manager.LoadOnStartup, run before listenAndServe starts
// accepting connections). Anything that runs concurrently with live
// traffic — SAVE/BGSAVE, BGREWRITEAOF, FlushAll — must go through
// WithKeyspace instead, so the access happens on the owning executor
// goroutine rather than racing it.
func (m *Manager) KeyspaceAt(idx int) *keyspace.Keyspace { return m.executors[idx].ks }

// WithKeyspace runs fn against database idx's keyspace on that database's
// own executor goroutine, blocking until fn returns. This is the safe way
// for code outside any connection's command flow — FlushAll here, and the
// persistence layer's SAVE/BGSAVE/BGREWRITEAOF producers — to read or
// mutate a keyspace it does not own without racing the executor goroutine
// that does (keyspace.Keyspace carries no internal mutex by design).
func (m *Manager) WithKeyspace(idx int, fn func(*keyspace.Keyspace)) {
	m.executors[idx].runTask(fn)
}

// FlushAll clears every database (FLUSHALL, spec §6), routing each clear
// through its own executor rather than reaching into e.ks from whichever
// executor goroutine is running the FLUSHALL handler.
func (m *Manager) FlushAll() {
	for i := range m.executors {
		m.WithKeyspace(i, func(ks *keyspace.Keyspace) { ks.Flush() })
	}
}

// Dispatch routes cmd to the executor owning sess's current database,
// blocking until that executor produces a reply — generalizing the
// teacher's DBTrigger.Do channel-send-then-block pattern across N
// executors instead of one.
func (m *Manager) Dispatch(ctx context.Context, sess *session.Session, pubsub def.PubSubHub, aof def.Recorder, persist def.Persistence, name string, args [][]byte) resp.Value {
	idx := sess.DBIndex()
	if idx < 0 || idx >= len(m.executors) {
		return resp.Err("ERR DB index is out of range")
	}

	ec := &def.ExecContext{
		Ctx:     ctx,
		Session: sess,
		Switch:  m,
		PubSub:  pubsub,
		AOF:     aof,
		Persist: persist,
		Args:    args,
	}

	result := make(chan resp.Value, 1)
	m.executors[idx].submit(&job{ec: ec, name: name, result: result})
	return <-result
}

// Close tears down every executor, used during graceful shutdown.
func (m *Manager) Close() {
	for _, e := range m.executors {
		e.close()
	}
}
