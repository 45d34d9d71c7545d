// Package def holds the small cross-cutting interfaces and types that
// break the dependency cycle between the command registry, the database
// manager, and the pub/sub hub — mirroring the teacher's own interface/
// package (its def.Command/def.Executor/def.DataStore split), generalized
// from a single fixed DataStore surface to the handler-function shape
// spec §9 calls for: "a pure function shape handler(ctx, args) -> Reply
// with no transport coupling".
package def

import (
	"context"

	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
)

// Switcher lets a handler reach every database (count, keyspace access,
// FLUSHALL) without the command package importing the database manager
// directly. Changing the selected database is done on the Session.
type Switcher interface {
	DBCount() int
	KeyspaceAt(idx int) *keyspace.Keyspace
	WithKeyspace(idx int, fn func(*keyspace.Keyspace))
	FlushAll()
}

// PubSubHub lets handlers publish and (un)subscribe without the command
// package importing the pub/sub package directly.
type PubSubHub interface {
	Publish(channel string, payload []byte) int64
	Subscribe(sess *session.Session, channel string)
	Unsubscribe(sess *session.Session, channel string)
	PSubscribe(sess *session.Session, pattern string)
	PUnsubscribe(sess *session.Session, pattern string)
	Cleanup(sess *session.Session)
}

// Recorder appends a successfully-executed mutating command to the AOF,
// if enabled. A nil Recorder (AOF disabled) is never called.
type Recorder interface {
	Feed(dbIndex int, args [][]byte)
}

// Persistence lets handlers trigger snapshot/AOF maintenance (SAVE,
// BGSAVE, BGREWRITEAOF) without the command package importing the
// persistence packages directly.
type Persistence interface {
	Save() error
	BackgroundSave()
	BackgroundRewriteAOF()
}

// ExecContext is everything a handler needs to run one command: the
// selected keyspace, the owning session, and the narrow collaborator
// interfaces above. It replaces the teacher's *Command-as-receiver
// pattern (database/struct.go's Command carrying only Ctx/Cmd/Args) with
// one that also carries the connection and server-context handles a
// richer command set (MULTI, SELECT, SUBSCRIBE) requires.
type ExecContext struct {
	Ctx     context.Context
	DB      *keyspace.Keyspace
	Session *session.Session
	Switch  Switcher
	PubSub  PubSubHub
	AOF     Recorder
	Persist Persistence
	Args    [][]byte // command arguments, excluding the command name itself
}

// Handler executes one command and returns its reply. It never panics on
// bad input — argument-shape errors are reported as resp.Value errors,
// per spec §4.4 step 6's "never leak an unrelated internal error".
type Handler func(ec *ExecContext) resp.Value
