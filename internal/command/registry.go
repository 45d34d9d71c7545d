// Package command implements the command registry and dispatch (spec
// §4.4, component C6) plus every command handler (spec §6). It
// generalizes the teacher's database/struct.go CmdType map and
// database/executor.go cmdHandlers dispatch table from a dozen hardcoded
// entries into a name->Spec registry with arity checking, MULTI queueing,
// and pub/sub-mode restriction built into Dispatch, per spec §4.4's five
// dispatch steps.
package command

import (
	"strings"

	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
)

// Spec describes one command: its canonical name, its argument-count
// bounds (excluding the verb itself; -1 means unbounded), and its
// handler.
type Spec struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 = unbounded
	Handler def.Handler

	TxnControl    bool // MULTI/EXEC/DISCARD/WATCH/UNWATCH
	PubSubControl bool // SUBSCRIBE/UNSUBSCRIBE/PSUBSCRIBE/PUNSUBSCRIBE/PUBLISH
}

// Registry is the case-insensitive name->Spec map populated at startup.
type Registry struct {
	specs map[string]*Spec
}

// NewRegistry builds the full command table (spec §6's minimum set).
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]*Spec)}
	registerKeyCommands(r)
	registerStringCommands(r)
	registerListCommands(r)
	registerHashCommands(r)
	registerSetCommands(r)
	registerZSetCommands(r)
	registerConnectionCommands(r)
	registerTxnCommands(r)
	registerPubSubCommands(r)
	registerPersistenceCommands(r)
	registerAdminCommands(r)
	return r
}

func (r *Registry) Register(spec Spec) {
	r.specs[spec.Name] = &spec
}

func (r *Registry) Lookup(name string) (*Spec, bool) {
	spec, ok := r.specs[strings.ToUpper(name)]
	return spec, ok
}

func checkArity(spec *Spec, args [][]byte) bool {
	n := len(args)
	if n < spec.MinArgs {
		return false
	}
	if spec.MaxArgs >= 0 && n > spec.MaxArgs {
		return false
	}
	return true
}

// Execute runs name's handler directly with no MULTI/pub-sub gating — used
// both by Dispatch for immediate execution and by EXEC to run a session's
// queued commands (spec §4.6: queued commands are never re-queued or
// re-gated, they simply run).
func (r *Registry) Execute(ec *def.ExecContext, name string, args [][]byte) resp.Value {
	spec, ok := r.Lookup(name)
	if !ok {
		return resp.UnknownCommandErr(name)
	}
	if !checkArity(spec, args) {
		return resp.WrongArityErr(strings.ToLower(name))
	}
	ec.Args = args
	return spec.Handler(ec)
}

// Dispatch implements spec §4.4's full five-step contract for a live
// client command: lookup, arity check, MULTI queueing, pub/sub-mode
// restriction, then execution.
func (r *Registry) Dispatch(ec *def.ExecContext, name string, args [][]byte) resp.Value {
	upper := strings.ToUpper(name)
	spec, ok := r.Lookup(upper)
	if !ok {
		return resp.UnknownCommandErr(name)
	}
	if !checkArity(spec, args) {
		return resp.WrongArityErr(strings.ToLower(upper))
	}

	sess := ec.Session

	if sess.TxnState() == session.TxnQueuing && !spec.TxnControl {
		sess.Enqueue(upper, args)
		return resp.SimpleStr("QUEUED")
	}

	if sess.InPubSubMode() && !spec.PubSubControl && upper != "PING" && upper != "QUIT" {
		return resp.Errf("ERR %s is not allowed in subscribe context", strings.ToLower(upper))
	}

	ec.Args = args
	return spec.Handler(ec)
}
