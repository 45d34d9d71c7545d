package command

import (
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
	"github.com/minidb/goredis/internal/txn"
)

func registerTxnCommands(r *Registry) {
	r.Register(Spec{Name: "MULTI", MinArgs: 0, MaxArgs: 0, TxnControl: true, Handler: cmdMulti})
	r.Register(Spec{Name: "DISCARD", MinArgs: 0, MaxArgs: 0, TxnControl: true, Handler: cmdDiscard})
	r.Register(Spec{Name: "WATCH", MinArgs: 1, MaxArgs: -1, TxnControl: true, Handler: cmdWatch})
	r.Register(Spec{Name: "UNWATCH", MinArgs: 0, MaxArgs: 0, TxnControl: true, Handler: cmdUnwatch})
	// EXEC needs the registry itself to run the queued commands, so it is
	// registered with a closure rather than a free function.
	r.Register(Spec{Name: "EXEC", MinArgs: 0, MaxArgs: 0, TxnControl: true, Handler: makeExecHandler(r)})
}

func cmdMulti(ec *def.ExecContext) resp.Value {
	if !ec.Session.BeginMulti() {
		return resp.Err("ERR MULTI calls can not be nested")
	}
	// Re-snapshot already-watched keys' versions as of MULTI, not WATCH, so
	// a write this same connection issued before MULTI (spec §8's third
	// scenario) is never mistaken for a concurrent writer's interference;
	// only writes between MULTI and EXEC can still trip the CAS check.
	for _, key := range ec.Session.WatchedKeys() {
		ec.Session.Watch(key, ec.DB.Version(key))
	}
	return resp.OK()
}

func cmdDiscard(ec *def.ExecContext) resp.Value {
	if ec.Session.TxnState() != session.TxnQueuing {
		return resp.Err("ERR DISCARD without MULTI")
	}
	ec.Session.DrainTxn()
	return resp.OK()
}

func cmdWatch(ec *def.ExecContext) resp.Value {
	if ec.Session.TxnState() == session.TxnQueuing {
		return resp.Err("ERR WATCH inside MULTI is not allowed")
	}
	for _, k := range ec.Args {
		key := string(k)
		ec.Session.Watch(key, ec.DB.Version(key))
	}
	return resp.OK()
}

func cmdUnwatch(ec *def.ExecContext) resp.Value {
	ec.Session.Unwatch()
	return resp.OK()
}

func makeExecHandler(r *Registry) def.Handler {
	return func(ec *def.ExecContext) resp.Value {
		if ec.Session.TxnState() != session.TxnQueuing {
			return resp.NotInTransactionErr()
		}

		queue, watched := ec.Session.DrainTxn()

		if txn.Aborted(ec.DB, watched) {
			return resp.NullArray()
		}

		replies := make([]resp.Value, len(queue))
		for i, q := range queue {
			replies[i] = r.Execute(ec, q.Name, q.Args)
		}
		return resp.ArrayOf(replies...)
	}
}
