package command

import (
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
)

func registerAdminCommands(r *Registry) {
	r.Register(Spec{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 0, Handler: cmdFlushDB})
	r.Register(Spec{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 0, Handler: cmdFlushAll})
	r.Register(Spec{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
}

func cmdFlushDB(ec *def.ExecContext) resp.Value {
	ec.DB.Flush()
	feed(ec, "FLUSHDB")
	return resp.OK()
}

func cmdFlushAll(ec *def.ExecContext) resp.Value {
	ec.Switch.FlushAll()
	feed(ec, "FLUSHALL")
	return resp.OK()
}

func cmdDBSize(ec *def.ExecContext) resp.Value {
	return resp.Int(ec.DB.Size())
}
