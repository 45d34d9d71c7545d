package command

import (
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
)

func registerConnectionCommands(r *Registry) {
	r.Register(Spec{Name: "PING", MinArgs: 0, MaxArgs: 1, Handler: cmdPing})
	r.Register(Spec{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	r.Register(Spec{Name: "SELECT", MinArgs: 1, MaxArgs: 1, Handler: cmdSelect})
	r.Register(Spec{Name: "QUIT", MinArgs: 0, MaxArgs: 0, Handler: cmdQuit})
}

func cmdPing(ec *def.ExecContext) resp.Value {
	if len(ec.Args) == 1 {
		return resp.Bulk(ec.Args[0])
	}
	return resp.SimpleStr("PONG")
}

func cmdEcho(ec *def.ExecContext) resp.Value {
	return resp.Bulk(ec.Args[0])
}

func cmdSelect(ec *def.ExecContext) resp.Value {
	idx, ok := parseInt64(ec.Args[0])
	if !ok || idx < 0 || int(idx) >= ec.Switch.DBCount() {
		return resp.Err("ERR DB index is out of range")
	}
	ec.Session.SetDBIndex(int(idx))
	return resp.OK()
}

// cmdQuit's actual connection-closing behavior is handled by the server
// loop, which watches for the QUIT verb and closes the connection after
// writing this reply; the handler itself just acknowledges.
func cmdQuit(ec *def.ExecContext) resp.Value {
	return resp.OK()
}
