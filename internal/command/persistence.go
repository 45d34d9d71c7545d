package command

import (
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
)

func registerPersistenceCommands(r *Registry) {
	r.Register(Spec{Name: "SAVE", MinArgs: 0, MaxArgs: 0, Handler: cmdSave})
	r.Register(Spec{Name: "BGSAVE", MinArgs: 0, MaxArgs: 0, Handler: cmdBgSave})
	r.Register(Spec{Name: "BGREWRITEAOF", MinArgs: 0, MaxArgs: 0, Handler: cmdBgRewriteAOF})
}

func cmdSave(ec *def.ExecContext) resp.Value {
	if err := ec.Persist.Save(); err != nil {
		return resp.Errf("ERR %s", err.Error())
	}
	return resp.OK()
}

func cmdBgSave(ec *def.ExecContext) resp.Value {
	ec.Persist.BackgroundSave()
	return resp.SimpleStr("Background saving started")
}

func cmdBgRewriteAOF(ec *def.ExecContext) resp.Value {
	ec.Persist.BackgroundRewriteAOF()
	return resp.SimpleStr("Background append only file rewriting started")
}
