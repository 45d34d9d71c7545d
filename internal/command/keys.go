package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

func registerKeyCommands(r *Registry) {
	r.Register(Spec{Name: "GET", MinArgs: 1, MaxArgs: 1, Handler: cmdGet})
	r.Register(Spec{Name: "SET", MinArgs: 2, MaxArgs: 5, Handler: cmdSet})
	r.Register(Spec{Name: "DEL", MinArgs: 1, MaxArgs: -1, Handler: cmdDel})
	r.Register(Spec{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Handler: cmdExists})
	r.Register(Spec{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Handler: cmdType})
	r.Register(Spec{Name: "EXPIRE", MinArgs: 2, MaxArgs: 2, Handler: cmdExpire})
	r.Register(Spec{Name: "PEXPIREAT", MinArgs: 2, MaxArgs: 2, Handler: cmdPExpireAt})
	r.Register(Spec{Name: "TTL", MinArgs: 1, MaxArgs: 1, Handler: cmdTTL})
	r.Register(Spec{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Handler: cmdPTTL})
	r.Register(Spec{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Handler: cmdPersist})
	r.Register(Spec{Name: "RENAME", MinArgs: 2, MaxArgs: 2, Handler: cmdRename})
	r.Register(Spec{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	r.Register(Spec{Name: "RANDOMKEY", MinArgs: 0, MaxArgs: 0, Handler: cmdRandomKey})
}

func cmdGet(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeString)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.NullBulk()
	}
	return resp.Bulk(v.Str.Bytes())
}

// cmdSet implements SET key value [EX seconds|PX ms] [NX|XX] (spec §6).
func cmdSet(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	value := ec.Args[1]

	var expireAt *time.Time
	nx, xx := false, false

	for i := 2; i < len(ec.Args); i++ {
		switch strings.ToUpper(string(ec.Args[i])) {
		case "EX":
			if i+1 >= len(ec.Args) {
				return resp.SyntaxErr()
			}
			secs, ok := parseInt64(ec.Args[i+1])
			if !ok {
				return resp.Err("ERR value is not an integer or out of range")
			}
			t := time.Now().Add(time.Duration(secs) * time.Second)
			expireAt = &t
			i++
		case "PX":
			if i+1 >= len(ec.Args) {
				return resp.SyntaxErr()
			}
			ms, ok := parseInt64(ec.Args[i+1])
			if !ok {
				return resp.Err("ERR value is not an integer or out of range")
			}
			t := time.Now().Add(time.Duration(ms) * time.Millisecond)
			expireAt = &t
			i++
		case "NX":
			nx = true
		case "XX":
			xx = true
		default:
			return resp.SyntaxErr()
		}
	}
	if nx && xx {
		return resp.SyntaxErr()
	}

	exists := ec.DB.Exists(key)
	if nx && exists {
		return resp.NullBulk()
	}
	if xx && !exists {
		return resp.NullBulk()
	}

	val := keyspace.NewStringValue(str.New(value))
	val.ExpireAt = expireAt
	if err := ec.DB.Set(key, val); err != nil {
		return oomErr(err)
	}

	feed(ec, "SET", ec.Args...)
	return resp.OK()
}

func cmdDel(ec *def.ExecContext) resp.Value {
	keys := make([]string, len(ec.Args))
	for i, a := range ec.Args {
		keys[i] = string(a)
	}
	count := ec.DB.Del(keys...)
	if count > 0 {
		feed(ec, "DEL", ec.Args...)
	}
	return resp.Int(count)
}

func cmdExists(ec *def.ExecContext) resp.Value {
	var count int64
	for _, a := range ec.Args {
		if ec.DB.Exists(string(a)) {
			count++
		}
	}
	return resp.Int(count)
}

func cmdType(ec *def.ExecContext) resp.Value {
	v, exists := ec.DB.Get(string(ec.Args[0]))
	if !exists {
		return resp.SimpleStr("none")
	}
	return resp.SimpleStr(v.Type.String())
}

func cmdExpire(ec *def.ExecContext) resp.Value {
	secs, ok := parseInt64(ec.Args[1])
	if !ok {
		return resp.Err("ERR value is not an integer or out of range")
	}
	whenMs := time.Now().Add(time.Duration(secs) * time.Second).UnixMilli()
	if ec.DB.ExpireAbsoluteMs(string(ec.Args[0]), whenMs) {
		feed(ec, "PEXPIREAT", ec.Args[0], []byte(itoa(whenMs)))
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdPExpireAt(ec *def.ExecContext) resp.Value {
	whenMs, ok := parseInt64(ec.Args[1])
	if !ok {
		return resp.Err("ERR value is not an integer or out of range")
	}
	if ec.DB.ExpireAbsoluteMs(string(ec.Args[0]), whenMs) {
		feed(ec, "PEXPIREAT", ec.Args...)
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdTTL(ec *def.ExecContext) resp.Value {
	ms := ec.DB.TTLMs(string(ec.Args[0]))
	if ms < 0 {
		return resp.Int(ms)
	}
	return resp.Int((ms + 999) / 1000)
}

func cmdPTTL(ec *def.ExecContext) resp.Value {
	return resp.Int(ec.DB.TTLMs(string(ec.Args[0])))
}

func cmdPersist(ec *def.ExecContext) resp.Value {
	if ec.DB.Persist(string(ec.Args[0])) {
		feed(ec, "PERSIST", ec.Args...)
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdRename(ec *def.ExecContext) resp.Value {
	if !ec.DB.Rename(string(ec.Args[0]), string(ec.Args[1])) {
		return resp.Err("ERR no such key")
	}
	feed(ec, "RENAME", ec.Args...)
	return resp.OK()
}

func cmdKeys(ec *def.ExecContext) resp.Value {
	keys := ec.DB.KeysMatching(string(ec.Args[0]))
	return resp.StringArray(keys)
}

func cmdRandomKey(ec *def.ExecContext) resp.Value {
	key, ok := ec.DB.RandomKey()
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString(key)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
