package command

import (
	"github.com/minidb/goredis/internal/datastruct/hash"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

func registerHashCommands(r *Registry) {
	r.Register(Spec{Name: "HSET", MinArgs: 3, MaxArgs: -1, Handler: cmdHSet})
	r.Register(Spec{Name: "HGET", MinArgs: 2, MaxArgs: 2, Handler: cmdHGet})
	r.Register(Spec{Name: "HDEL", MinArgs: 2, MaxArgs: -1, Handler: cmdHDel})
	r.Register(Spec{Name: "HEXISTS", MinArgs: 2, MaxArgs: 2, Handler: cmdHExists})
	r.Register(Spec{Name: "HLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdHLen})
	r.Register(Spec{Name: "HGETALL", MinArgs: 1, MaxArgs: 1, Handler: cmdHGetAll})
	r.Register(Spec{Name: "HKEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdHKeys})
	r.Register(Spec{Name: "HVALS", MinArgs: 1, MaxArgs: 1, Handler: cmdHVals})
	r.Register(Spec{Name: "HINCRBY", MinArgs: 3, MaxArgs: 3, Handler: cmdHIncrBy})
	r.Register(Spec{Name: "HSETNX", MinArgs: 3, MaxArgs: 3, Handler: cmdHSetNX})
	// Supplemented per SPEC_FULL.md: bonus hash commands grounded on
	// original_source's command/impl/HMGetCommand.java and HMSetCommand.java.
	r.Register(Spec{Name: "HMGET", MinArgs: 2, MaxArgs: -1, Handler: cmdHMGet})
	r.Register(Spec{Name: "HMSET", MinArgs: 3, MaxArgs: -1, Handler: cmdHMSet})
}

func hashOrNew(ec *def.ExecContext, key string) (hash.Hash, *keyspace.Value, resp.Value, bool) {
	v, ok, errVal := typedValue(ec, key, keyspace.TypeHash)
	if !ok {
		return nil, nil, errVal, false
	}
	if v == nil {
		v = keyspace.NewHashValue(hash.New())
		return v.Hash, v, resp.Value{}, true
	}
	return v.Hash, v, resp.Value{}, true
}

func cmdHSet(ec *def.ExecContext) resp.Value {
	if (len(ec.Args)-1)%2 != 0 {
		return resp.WrongArityErr("hset")
	}
	key := string(ec.Args[0])
	h, val, errVal, ok := hashOrNew(ec, key)
	if !ok {
		return errVal
	}
	var created int64
	for i := 1; i+1 < len(ec.Args); i += 2 {
		if h.Set(string(ec.Args[i]), ec.Args[i+1]) {
			created++
		}
	}
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "HSET", ec.Args...)
	return resp.Int(created)
}

func cmdHGet(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.NullBulk()
	}
	val, found := v.Hash.Get(string(ec.Args[1]))
	if !found {
		return resp.NullBulk()
	}
	return resp.Bulk(val)
}

func cmdHDel(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	fields := make([]string, len(ec.Args)-1)
	for i, a := range ec.Args[1:] {
		fields[i] = string(a)
	}
	count := v.Hash.Del(fields...)
	dropIfEmpty(ec, key, v)
	if count > 0 {
		feed(ec, "HDEL", ec.Args...)
	}
	return resp.Int(count)
}

func cmdHExists(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	if v.Hash.Exists(string(ec.Args[1])) {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdHLen(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.Hash.Len())
}

func cmdHGetAll(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.EmptyArray()
	}
	all := v.Hash.GetAll()
	items := make([]resp.Value, 0, 2*len(all))
	for field, value := range all {
		items = append(items, resp.BulkString(field), resp.Bulk(value))
	}
	return resp.ArrayOf(items...)
}

func cmdHKeys(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.EmptyArray()
	}
	all := v.Hash.GetAll()
	keys := make([]string, 0, len(all))
	for field := range all {
		keys = append(keys, field)
	}
	return resp.StringArray(keys)
}

func cmdHVals(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.EmptyArray()
	}
	all := v.Hash.GetAll()
	vals := make([][]byte, 0, len(all))
	for _, value := range all {
		vals = append(vals, value)
	}
	return resp.BulkArray(vals)
}

func cmdHIncrBy(ec *def.ExecContext) resp.Value {
	delta, ok := parseInt64(ec.Args[2])
	if !ok {
		return resp.Err("ERR value is not an integer or out of range")
	}
	key := string(ec.Args[0])
	h, val, errVal, convOk := hashOrNew(ec, key)
	if !convOk {
		return errVal
	}
	result, err := h.IncrBy(string(ec.Args[1]), delta)
	if err != nil {
		return resp.Err(err.Error())
	}
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "HINCRBY", ec.Args...)
	return resp.Int(result)
}

func cmdHSetNX(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	h, val, errVal, ok := hashOrNew(ec, key)
	if !ok {
		return errVal
	}
	if !h.SetIfAbsent(string(ec.Args[1]), ec.Args[2]) {
		return resp.Int(0)
	}
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "HSETNX", ec.Args...)
	return resp.Int(1)
}

func cmdHMGet(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeHash)
	if !ok {
		return errVal
	}
	items := make([]resp.Value, len(ec.Args)-1)
	for i, field := range ec.Args[1:] {
		if v == nil {
			items[i] = resp.NullBulk()
			continue
		}
		value, found := v.Hash.Get(string(field))
		if !found {
			items[i] = resp.NullBulk()
		} else {
			items[i] = resp.Bulk(value)
		}
	}
	return resp.ArrayOf(items...)
}

func cmdHMSet(ec *def.ExecContext) resp.Value {
	v := cmdHSet(ec)
	if v.IsError() {
		return v
	}
	return resp.OK()
}
