package command

import (
	"github.com/minidb/goredis/internal/datastruct/list"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

func registerListCommands(r *Registry) {
	r.Register(Spec{Name: "LPUSH", MinArgs: 2, MaxArgs: -1, Handler: cmdLPush})
	r.Register(Spec{Name: "RPUSH", MinArgs: 2, MaxArgs: -1, Handler: cmdRPush})
	r.Register(Spec{Name: "LPOP", MinArgs: 1, MaxArgs: 2, Handler: cmdLPop})
	r.Register(Spec{Name: "RPOP", MinArgs: 1, MaxArgs: 2, Handler: cmdRPop})
	r.Register(Spec{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdLRange})
	r.Register(Spec{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdLLen})
	r.Register(Spec{Name: "LINDEX", MinArgs: 2, MaxArgs: 2, Handler: cmdLIndex})
	r.Register(Spec{Name: "LSET", MinArgs: 3, MaxArgs: 3, Handler: cmdLSet})
	r.Register(Spec{Name: "LTRIM", MinArgs: 3, MaxArgs: 3, Handler: cmdLTrim})
}

func listOrNew(ec *def.ExecContext, key string) (list.List, *keyspace.Value, resp.Value, bool) {
	v, ok, errVal := typedValue(ec, key, keyspace.TypeList)
	if !ok {
		return nil, nil, errVal, false
	}
	if v == nil {
		v = keyspace.NewListValue(list.New())
		return v.List, v, resp.Value{}, true
	}
	return v.List, v, resp.Value{}, true
}

func cmdLPush(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	l, val, errVal, ok := listOrNew(ec, key)
	if !ok {
		return errVal
	}
	l.PushFront(ec.Args[1:]...)
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "LPUSH", ec.Args...)
	return resp.Int(l.Len())
}

func cmdRPush(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	l, val, errVal, ok := listOrNew(ec, key)
	if !ok {
		return errVal
	}
	l.PushBack(ec.Args[1:]...)
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "RPUSH", ec.Args...)
	return resp.Int(l.Len())
}

func cmdLPop(ec *def.ExecContext) resp.Value {
	return popList(ec, true)
}

func cmdRPop(ec *def.ExecContext) resp.Value {
	return popList(ec, false)
}

func popList(ec *def.ExecContext, front bool) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		if len(ec.Args) == 2 {
			return resp.EmptyArray()
		}
		return resp.NullBulk()
	}

	count := int64(1)
	multi := false
	if len(ec.Args) == 2 {
		n, convOk := parseInt64(ec.Args[1])
		if !convOk || n < 0 {
			return resp.Err("ERR value is not an integer or out of range")
		}
		count, multi = n, true
	}

	var popped [][]byte
	if front {
		popped = v.List.PopFront(count)
	} else {
		popped = v.List.PopBack(count)
	}
	dropIfEmpty(ec, key, v)

	if len(popped) > 0 {
		name := "LPOP"
		if !front {
			name = "RPOP"
		}
		feed(ec, name, ec.Args...)
	}

	if multi {
		return resp.BulkArray(popped)
	}
	if len(popped) == 0 {
		return resp.NullBulk()
	}
	return resp.Bulk(popped[0])
}

func cmdLRange(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.EmptyArray()
	}
	start, sOk := parseInt64(ec.Args[1])
	stop, eOk := parseInt64(ec.Args[2])
	if !sOk || !eOk {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return resp.BulkArray(v.List.RangeInclusive(start, stop))
}

func cmdLLen(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.List.Len())
}

func cmdLIndex(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.NullBulk()
	}
	i, convOk := parseInt64(ec.Args[1])
	if !convOk {
		return resp.Err("ERR value is not an integer or out of range")
	}
	item, found := v.List.Index(i)
	if !found {
		return resp.NullBulk()
	}
	return resp.Bulk(item)
}

func cmdLSet(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Err("ERR no such key")
	}
	i, convOk := parseInt64(ec.Args[1])
	if !convOk {
		return resp.Err("ERR value is not an integer or out of range")
	}
	if !v.List.Set(i, ec.Args[2]) {
		return resp.Err("ERR index out of range")
	}
	feed(ec, "LSET", ec.Args...)
	return resp.OK()
}

func cmdLTrim(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeList)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.OK()
	}
	start, sOk := parseInt64(ec.Args[1])
	stop, eOk := parseInt64(ec.Args[2])
	if !sOk || !eOk {
		return resp.Err("ERR value is not an integer or out of range")
	}
	v.List.Trim(start, stop)
	dropIfEmpty(ec, key, v)
	feed(ec, "LTRIM", ec.Args...)
	return resp.OK()
}
