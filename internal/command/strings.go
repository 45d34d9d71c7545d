package command

import (
	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

func registerStringCommands(r *Registry) {
	r.Register(Spec{Name: "INCR", MinArgs: 1, MaxArgs: 1, Handler: cmdIncr})
	r.Register(Spec{Name: "DECR", MinArgs: 1, MaxArgs: 1, Handler: cmdDecr})
	r.Register(Spec{Name: "INCRBY", MinArgs: 2, MaxArgs: 2, Handler: cmdIncrBy})
	r.Register(Spec{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Handler: cmdAppend})
	r.Register(Spec{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdStrLen})

	// GETSET/SETNX/GETRANGE/SETRANGE: not in spec.md's minimum command set,
	// added per SPEC_FULL.md's supplemented-features rule since they exercise
	// only the already-required String surface (grounded on original_source's
	// StringCommands.java).
	r.Register(Spec{Name: "GETSET", MinArgs: 2, MaxArgs: 2, Handler: cmdGetSet})
	r.Register(Spec{Name: "SETNX", MinArgs: 2, MaxArgs: 2, Handler: cmdSetNX})
	r.Register(Spec{Name: "GETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdGetRange})
	r.Register(Spec{Name: "SETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdSetRange})
}

// stringOrNew fetches key as a String, creating an empty one in-place
// (without installing it) when absent, so callers can mutate uniformly.
func stringOrNew(ec *def.ExecContext, key string) (str.String, *keyspace.Value, resp.Value, bool) {
	v, ok, errVal := typedValue(ec, key, keyspace.TypeString)
	if !ok {
		return nil, nil, errVal, false
	}
	if v == nil {
		v = keyspace.NewStringValue(str.New(nil))
		return v.Str, v, resp.Value{}, true
	}
	return v.Str, v, resp.Value{}, true
}

func cmdIncr(ec *def.ExecContext) resp.Value {
	return incrByDelta(ec, string(ec.Args[0]), 1, "INCR")
}

func cmdDecr(ec *def.ExecContext) resp.Value {
	return incrByDelta(ec, string(ec.Args[0]), -1, "DECR")
}

func cmdIncrBy(ec *def.ExecContext) resp.Value {
	delta, ok := parseInt64(ec.Args[1])
	if !ok {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return incrByDelta(ec, string(ec.Args[0]), delta, "INCRBY")
}

func incrByDelta(ec *def.ExecContext, key string, delta int64, cmdName string) resp.Value {
	s, val, errVal, ok := stringOrNew(ec, key)
	if !ok {
		return errVal
	}
	result, err := s.IncrBy(delta)
	if err != nil {
		return resp.Err(err.Error())
	}
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "SET", []byte(key), s.Bytes())
	return resp.Int(result)
}

func cmdAppend(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	s, val, errVal, ok := stringOrNew(ec, key)
	if !ok {
		return errVal
	}
	n := s.Append(ec.Args[1])
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "APPEND", ec.Args...)
	return resp.Int(n)
}

func cmdStrLen(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeString)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.Str.Len())
}

// cmdGetSet implements GETSET key value: atomically swaps in a new value,
// clearing any existing TTL, and returns the previous value (nil if absent).
func cmdGetSet(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeString)
	if !ok {
		return errVal
	}

	var old resp.Value
	if v == nil {
		old = resp.NullBulk()
	} else {
		old = resp.Bulk(v.Str.Bytes())
	}

	if err := ec.DB.Set(key, keyspace.NewStringValue(str.New(ec.Args[1]))); err != nil {
		return oomErr(err)
	}
	feed(ec, "SET", ec.Args...)
	return old
}

// cmdSetNX implements SETNX key value: sets only when key is absent.
func cmdSetNX(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	if ec.DB.Exists(key) {
		return resp.Int(0)
	}
	if err := ec.DB.Set(key, keyspace.NewStringValue(str.New(ec.Args[1]))); err != nil {
		return oomErr(err)
	}
	feed(ec, "SET", ec.Args...)
	return resp.Int(1)
}

// cmdGetRange implements GETRANGE key start end with Redis's negative-index
// and clamping rules (spec §3's container semantics, extended per
// original_source's StringCommands.java#getRange).
func cmdGetRange(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeString)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Bulk([]byte{})
	}
	start, ok1 := parseInt64(ec.Args[1])
	end, ok2 := parseInt64(ec.Args[2])
	if !ok1 || !ok2 {
		return resp.Err("ERR value is not an integer or out of range")
	}

	data := v.Str.Bytes()
	n := int64(len(data))
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if n == 0 || start > end || start >= n {
		return resp.Bulk([]byte{})
	}
	return resp.Bulk(data[start : end+1])
}

// cmdSetRange implements SETRANGE key offset value, zero-padding the string
// if offset lands beyond its current length.
func cmdSetRange(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	offset, ok := parseInt64(ec.Args[1])
	if !ok || offset < 0 {
		return resp.Err("ERR offset is out of range")
	}

	s, val, errVal, ok2 := stringOrNew(ec, key)
	if !ok2 {
		return errVal
	}
	n := s.SetRange(offset, ec.Args[2])
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "SETRANGE", ec.Args...)
	return resp.Int(n)
}
