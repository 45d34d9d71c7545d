package command

import (
	"github.com/minidb/goredis/internal/datastruct/set"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

func registerSetCommands(r *Registry) {
	r.Register(Spec{Name: "SADD", MinArgs: 2, MaxArgs: -1, Handler: cmdSAdd})
	r.Register(Spec{Name: "SREM", MinArgs: 2, MaxArgs: -1, Handler: cmdSRem})
	r.Register(Spec{Name: "SMEMBERS", MinArgs: 1, MaxArgs: 1, Handler: cmdSMembers})
	r.Register(Spec{Name: "SISMEMBER", MinArgs: 2, MaxArgs: 2, Handler: cmdSIsMember})
	r.Register(Spec{Name: "SCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdSCard})
	r.Register(Spec{Name: "SRANDMEMBER", MinArgs: 1, MaxArgs: 2, Handler: cmdSRandMember})
	r.Register(Spec{Name: "SPOP", MinArgs: 1, MaxArgs: 2, Handler: cmdSPop})
	r.Register(Spec{Name: "SINTER", MinArgs: 1, MaxArgs: -1, Handler: cmdSInter})
	r.Register(Spec{Name: "SUNION", MinArgs: 1, MaxArgs: -1, Handler: cmdSUnion})
	r.Register(Spec{Name: "SDIFF", MinArgs: 1, MaxArgs: -1, Handler: cmdSDiff})
	r.Register(Spec{Name: "SMOVE", MinArgs: 3, MaxArgs: 3, Handler: cmdSMove})
}

func setOrNew(ec *def.ExecContext, key string) (set.Set, *keyspace.Value, resp.Value, bool) {
	v, ok, errVal := typedValue(ec, key, keyspace.TypeSet)
	if !ok {
		return nil, nil, errVal, false
	}
	if v == nil {
		v = keyspace.NewSetValue(set.New())
		return v.Set, v, resp.Value{}, true
	}
	return v.Set, v, resp.Value{}, true
}

func cmdSAdd(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	s, val, errVal, ok := setOrNew(ec, key)
	if !ok {
		return errVal
	}
	members := make([]string, len(ec.Args)-1)
	for i, a := range ec.Args[1:] {
		members[i] = string(a)
	}
	added := s.Add(members...)
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	if added > 0 {
		feed(ec, "SADD", ec.Args...)
	}
	return resp.Int(added)
}

func cmdSRem(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	members := make([]string, len(ec.Args)-1)
	for i, a := range ec.Args[1:] {
		members[i] = string(a)
	}
	removed := v.Set.Rem(members...)
	dropIfEmpty(ec, key, v)
	if removed > 0 {
		feed(ec, "SREM", ec.Args...)
	}
	return resp.Int(removed)
}

func cmdSMembers(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.EmptyArray()
	}
	return resp.StringArray(v.Set.Members())
}

func cmdSIsMember(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	if v.Set.Contains(string(ec.Args[1])) {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdSCard(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.Set.Card())
}

func cmdSRandMember(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		if len(ec.Args) == 2 {
			return resp.EmptyArray()
		}
		return resp.NullBulk()
	}
	if len(ec.Args) == 1 {
		sample := v.Set.RandomSample(1)
		if len(sample) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString(sample[0])
	}
	n, ok := parseInt64(ec.Args[1])
	if !ok {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return resp.StringArray(v.Set.RandomSample(int(n)))
}

func cmdSPop(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if v == nil {
		if len(ec.Args) == 2 {
			return resp.EmptyArray()
		}
		return resp.NullBulk()
	}

	n := int64(1)
	multi := false
	if len(ec.Args) == 2 {
		parsed, convOk := parseInt64(ec.Args[1])
		if !convOk || parsed < 0 {
			return resp.Err("ERR value is not an integer or out of range")
		}
		n, multi = parsed, true
	}

	popped := v.Set.PopRandom(int(n))
	dropIfEmpty(ec, key, v)
	if len(popped) > 0 {
		feed(ec, "SREM", append([][]byte{ec.Args[0]}, stringsToBytes(popped)...)...)
	}

	if multi {
		return resp.StringArray(popped)
	}
	if len(popped) == 0 {
		return resp.NullBulk()
	}
	return resp.BulkString(popped[0])
}

func cmdSInter(ec *def.ExecContext) resp.Value {
	return setCombine(ec, func(a, b set.Set) []string { return a.Inter(b) })
}

func cmdSUnion(ec *def.ExecContext) resp.Value {
	return setCombine(ec, func(a, b set.Set) []string { return a.Union(b) })
}

func cmdSDiff(ec *def.ExecContext) resp.Value {
	return setCombine(ec, func(a, b set.Set) []string { return a.Diff(b) })
}

func setCombine(ec *def.ExecContext, op func(a, b set.Set) []string) resp.Value {
	first, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeSet)
	if !ok {
		return errVal
	}
	var acc set.Set
	if first == nil {
		acc = set.New()
	} else {
		acc = first.Set
	}

	for _, a := range ec.Args[1:] {
		next, ok, errVal := typedValue(ec, string(a), keyspace.TypeSet)
		if !ok {
			return errVal
		}
		var other set.Set
		if next == nil {
			other = set.New()
		} else {
			other = next.Set
		}
		merged := set.New()
		merged.Add(op(acc, other)...)
		acc = merged
	}
	return resp.StringArray(acc.Members())
}

func cmdSMove(ec *def.ExecContext) resp.Value {
	srcKey, dstKey, member := string(ec.Args[0]), string(ec.Args[1]), string(ec.Args[2])

	src, ok, errVal := typedValue(ec, srcKey, keyspace.TypeSet)
	if !ok {
		return errVal
	}
	if src == nil || !src.Set.Contains(member) {
		return resp.Int(0)
	}

	dst, dstVal, errVal2, dstOk := setOrNew(ec, dstKey)
	if !dstOk {
		return errVal2
	}

	// Install dst before mutating src, so a rejected OOM write leaves both
	// sets untouched instead of dropping member from src without it ever
	// landing in dst.
	dst.Add(member)
	if err := ec.DB.SetKeepTTL(dstKey, dstVal); err != nil {
		return oomErr(err)
	}
	src.Set.Rem(member)
	dropIfEmpty(ec, srcKey, src)

	feed(ec, "SMOVE", ec.Args...)
	return resp.Int(1)
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
