package command

import (
	"strconv"
	"strings"

	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/datastruct/zset"
)

func registerZSetCommands(r *Registry) {
	r.Register(Spec{Name: "ZADD", MinArgs: 3, MaxArgs: -1, Handler: cmdZAdd})
	r.Register(Spec{Name: "ZREM", MinArgs: 2, MaxArgs: -1, Handler: cmdZRem})
	r.Register(Spec{Name: "ZSCORE", MinArgs: 2, MaxArgs: 2, Handler: cmdZScore})
	r.Register(Spec{Name: "ZCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdZCard})
	r.Register(Spec{Name: "ZRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRank})
	r.Register(Spec{Name: "ZREVRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRevRank})
	r.Register(Spec{Name: "ZRANGE", MinArgs: 3, MaxArgs: 4, Handler: cmdZRange})
	r.Register(Spec{Name: "ZREVRANGE", MinArgs: 3, MaxArgs: 4, Handler: cmdZRevRange})
	r.Register(Spec{Name: "ZRANGEBYSCORE", MinArgs: 3, MaxArgs: 4, Handler: cmdZRangeByScore})
	r.Register(Spec{Name: "ZCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZCount})
	r.Register(Spec{Name: "ZINCRBY", MinArgs: 3, MaxArgs: 3, Handler: cmdZIncrBy})
}

func zsetOrNew(ec *def.ExecContext, key string) (zset.SortedSet, *keyspace.Value, resp.Value, bool) {
	v, ok, errVal := typedValue(ec, key, keyspace.TypeZSet)
	if !ok {
		return nil, nil, errVal, false
	}
	if v == nil {
		v = keyspace.NewZSetValue(zset.New())
		return v.ZSet, v, resp.Value{}, true
	}
	return v.ZSet, v, resp.Value{}, true
}

func cmdZAdd(ec *def.ExecContext) resp.Value {
	if (len(ec.Args)-1)%2 != 0 {
		return resp.WrongArityErr("zadd")
	}
	key := string(ec.Args[0])
	z, val, errVal, ok := zsetOrNew(ec, key)
	if !ok {
		return errVal
	}

	var added int64
	for i := 1; i+1 < len(ec.Args); i += 2 {
		score, convOk := parseFloat64(ec.Args[i])
		if !convOk {
			return resp.Err("ERR value is not a valid float")
		}
		if z.Add(score, string(ec.Args[i+1])) == zset.Added {
			added++
		}
	}
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "ZADD", ec.Args...)
	return resp.Int(added)
}

func cmdZRem(ec *def.ExecContext) resp.Value {
	key := string(ec.Args[0])
	v, ok, errVal := typedValue(ec, key, keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	var removed int64
	for _, m := range ec.Args[1:] {
		removed += v.ZSet.Rem(string(m))
	}
	dropIfEmpty(ec, key, v)
	if removed > 0 {
		feed(ec, "ZREM", ec.Args...)
	}
	return resp.Int(removed)
}

func cmdZScore(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.NullBulk()
	}
	score, found := v.ZSet.Score(string(ec.Args[1]))
	if !found {
		return resp.NullBulk()
	}
	return resp.BulkString(formatFloat(score))
}

func cmdZCard(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.ZSet.Card())
}

func cmdZRank(ec *def.ExecContext) resp.Value {
	return zRank(ec, false)
}

func cmdZRevRank(ec *def.ExecContext) resp.Value {
	return zRank(ec, true)
}

func zRank(ec *def.ExecContext, reverse bool) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	if v == nil {
		return resp.NullBulk()
	}
	rank, found := v.ZSet.Rank(string(ec.Args[1]), reverse)
	if !found {
		return resp.NullBulk()
	}
	return resp.Int(rank)
}

func cmdZRange(ec *def.ExecContext) resp.Value {
	return zRange(ec, false)
}

func cmdZRevRange(ec *def.ExecContext) resp.Value {
	return zRange(ec, true)
}

func zRange(ec *def.ExecContext, reverse bool) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	start, sOk := parseInt64(ec.Args[1])
	stop, eOk := parseInt64(ec.Args[2])
	if !sOk || !eOk {
		return resp.Err("ERR value is not an integer or out of range")
	}

	withScores := false
	if len(ec.Args) == 4 {
		if strings.ToUpper(string(ec.Args[3])) != "WITHSCORES" {
			return resp.SyntaxErr()
		}
		withScores = true
	}

	if v == nil {
		return resp.EmptyArray()
	}
	entries := v.ZSet.RangeByRank(start, stop, reverse)
	return entriesToReply(entries, withScores)
}

func cmdZRangeByScore(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	min, minOk := parseFloat64(ec.Args[1])
	max, maxOk := parseFloat64(ec.Args[2])
	if !minOk || !maxOk {
		return resp.Err("ERR min or max is not a float")
	}

	withScores := false
	if len(ec.Args) == 4 {
		if strings.ToUpper(string(ec.Args[3])) != "WITHSCORES" {
			return resp.SyntaxErr()
		}
		withScores = true
	}

	if v == nil {
		return resp.EmptyArray()
	}
	entries := v.ZSet.RangeByScore(min, max)
	return entriesToReply(entries, withScores)
}

func cmdZCount(ec *def.ExecContext) resp.Value {
	v, ok, errVal := typedValue(ec, string(ec.Args[0]), keyspace.TypeZSet)
	if !ok {
		return errVal
	}
	min, minOk := parseFloat64(ec.Args[1])
	max, maxOk := parseFloat64(ec.Args[2])
	if !minOk || !maxOk {
		return resp.Err("ERR min or max is not a float")
	}
	if v == nil {
		return resp.Int(0)
	}
	return resp.Int(v.ZSet.CountByScore(min, max))
}

func cmdZIncrBy(ec *def.ExecContext) resp.Value {
	delta, ok := parseFloat64(ec.Args[1])
	if !ok {
		return resp.Err("ERR value is not a valid float")
	}
	key := string(ec.Args[0])
	z, val, errVal, convOk := zsetOrNew(ec, key)
	if !convOk {
		return errVal
	}
	newScore := z.IncrBy(string(ec.Args[2]), delta)
	if err := ec.DB.SetKeepTTL(key, val); err != nil {
		return oomErr(err)
	}
	feed(ec, "ZADD", ec.Args...)
	return resp.BulkString(formatFloat(newScore))
}

func entriesToReply(entries []zset.Entry, withScores bool) resp.Value {
	size := len(entries)
	if withScores {
		size *= 2
	}
	items := make([]resp.Value, 0, size)
	for _, e := range entries {
		items = append(items, resp.BulkString(e.Member))
		if withScores {
			items = append(items, resp.BulkString(formatFloat(e.Score)))
		}
	}
	return resp.ArrayOf(items...)
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
