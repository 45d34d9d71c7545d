package command

import (
	"strconv"

	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

// typedValue fetches key, type-checking against want. ok is false and
// errVal carries WRONGTYPE when the key exists but holds a different
// container; a missing key returns (nil, true, zero-Value) — "absent" is
// not a type error.
func typedValue(ec *def.ExecContext, key string, want keyspace.ValueType) (v *keyspace.Value, ok bool, errVal resp.Value) {
	val, exists := ec.DB.Get(key)
	if !exists {
		return nil, true, resp.Value{}
	}
	if val.Type != want {
		return nil, false, resp.WrongTypeErr()
	}
	return val, true, resp.Value{}
}

// oomErr translates the error Set/SetKeepTTL return (always
// keyspace.ErrOOM today) into the command's reply.
func oomErr(err error) resp.Value {
	return resp.Err(err.Error())
}

// feed appends the just-executed write command to the AOF, if enabled.
// name is the canonical command verb; args excludes it.
func feed(ec *def.ExecContext, name string, args ...[]byte) {
	if ec.AOF == nil {
		return
	}
	line := make([][]byte, 0, len(args)+1)
	line = append(line, []byte(name))
	line = append(line, args...)
	ec.AOF.Feed(ec.Session.DBIndex(), line)
}

func parseInt64(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func parseFloat64(b []byte) (float64, bool) {
	f, err := strconv.ParseFloat(string(b), 64)
	return f, err == nil
}

// dropIfEmpty deletes key when its container is an empty collection after
// a mutation, enforcing spec §3's "keys never point to empty collections"
// invariant.
func dropIfEmpty(ec *def.ExecContext, key string, v *keyspace.Value) {
	if v.Empty() {
		ec.DB.Del(key)
	}
}
