// Package keyspace implements one logical database: the key->value map,
// its expiration index, per-key versions (the basis of WATCH), and the
// eviction/sweeper machinery around it (spec §4.3).
//
// It generalizes the teacher's datastore package (datastore/kv_store.go,
// expire.go, operator.go — a single flat KVStore keyed by arbitrary
// interface{} values with ad hoc type assertions per command) into a
// single tagged-union Value type per spec §9's redesign note, replacing
// the teacher's per-command getAsXxx/putAsXxx type-assertion pairs with
// one exhaustive switch.
package keyspace

import (
	"time"

	"github.com/minidb/goredis/internal/datastruct/hash"
	"github.com/minidb/goredis/internal/datastruct/list"
	"github.com/minidb/goredis/internal/datastruct/set"
	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/datastruct/zset"
)

// ValueType tags which typed container a Value holds.
type ValueType int

const (
	TypeString ValueType = iota
	TypeList
	TypeHash
	TypeSet
	TypeZSet
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// Value is the tagged union stored for every key. Exactly one of
// Str/List/Hash/Set/ZSet is non-nil, selected by Type.
type Value struct {
	Type ValueType
	Str  str.String
	List list.List
	Hash hash.Hash
	Set  set.Set
	ZSet zset.SortedSet

	CreatedAt   time.Time
	LastAccess  time.Time
	AccessCount uint32 // LFU counter, see eviction.go
	ExpireAt    *time.Time
}

func newValue(t ValueType) *Value {
	now := time.Now()
	return &Value{Type: t, CreatedAt: now, LastAccess: now}
}

func NewStringValue(v str.String) *Value {
	val := newValue(TypeString)
	val.Str = v
	return val
}

func NewListValue(v list.List) *Value {
	val := newValue(TypeList)
	val.List = v
	return val
}

func NewHashValue(v hash.Hash) *Value {
	val := newValue(TypeHash)
	val.Hash = v
	return val
}

func NewSetValue(v set.Set) *Value {
	val := newValue(TypeSet)
	val.Set = v
	return val
}

func NewZSetValue(v zset.SortedSet) *Value {
	val := newValue(TypeZSet)
	val.ZSet = v
	return val
}

// Empty reports whether the container, if a collection, has no elements —
// used to enforce spec §3's "keys never point to empty collections"
// invariant after a mutation.
func (v *Value) Empty() bool {
	switch v.Type {
	case TypeList:
		return v.List.Len() == 0
	case TypeHash:
		return v.Hash.Len() == 0
	case TypeSet:
		return v.Set.Card() == 0
	case TypeZSet:
		return v.ZSet.Card() == 0
	default:
		return false
	}
}

// touch records an access for LRU/LFU bookkeeping.
func (v *Value) touch() {
	v.LastAccess = time.Now()
	if v.AccessCount < ^uint32(0) {
		v.AccessCount++
	}
}

// ToCmd reconstructs the mutating command(s) that recreate this value, used
// by AOF rewrite (spec §9's explicit open question).
func (v *Value) ToCmd(key string) [][]byte {
	switch v.Type {
	case TypeString:
		return v.Str.ToCmd(key)
	case TypeList:
		return v.List.ToCmd(key)
	case TypeHash:
		return v.Hash.ToCmd(key)
	case TypeSet:
		return v.Set.ToCmd(key)
	case TypeZSet:
		return v.ZSet.ToCmd(key)
	default:
		return nil
	}
}
