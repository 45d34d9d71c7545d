package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/datastruct/hash"
	"github.com/minidb/goredis/internal/datastruct/list"
	"github.com/minidb/goredis/internal/datastruct/set"
	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/datastruct/zset"
	"github.com/minidb/goredis/internal/keyspace"
)

type fakeSource struct {
	dbs []*keyspace.Keyspace
}

func (f *fakeSource) DBCount() int                          { return len(f.dbs) }
func (f *fakeSource) KeyspaceAt(idx int) *keyspace.Keyspace { return f.dbs[idx] }
func (f *fakeSource) WithKeyspace(idx int, fn func(*keyspace.Keyspace)) { fn(f.dbs[idx]) }

func newFakeSource(n int) *fakeSource {
	f := &fakeSource{}
	for i := 0; i < n; i++ {
		f.dbs = append(f.dbs, keyspace.New(i, keyspace.NoEviction, 0))
	}
	return f
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := newFakeSource(2)

	ks0 := src.KeyspaceAt(0)
	ks0.Set("str", keyspace.NewStringValue(str.New([]byte("hello"))))

	l := list.New([]byte("a"), []byte("b"))
	ks0.Set("list", keyspace.NewListValue(l))

	h := hash.New()
	h.Set("f", []byte("v"))
	ks0.Set("hash", keyspace.NewHashValue(h))

	s := set.New()
	s.Add("x", "y")
	ks0.Set("set", keyspace.NewSetValue(s))

	z := zset.New()
	z.Add(1.5, "m1")
	ks0.Set("zset", keyspace.NewZSetValue(z))

	future := time.Now().Add(time.Hour).UnixMilli()
	ks0.ExpireAbsoluteMs("str", future)

	ks1 := src.KeyspaceAt(1)
	ks1.Set("other", keyspace.NewStringValue(str.New([]byte("db1"))))

	path := filepath.Join(t.TempDir(), "dump.rdb")
	require.NoError(t, Save(path, src))

	type installed struct {
		dbIndex int
		key     string
		v       *keyspace.Value
	}
	var got []installed
	err := Load(path, func(dbIndex int, key string, v *keyspace.Value) {
		got = append(got, installed{dbIndex, key, v})
	})
	require.NoError(t, err)
	require.Len(t, got, 6)

	byKey := make(map[string]installed)
	for _, r := range got {
		byKey[r.key] = r
	}

	require.Contains(t, byKey, "str")
	assert.Equal(t, 0, byKey["str"].dbIndex)
	assert.Equal(t, []byte("hello"), byKey["str"].v.Str.Bytes())
	require.NotNil(t, byKey["str"].v.ExpireAt)

	require.Contains(t, byKey, "list")
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, byKey["list"].v.List.RangeInclusive(0, -1))

	require.Contains(t, byKey, "hash")
	val, ok := byKey["hash"].v.Hash.Get("f")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.Contains(t, byKey, "set")
	assert.True(t, byKey["set"].v.Set.Contains("x"))

	require.Contains(t, byKey, "zset")
	score, ok := byKey["zset"].v.ZSet.Score("m1")
	require.True(t, ok)
	assert.Equal(t, 1.5, score)

	require.Contains(t, byKey, "other")
	assert.Equal(t, 1, byKey["other"].dbIndex)
}

func TestLoadMissingFileReturnsOSError(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.rdb"), func(int, string, *keyspace.Value) {})
	assert.Error(t, err)
}

func TestLoadRejectsCorruptedChecksum(t *testing.T) {
	src := newFakeSource(1)
	src.KeyspaceAt(0).Set("k", keyspace.NewStringValue(str.New([]byte("v"))))

	path := filepath.Join(t.TempDir(), "dump.rdb")
	require.NoError(t, Save(path, src))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	err = Load(path, func(int, string, *keyspace.Value) {})
	assert.Equal(t, ErrChecksum, err)
}
