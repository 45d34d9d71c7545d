package keyspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/datastruct/str"
)

func TestSetGetAndExists(t *testing.T) {
	ks := New(0, NoEviction, 0)

	ks.Set("k", NewStringValue(str.New([]byte("v"))))
	v, ok := ks.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v.Str.Bytes()))
	assert.True(t, ks.Exists("k"))

	_, ok = ks.Get("missing")
	assert.False(t, ok)
}

func TestTTLSentinelsAndExpiry(t *testing.T) {
	ks := New(0, NoEviction, 0)

	assert.Equal(t, int64(TTLNoKey), ks.TTLMs("ghost"))

	ks.Set("k", NewStringValue(str.New([]byte("v"))))
	assert.Equal(t, int64(TTLPersistent), ks.TTLMs("k"))

	past := time.Now().Add(-time.Second).UnixMilli()
	ok := ks.ExpireAbsoluteMs("k", past)
	assert.True(t, ok)
	assert.False(t, ks.Exists("k"))
	assert.Equal(t, int64(TTLNoKey), ks.TTLMs("k"))
}

func TestPersistRemovesTTL(t *testing.T) {
	ks := New(0, NoEviction, 0)
	ks.Set("k", NewStringValue(str.New([]byte("v"))))

	future := time.Now().Add(time.Hour).UnixMilli()
	require.True(t, ks.ExpireAbsoluteMs("k", future))
	assert.Greater(t, ks.TTLMs("k"), int64(0))

	require.True(t, ks.Persist("k"))
	assert.Equal(t, int64(TTLPersistent), ks.TTLMs("k"))
}

func TestRenamePreservesTTL(t *testing.T) {
	ks := New(0, NoEviction, 0)
	ks.Set("src", NewStringValue(str.New([]byte("v"))))
	future := time.Now().Add(time.Hour).UnixMilli()
	require.True(t, ks.ExpireAbsoluteMs("src", future))

	require.True(t, ks.Rename("src", "dst"))
	assert.False(t, ks.Exists("src"))
	assert.True(t, ks.Exists("dst"))
	assert.Greater(t, ks.TTLMs("dst"), int64(0))
}

func TestVersionBumpsOnWriteAndDelete(t *testing.T) {
	ks := New(0, NoEviction, 0)
	v0 := ks.Version("k")

	ks.Set("k", NewStringValue(str.New([]byte("v"))))
	v1 := ks.Version("k")
	assert.Greater(t, v1, v0)

	ks.Del("k")
	v2 := ks.Version("k")
	assert.Greater(t, v2, v1)
}

func TestDelAndFlush(t *testing.T) {
	ks := New(0, NoEviction, 0)
	ks.Set("a", NewStringValue(str.New([]byte("1"))))
	ks.Set("b", NewStringValue(str.New([]byte("2"))))
	assert.EqualValues(t, 2, ks.Size())

	assert.EqualValues(t, 1, ks.Del("a", "nope"))
	assert.EqualValues(t, 1, ks.Size())

	ks.Flush()
	assert.EqualValues(t, 0, ks.Size())
}

func TestKeysMatchingReapsExpired(t *testing.T) {
	ks := New(0, NoEviction, 0)
	ks.Set("hello", NewStringValue(str.New([]byte("v"))))
	ks.Set("help", NewStringValue(str.New([]byte("v"))))
	ks.Set("other", NewStringValue(str.New([]byte("v"))))

	matches := ks.KeysMatching("hel*")
	assert.ElementsMatch(t, []string{"hello", "help"}, matches)
}

func TestSweepReapsExpiredKeys(t *testing.T) {
	ks := New(0, NoEviction, 0)
	past := time.Now().Add(-time.Second)

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		v := NewStringValue(str.New([]byte("v")))
		v.ExpireAt = &past
		ks.Set(key, v)
	}
	require.EqualValues(t, 5, ks.Size(), "expired keys stay resident until something reaps them")

	ks.SweepUntilClean(4)
	assert.EqualValues(t, 0, ks.Size())
}
