package aof

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.New(log.Config{Console: false})
	require.NoError(t, err)
	return logger
}

func TestParseFsyncPolicy(t *testing.T) {
	assert.Equal(t, FsyncAlways, ParseFsyncPolicy("always"))
	assert.Equal(t, FsyncNo, ParseFsyncPolicy("no"))
	assert.Equal(t, FsyncEverySec, ParseFsyncPolicy("everysec"))
	assert.Equal(t, FsyncEverySec, ParseFsyncPolicy("garbage"), "unrecognized policy defaults to everysec")
}

func TestFeedAlwaysWritesSynchronously(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := Open(path, FsyncAlways, 0, 0, testLogger(t))
	require.NoError(t, err)
	defer w.Close()

	w.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	var got []int
	var names []string
	err = Replay(path, func(dbIndex int, args [][]byte) error {
		got = append(got, dbIndex)
		names = append(names, string(args[0]))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
	assert.Equal(t, []string{"SET"}, names)
}

func TestFeedEmitsSelectOnDBChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := Open(path, FsyncAlways, 0, 0, testLogger(t))
	require.NoError(t, err)

	w.Feed(0, [][]byte{[]byte("SET"), []byte("a"), []byte("1")})
	w.Feed(1, [][]byte{[]byte("SET"), []byte("b"), []byte("2")})
	w.Feed(1, [][]byte{[]byte("SET"), []byte("c"), []byte("3")})
	require.NoError(t, w.Close())

	var dbIndexes []int
	err = Replay(path, func(dbIndex int, args [][]byte) error {
		dbIndexes = append(dbIndexes, dbIndex)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, dbIndexes)
}

func TestFeedEverySecQueuesAndFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := Open(path, FsyncEverySec, 0, 0, testLogger(t))
	require.NoError(t, err)

	w.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	require.NoError(t, w.Close())

	var count int
	err = Replay(path, func(int, [][]byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestShouldRewriteThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := Open(path, FsyncAlways, 10, 100, testLogger(t))
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.ShouldRewrite(), "below rewriteMinSize")

	for i := 0; i < 50; i++ {
		w.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("a-reasonably-long-value-to-grow-the-file")})
	}
	assert.True(t, w.ShouldRewrite())
}

type fakeSource struct {
	dbs []*keyspace.Keyspace
}

func (f *fakeSource) DBCount() int                                     { return len(f.dbs) }
func (f *fakeSource) WithKeyspace(idx int, fn func(*keyspace.Keyspace)) { fn(f.dbs[idx]) }

func TestRewriteProducesReplayableSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := Open(path, FsyncAlways, 0, 0, testLogger(t))
	require.NoError(t, err)
	defer w.Close()

	w.Feed(0, [][]byte{[]byte("SET"), []byte("k1"), []byte("old")})
	w.Feed(0, [][]byte{[]byte("SET"), []byte("k1"), []byte("new")})

	ks := keyspace.New(0, keyspace.NoEviction, 0)
	ks.Set("k1", keyspace.NewStringValue(str.New([]byte("new"))))
	future := time.Now().Add(time.Hour).UnixMilli()
	ks.ExpireAbsoluteMs("k1", future)

	src := &fakeSource{dbs: []*keyspace.Keyspace{ks}}
	require.NoError(t, Rewrite(w, src))

	var sawPexpireat bool
	var lastValue string
	err = Replay(path, func(dbIndex int, args [][]byte) error {
		if string(args[0]) == "PEXPIREAT" {
			sawPexpireat = true
		}
		if string(args[0]) == "SET" {
			lastValue = string(args[2])
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawPexpireat)
	assert.Equal(t, "new", lastValue)
}
