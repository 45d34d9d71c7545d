package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidb/goredis/internal/command"
	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/persistence/aof"
	"github.com/minidb/goredis/internal/session"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	logger, err := log.New(log.Config{Console: false})
	require.NoError(t, err)
	return logger
}

func TestSaveThenLoadOnStartupRestoresState(t *testing.T) {
	dir := t.TempDir()
	reg := command.NewRegistry()
	manager := dbmanager.New(1, keyspace.NoEviction, 0, reg, testLogger(t))
	defer manager.Close()

	sess := session.New(1)
	ctx := context.Background()
	manager.Dispatch(ctx, sess, nil, nil, nil, "SET", [][]byte{[]byte("k"), []byte("v")})

	cfg := Config{SnapshotPath: filepath.Join(dir, "dump.rdb")}
	p, err := Open(cfg, manager, reg, testLogger(t))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Save())

	fresh := dbmanager.New(1, keyspace.NoEviction, 0, reg, testLogger(t))
	defer fresh.Close()
	p2, err := Open(cfg, fresh, reg, testLogger(t))
	require.NoError(t, err)
	defer p2.Close()

	require.NoError(t, p2.LoadOnStartup())

	reply := fresh.Dispatch(ctx, sess, nil, nil, nil, "GET", [][]byte{[]byte("k")})
	assert.Equal(t, []byte("v"), reply.Bulk)
}

func TestLoadOnStartupReplaysAOFAfterSnapshot(t *testing.T) {
	dir := t.TempDir()
	reg := command.NewRegistry()
	cfg := Config{
		SnapshotPath: filepath.Join(dir, "dump.rdb"),
		AOFEnabled:   true,
		AOFPath:      filepath.Join(dir, "appendonly.aof"),
		AOFFsync:     aof.FsyncAlways,
	}

	writer, err := aof.Open(cfg.AOFPath, cfg.AOFFsync, 0, 0, testLogger(t))
	require.NoError(t, err)
	writer.Feed(0, [][]byte{[]byte("SET"), []byte("fromaof"), []byte("1")})
	require.NoError(t, writer.Close())

	manager := dbmanager.New(1, keyspace.NoEviction, 0, reg, testLogger(t))
	defer manager.Close()
	p, err := Open(cfg, manager, reg, testLogger(t))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.LoadOnStartup())

	sess := session.New(1)
	reply := manager.Dispatch(context.Background(), sess, nil, nil, nil, "GET", [][]byte{[]byte("fromaof")})
	assert.Equal(t, []byte("1"), reply.Bulk)
}

func TestFeedNoopWhenAOFDisabled(t *testing.T) {
	cfg := Config{SnapshotPath: filepath.Join(t.TempDir(), "dump.rdb")}
	reg := command.NewRegistry()
	manager := dbmanager.New(1, keyspace.NoEviction, 0, reg, testLogger(t))
	defer manager.Close()

	p, err := Open(cfg, manager, reg, testLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.NotPanics(t, func() { p.Feed(0, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}) })
}
