// Package persistence wires the point-in-time snapshot (C9,
// persistence/snapshot) and the append-only log (C10, persistence/aof)
// together into the single def.Persistence + def.Recorder collaborator
// the server hands every command handler, plus the startup recovery
// sequence spec §4.7/§4.8 describe: load the most recent snapshot, then
// replay the whole AOF on top of it (SAVE does not truncate the log).
package persistence

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/minidb/goredis/internal/command"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/persistence/aof"
	"github.com/minidb/goredis/internal/persistence/snapshot"
	"github.com/minidb/goredis/internal/session"
)

// Config controls where the two files live and how aggressively the AOF
// is flushed and rewritten (spec §4.7/§4.8).
type Config struct {
	SnapshotPath string
	AOFEnabled   bool
	AOFPath      string
	AOFFsync     aof.FsyncPolicy

	AOFRewriteMinBytes int64
	AOFRewritePercent  int
}

// Manager is the concrete type plugged into every ExecContext as both
// def.Persistence and def.Recorder. Its MaybeRewriteAOF checks the
// writer's ShouldRewrite threshold.
type Manager struct {
	cfg Config
	src def.Switcher
	reg *command.Registry
	log log.Logger

	rewriteMu sync.Mutex
	writer    *aof.Writer // nil when AOF disabled
}

// Open wires a Manager against src (normally the server's
// *dbmanager.Manager, which already satisfies def.Switcher and therefore
// the narrower Source interfaces snapshot/aof need). If cfg.AOFEnabled,
// it opens (creating if absent) the log file and starts its background
// writer goroutine.
func Open(cfg Config, src def.Switcher, reg *command.Registry, logger log.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, src: src, reg: reg, log: logger}
	if cfg.AOFEnabled {
		w, err := aof.Open(cfg.AOFPath, cfg.AOFFsync, cfg.AOFRewriteMinBytes, cfg.AOFRewritePercent, logger)
		if err != nil {
			return nil, fmt.Errorf("persistence: open aof: %w", err)
		}
		m.writer = w
	}
	return m, nil
}

// Feed implements def.Recorder, appending a mutating command to the AOF
// if one is configured.
func (m *Manager) Feed(dbIndex int, args [][]byte) {
	if m.writer == nil {
		return
	}
	m.writer.Feed(dbIndex, args)
}

// Save writes a fresh snapshot synchronously, implementing def.Persistence.
func (m *Manager) Save() error {
	m.log.Infof("[persistence] saving snapshot to %s", m.cfg.SnapshotPath)
	return snapshot.Save(m.cfg.SnapshotPath, m.src)
}

// BackgroundSave runs Save on its own goroutine (BGSAVE never blocks the
// calling connection, spec §4.7).
func (m *Manager) BackgroundSave() {
	go func() {
		if err := m.Save(); err != nil {
			m.log.Errorf("[persistence] background save failed: %s", err.Error())
		}
	}()
}

// BackgroundRewriteAOF runs an AOF rewrite on its own goroutine
// (BGREWRITEAOF, spec §4.8). A no-op when AOF is disabled.
func (m *Manager) BackgroundRewriteAOF() {
	if m.writer == nil {
		return
	}
	go func() {
		m.rewriteMu.Lock()
		defer m.rewriteMu.Unlock()
		m.log.Infof("[persistence] rewriting aof %s", m.cfg.AOFPath)
		if err := aof.Rewrite(m.writer, m.src); err != nil {
			m.log.Errorf("[persistence] aof rewrite failed: %s", err.Error())
		}
	}()
}

// MaybeRewriteAOF triggers a background rewrite if the log has grown past
// its configured size/percentage threshold. Nothing in the server calls it
// on a schedule: a rewrite runs only on BGREWRITEAOF or when a caller
// invokes this method.
func (m *Manager) MaybeRewriteAOF() {
	if m.writer != nil && m.writer.ShouldRewrite() {
		m.BackgroundRewriteAOF()
	}
}

// Close releases the AOF file handle, if any.
func (m *Manager) Close() error {
	if m.writer == nil {
		return nil
	}
	return m.writer.Close()
}

// LoadOnStartup restores state before the server starts accepting
// connections (spec §4.7/§4.8's recovery contract): a snapshot load
// followed by a replay of the whole AOF from its start. Replay runs the
// registry directly against each keyspace with AOF/pub-sub collaborators
// nil'd out, since recovered commands must not be re-persisted or
// re-published. maxMemory enforcement is lifted for the duration: this is
// replaying state the keyspace already held before restart, not admitting
// new writes, so today's bound must not reject it with an OOM error.
func (m *Manager) LoadOnStartup() error {
	limits := make([]int64, m.src.DBCount())
	for i := range limits {
		limits[i] = m.src.KeyspaceAt(i).SetMaxMemory(0)
	}
	defer func() {
		for i, limit := range limits {
			m.src.KeyspaceAt(i).SetMaxMemory(limit)
		}
	}()

	install := func(dbIndex int, key string, v *keyspace.Value) {
		_ = m.src.KeyspaceAt(dbIndex).Set(key, v)
	}
	if err := snapshot.Load(m.cfg.SnapshotPath, install); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persistence: load snapshot: %w", err)
	}

	if !m.cfg.AOFEnabled {
		return nil
	}

	sess := session.New(-1)
	apply := func(dbIndex int, args [][]byte) error {
		if len(args) == 0 {
			return nil
		}
		sess.SetDBIndex(dbIndex)
		ec := &def.ExecContext{
			Ctx:     context.Background(),
			DB:      m.src.KeyspaceAt(dbIndex),
			Session: sess,
			Switch:  m.src,
			Args:    args[1:],
		}
		reply := m.reg.Execute(ec, string(args[0]), args[1:])
		if reply.IsError() {
			m.log.Warnf("[persistence] aof replay command failed: %s", reply.Str)
		}
		return nil
	}
	if err := aof.Replay(m.cfg.AOFPath, apply); err != nil {
		return fmt.Errorf("persistence: replay aof: %w", err)
	}
	return nil
}
