package server

import (
	"go.uber.org/dig"
	"go.uber.org/multierr"

	"github.com/minidb/goredis/internal/command"
	"github.com/minidb/goredis/internal/config"
	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/persistence"
	"github.com/minidb/goredis/internal/persistence/aof"
	"github.com/minidb/goredis/internal/pool"
	"github.com/minidb/goredis/internal/pubsub"
)

// container is the dig graph the whole process is constructed from,
// following the teacher's server/factory.go dig.New() + Provide/Invoke
// shape, generalized from its five teacher constructors to the full
// component list SPEC_FULL.md's module layout names.
var container = dig.New()

func init() {
	_ = container.Provide(log.New)
	_ = container.Provide(func(cfg *config.Config, logger log.Logger) (*pool.Pool, error) {
		return pool.New(cfg.Pool.Size, logger)
	})
	_ = container.Provide(command.NewRegistry)
	_ = container.Provide(func(cfg *config.Config, reg *command.Registry, logger log.Logger) *dbmanager.Manager {
		policy := keyspace.ParseEvictionPolicy(cfg.Eviction)
		return dbmanager.New(cfg.Databases, policy, cfg.MaxMemory, reg, logger)
	})
	_ = container.Provide(pubsub.New)
	_ = container.Provide(newPersistence)
	_ = container.Provide(New)
}

func newLoggerConfig(cfg *config.Config) log.Config { return cfg.Log }

func newPersistence(cfg *config.Config, manager *dbmanager.Manager, reg *command.Registry, logger log.Logger) (*persistence.Manager, error) {
	pcfg := persistence.Config{
		SnapshotPath:       cfg.Snapshot.Filename,
		AOFEnabled:         cfg.AOF.Enabled,
		AOFPath:            cfg.AOF.Filename,
		AOFFsync:           aof.ParseFsyncPolicy(cfg.AOF.AppendFsync),
		AOFRewriteMinBytes: cfg.AOF.RewriteMinSize,
		AOFRewritePercent:  cfg.AOF.RewritePercent,
	}
	return persistence.Open(pcfg, manager, reg, logger)
}

// Construct builds the full dependency graph rooted at *Server from cfg,
// generalizing the teacher's ConstructServer (which only ever resolved a
// def.Handler) to resolve the whole tree in one dig.Invoke.
func Construct(cfg *config.Config) (*Server, error) {
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(newLoggerConfig); err != nil {
		return nil, err
	}

	var s *Server
	if err := container.Invoke(func(_s *Server) { s = _s }); err != nil {
		return nil, err
	}
	return s, nil
}

// Shutdown triggers s's graceful shutdown. The actual component teardown
// (persistence, database manager, goroutine pool) runs on Serve's own
// listenAndServe goroutine once every connection has drained, via
// shutdownComponents below — Shutdown only requests it.
func Shutdown(s *Server) { s.Stop() }

// shutdownComponents releases the persistence layer, the database
// manager, and the goroutine pool, joining whatever errors each reports
// instead of discarding all but the last — the multierr.Append pattern in
// place of the common dig-service shortcut of only surfacing one error.
func shutdownComponents(s *Server) error {
	var err error
	err = multierr.Append(err, s.persist.Close())
	s.manager.Close()
	s.pool.Release()
	return err
}
