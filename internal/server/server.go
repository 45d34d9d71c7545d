// Package server implements the TCP accept loop, per-connection dispatch,
// and the dig-based dependency graph that wires every other component
// together (spec §4.9, component C11). It generalizes the teacher's
// server/server.go (Serve/Stop/listenAndServe, a signal-channel-fed
// graceful shutdown around a single def.Handler) and handler/handler.go
// (per-connection accounting, persister reload on Start) onto this
// repo's richer per-database-executor, pub/sub, and dual-persistence
// stack.
package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/minidb/goredis/internal/config"
	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/persistence"
	"github.com/minidb/goredis/internal/pool"
	"github.com/minidb/goredis/internal/pubsub"
	"github.com/minidb/goredis/internal/session"
)

// Server owns the TCP listener and every live connection's bookkeeping,
// mirroring the teacher's Server{runOnce, stopOnce, stopc} shape.
type Server struct {
	cfg     *config.Config
	manager *dbmanager.Manager
	pubsub  *pubsub.Hub
	persist *persistence.Manager
	pool    *pool.Pool
	logger  log.Logger

	handler *connHandler

	runOnce  sync.Once
	stopOnce sync.Once
	stopc    chan struct{}

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	nextSessID int64
}

// New assembles a Server from its already-constructed collaborators.
// Construct (factory.go) is the usual entry point; this is exposed directly for
// tests that want to skip the dig graph.
func New(cfg *config.Config, manager *dbmanager.Manager, hub *pubsub.Hub, persist *persistence.Manager, p *pool.Pool, logger log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		manager: manager,
		pubsub:  hub,
		persist: persist,
		pool:    p,
		logger:  logger,
		stopc:   make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
		handler: &connHandler{
			manager:     manager,
			pubsub:      hub,
			aof:         persist,
			persist:     persist,
			logger:      logger,
			idleTimeout: cfg.IdleTimeout,
		},
	}
}

// Serve replays any existing snapshot/AOF, then listens on cfg.Server.Address
// until a shutdown signal or Stop call, matching the teacher's Serve's
// runOnce-guarded listen-then-loop shape.
func (s *Server) Serve() error {
	if err := s.persist.LoadOnStartup(); err != nil {
		return err
	}

	var serveErr error
	s.runOnce.Do(func() {
		exitSignals := []os.Signal{syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT}
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, exitSignals...)
		closec := make(chan struct{}, 1)

		s.pool.Submit(func() {
			select {
			case sig := <-sigc:
				s.logger.Warnf("[server] received signal %s, shutting down", sig.String())
				closec <- struct{}{}
			case <-s.stopc:
				closec <- struct{}{}
			}
		})

		listener, err := net.Listen("tcp", s.cfg.Server.Address)
		if err != nil {
			serveErr = err
			return
		}

		s.logger.Infof("[server] listening on %s", s.cfg.Server.Address)
		s.listenAndServe(listener, closec)
	})

	return serveErr
}

// Stop triggers a graceful shutdown, idempotently.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopc) })
}

func (s *Server) listenAndServe(listener net.Listener, closec <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	s.pool.Submit(func() {
		select {
		case <-closec:
			s.logger.Warnf("[server] closing...")
		case err := <-errc:
			s.logger.Errorf("[server] listener err: %s", err.Error())
		}
		cancel()
		s.closeAllConns()
		if err := listener.Close(); err != nil {
			s.logger.Errorf("[server] close listener err: %s", err.Error())
		}
	})

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			errc <- err
			break
		}

		if s.activeConnCount() >= s.cfg.MaxClients {
			_, _ = conn.Write([]byte("-ERR max number of clients reached\r\n"))
			_ = conn.Close()
			continue
		}

		s.trackConn(conn)
		wg.Add(1)
		c := conn
		s.pool.Submit(func() {
			defer wg.Done()
			defer s.untrackConn(c)
			sess := session.New(s.newSessionID())
			s.handler.handle(ctx, c, sess)
			_ = c.Close()
		})
	}

	wg.Wait()
	if err := shutdownComponents(s); err != nil {
		s.logger.Errorf("[server] shutdown err: %s", err.Error())
	}
}

func (s *Server) newSessionID() int64 {
	return atomic.AddInt64(&s.nextSessID, 1)
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) activeConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.Close(); err != nil {
			s.logger.Errorf("[server] close conn err: %s", err.Error())
		}
	}
}
