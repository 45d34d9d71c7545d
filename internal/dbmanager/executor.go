// Package dbmanager implements the fixed-size array of keyspaces and the
// SELECT-routed dispatch in front of them (spec §4.3/§4.4, components
// C3-trigger and C4). It generalizes the teacher's database/executor.go
// DBExecutor (one goroutine, one flat KVStore, a dozen hardcoded
// cmdHandlers entries) and database/trigger.go DBTrigger.Do (send a
// *Command into the executor's channel, block on its Receiver) into N
// independent executors — one per logical database — fronted by a single
// dispatch entry point that routes on the caller's selected DB index.
package dbmanager

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/minidb/goredis/internal/command"
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/resp"
)

// job is the channel payload an executor consumes — the same shape as
// the teacher's database/struct.go Command, generalized with a name
// field since the registry (not a fixed map literal) now resolves it.
type job struct {
	ec     *def.ExecContext
	name   string
	result chan resp.Value
}

// task is a cross-cutting closure run against the executor's own keyspace
// on its own goroutine, instead of a named command — how FlushAll and the
// persistence layer's snapshot/AOF-rewrite producers reach a keyspace
// without violating the single-writer invariant keyspace.Keyspace documents.
type task struct {
	fn   func(*keyspace.Keyspace)
	done chan struct{}
}

// sweepInterval matches the teacher's DBExecutor gcTicker cadence.
const sweepInterval = time.Minute

// executor is one logical per-database goroutine: every command against
// its keyspace, and its periodic expiration sweep, runs on this single
// goroutine — the concrete embodiment of spec §5's single-writer-per-
// database discipline.
type executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan *job
	taskCh chan *task

	ks       *keyspace.Keyspace
	registry *command.Registry
	logger   log.Logger
}

func newExecutor(ks *keyspace.Keyspace, registry *command.Registry, logger log.Logger) *executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &executor{
		ctx:      ctx,
		cancel:   cancel,
		ch:       make(chan *job),
		taskCh:   make(chan *task),
		ks:       ks,
		registry: registry,
		logger:   logger,
	}
	go e.run()
	return e
}

func (e *executor) submit(j *job) {
	select {
	case e.ch <- j:
	case <-e.ctx.Done():
		j.result <- resp.Err("ERR server is shutting down")
	}
}

// runTask runs fn against e's keyspace on e's own goroutine and blocks
// until it completes. Safe to call concurrently with ordinary command
// dispatch and from any caller goroutine — fn itself never runs
// concurrently with a command handler.
func (e *executor) runTask(fn func(*keyspace.Keyspace)) {
	t := &task{fn: fn, done: make(chan struct{})}
	select {
	case e.taskCh <- t:
		<-t.done
	case <-e.ctx.Done():
	}
}

func (e *executor) close() { e.cancel() }

func (e *executor) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return

		case <-ticker.C:
			e.ks.SweepUntilClean(4)

		case t := <-e.taskCh:
			t.fn(e.ks)
			close(t.done)

		case j := <-e.ch:
			j.ec.DB = e.ks
			j.result <- e.dispatchRecovered(j)
		}
	}
}

// dispatchRecovered runs the handler and converts a panic into a generic
// internal-error reply instead of letting it escape this goroutine and
// crash the whole process — every database, every connection — over one
// bad command, matching internal/pool's ants.WithPanicHandler recovery.
func (e *executor) dispatchRecovered(j *job) (reply resp.Value) {
	defer func() {
		if r := recover(); r != nil {
			stack := strings.ReplaceAll(string(debug.Stack()), "\n", " ")
			e.logger.Errorf("recovered panic dispatching %s: %v, stack: %s", j.name, r, stack)
			reply = resp.Err("ERR internal error")
		}
	}()
	return e.registry.Dispatch(j.ec, j.name, j.ec.Args)
}
