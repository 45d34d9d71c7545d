// Package pool wraps an ants worker pool used by the server for
// per-connection handling and its signal and listener-close watchers.
package pool

import (
	"runtime/debug"
	"strings"

	"github.com/panjf2000/ants"

	"github.com/minidb/goredis/internal/log"
)

// Pool submits work to a bounded set of goroutines.
type Pool struct {
	inner *ants.Pool
}

// New builds a Pool with the given worker capacity. A panic inside a
// submitted task is recovered and logged rather than crashing the process.
func New(size int, logger log.Logger) (*Pool, error) {
	if size <= 0 {
		size = 5000
	}

	inner, err := ants.NewPool(size, ants.WithPanicHandler(func(i interface{}) {
		stack := strings.ReplaceAll(string(debug.Stack()), "\n", " ")
		logger.Errorf("recovered panic: %v, stack: %s", i, stack)
	}))
	if err != nil {
		return nil, err
	}

	return &Pool{inner: inner}, nil
}

// Submit schedules task to run on a pool worker.
func (p *Pool) Submit(task func()) {
	_ = p.inner.Submit(task)
}

// Release stops accepting new work and waits for running workers to settle.
func (p *Pool) Release() {
	p.inner.Release()
}
