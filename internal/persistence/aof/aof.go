// Package aof implements the append-only command log (spec §4.8,
// component C10): fsync policy, bounded buffered writes with
// drop-on-overflow backpressure, size/percentage-triggered background
// rewrite, and startup replay. It generalizes the teacher's
// persist package (which opens an append file and calls an unimplemented
// rewriteAOF — see SPEC_FULL.md's Supplemented Features) into a
// policy-driven writer plus a genuine rewrite producer built on every
// container's ToCmd adapter.
package aof

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/resp"
)

// FsyncPolicy selects when the AOF is forced to durable storage, per the
// spec §4.8 table.
type FsyncPolicy int

const (
	FsyncAlways FsyncPolicy = iota
	FsyncEverySec
	FsyncNo
)

func ParseFsyncPolicy(s string) FsyncPolicy {
	switch s {
	case "always":
		return FsyncAlways
	case "no":
		return FsyncNo
	default:
		return FsyncEverySec
	}
}

// queueCapacity is the bounded queue's depth under EVERYSEC/NO, "capacity
// >= several thousand entries" per spec §4.8.
const queueCapacity = 4096

type entry struct {
	data []byte
}

// Writer appends every successful write command to the log in its
// original RESP array encoding, tracking the currently-selected database
// with an injected SELECT line whenever it changes, so replay routes each
// command to the right keyspace without needing a side-channel.
type Writer struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	policy   FsyncPolicy
	lastDB   int
	size     int64
	baseSize int64

	rewriteMinSize int64
	rewritePercent int

	queue  chan entry
	closed chan struct{}
	wg     sync.WaitGroup

	logger log.Logger
}

// Open opens (creating if absent) the AOF file at path and starts its
// background writer goroutine when the policy needs one.
func Open(path string, policy FsyncPolicy, rewriteMinSize int64, rewritePercent int, logger log.Logger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &Writer{
		f:              f,
		path:           path,
		policy:         policy,
		lastDB:         -1,
		size:           info.Size(),
		baseSize:       info.Size(),
		rewriteMinSize: rewriteMinSize,
		rewritePercent: rewritePercent,
		queue:          make(chan entry, queueCapacity),
		closed:         make(chan struct{}),
		logger:         logger,
	}

	if policy != FsyncAlways {
		w.wg.Add(1)
		go w.runBackground()
	}

	return w, nil
}

// Feed appends one command line, routed to dbIndex, emitting a SELECT
// line first if the last-written command targeted a different database.
func (w *Writer) Feed(dbIndex int, args [][]byte) {
	w.mu.Lock()
	var buf []byte
	if dbIndex != w.lastDB {
		buf = append(buf, resp.Encode(resp.BulkArray([][]byte{[]byte("SELECT"), []byte(itoa(dbIndex))}))...)
		w.lastDB = dbIndex
	}
	buf = append(buf, resp.Encode(resp.BulkArray(args))...)
	w.mu.Unlock()

	if w.policy == FsyncAlways {
		w.writeSync(buf)
		return
	}

	select {
	case w.queue <- entry{data: buf}:
	default:
		w.logger.Warnf("[aof] queue full, dropping entry")
	}
}

func (w *Writer) writeSync(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.f.Write(data)
	if err != nil {
		w.logger.Errorf("[aof] write err: %s", err.Error())
		return
	}
	w.size += int64(n)
	if err := w.f.Sync(); err != nil {
		w.logger.Errorf("[aof] fsync err: %s", err.Error())
	}
}

func (w *Writer) runBackground() {
	defer w.wg.Done()

	var fsyncTicker *time.Ticker
	var fsyncC <-chan time.Time
	if w.policy == FsyncEverySec {
		fsyncTicker = time.NewTicker(time.Second)
		fsyncC = fsyncTicker.C
		defer fsyncTicker.Stop()
	}

	for {
		select {
		case e := <-w.queue:
			w.mu.Lock()
			n, err := w.f.Write(e.data)
			w.size += int64(n)
			w.mu.Unlock()
			if err != nil {
				w.logger.Errorf("[aof] write err: %s", err.Error())
			}

		case <-fsyncC:
			w.mu.Lock()
			_ = w.f.Sync()
			w.mu.Unlock()

		case <-w.closed:
			w.mu.Lock()
			_ = w.f.Sync()
			w.mu.Unlock()
			return
		}
	}
}

// ShouldRewrite reports whether the log has grown enough to warrant a
// background rewrite, per spec §4.8's size-and-percentage trigger.
func (w *Writer) ShouldRewrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size < w.rewriteMinSize {
		return false
	}
	threshold := w.baseSize + w.baseSize*int64(w.rewritePercent)/100
	return w.size >= threshold
}

// Close stops the background writer (if any) and closes the file.
func (w *Writer) Close() error {
	if w.policy != FsyncAlways {
		close(w.closed)
		w.wg.Wait()
	}
	return w.f.Close()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
