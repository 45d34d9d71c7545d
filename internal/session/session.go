// Package session holds per-connection state: the selected database,
// transaction machinery, and pub/sub subscriptions (spec §4.4/§4.5/§4.6,
// component C5). It generalizes the teacher's handler.Handler, which
// tracked only a set of live net.Conn values with no per-connection
// state beyond the connection itself — MULTI, WATCH and SUBSCRIBE all
// need a home the teacher never had to provide.
package session

import (
	"sync"

	"github.com/minidb/goredis/internal/resp"
)

// TxnState is the per-connection transaction state machine (spec §4.6).
// The spec deliberately drops the Java source's separate EXECUTING state:
// QUEUING covers both "collecting commands" and their MULTI requirement.
type TxnState int

const (
	TxnNone TxnState = iota
	TxnQueuing
	TxnDiscarded
)

// QueuedCommand is one command captured between MULTI and EXEC/DISCARD.
type QueuedCommand struct {
	Name string
	Args [][]byte
}

// Session is one client connection's state. DBIndex selects the current
// keyspace; all fields below it are guarded by mu because pub/sub
// delivery and idle-timeout checks can touch a session from goroutines
// other than the one driving its own command loop.
type Session struct {
	ID int64

	mu      sync.Mutex
	dbIndex int

	txnState TxnState
	queue    []QueuedCommand
	watched  map[string]uint64 // key -> version recorded at WATCH time

	channels map[string]struct{}
	patterns map[string]struct{}

	out chan resp.Value // asynchronous deliveries: pub/sub messages
}

func New(id int64) *Session {
	return &Session{
		ID:       id,
		watched:  make(map[string]uint64),
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
		out:      make(chan resp.Value, 128),
	}
}

func (s *Session) DBIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbIndex
}

func (s *Session) SetDBIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbIndex = idx
}

// Deliver queues an asynchronously-pushed value (a pub/sub message) for
// this connection's writer loop. It never blocks the publisher: a full
// buffer drops the message, the same backpressure choice the AOF writer
// makes under EVERYSEC (spec §5's "visibility is monotone, not guaranteed
// delivery under pathological backpressure" allowance).
func (s *Session) Deliver(v resp.Value) bool {
	select {
	case s.out <- v:
		return true
	default:
		return false
	}
}

// Outbox exposes the channel the connection's writer loop drains for
// asynchronously delivered values (pub/sub messages).
func (s *Session) Outbox() <-chan resp.Value { return s.out }

// --- transaction state ---

func (s *Session) TxnState() TxnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txnState
}

func (s *Session) BeginMulti() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txnState != TxnNone {
		return false
	}
	s.txnState = TxnQueuing
	s.queue = nil
	return true
}

// Enqueue appends a command to the queue while QUEUING. It never fails;
// callers check TxnState() first.
func (s *Session) Enqueue(name string, args [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, QueuedCommand{Name: name, Args: args})
}

// DrainTxn resets the transaction state to NONE and returns the queued
// commands and watched-key snapshot, clearing both — used by EXEC and
// DISCARD alike, since both always clear watches (spec §4.6).
func (s *Session) DrainTxn() ([]QueuedCommand, map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queue
	watched := s.watched
	s.queue = nil
	s.watched = make(map[string]uint64)
	s.txnState = TxnNone
	return queue, watched
}

func (s *Session) Watch(key string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[key] = version
}

// WatchedKeys returns the keys currently under WATCH, for re-arming their
// recorded versions at MULTI time (spec §4.6's own-write discretion case:
// a write issued by this same connection before MULTI must not abort the
// transaction it precedes, so MULTI re-snapshots rather than EXEC trusting
// the version recorded back at WATCH time).
func (s *Session) WatchedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.watched))
	for k := range s.watched {
		keys = append(keys, k)
	}
	return keys
}

func (s *Session) Unwatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = make(map[string]uint64)
}

// --- pub/sub bookkeeping ---

func (s *Session) Subscribe(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = struct{}{}
}

func (s *Session) Unsubscribe(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channel)
}

func (s *Session) PSubscribe(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[pattern] = struct{}{}
}

func (s *Session) PUnsubscribe(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patterns, pattern)
}

// Channels and Patterns return snapshots used when tearing a connection
// down or answering UNSUBSCRIBE/PUNSUBSCRIBE with no arguments.
func (s *Session) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	return out
}

func (s *Session) Patterns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.patterns))
	for p := range s.patterns {
		out = append(out, p)
	}
	return out
}

// SubscriptionCount is the total remaining subscriptions across channels
// and patterns, used in SUBSCRIBE/UNSUBSCRIBE reply shapes (spec §4.5).
func (s *Session) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels) + len(s.patterns)
}

// InPubSubMode reports whether the connection currently holds any
// subscription, which restricts its allowed command surface (spec §4.4
// step 5).
func (s *Session) InPubSubMode() bool {
	return s.SubscriptionCount() > 0
}
