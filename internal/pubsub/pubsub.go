// Package pubsub implements the channel/pattern publish-subscribe engine
// (spec §4.5, component C8). It replaces the source's singleton
// PubSubManager (spec §9's note on global-singleton managers) with an
// explicit Hub value created once at server startup and handed to every
// command handler through def.PubSubHub.
package pubsub

import (
	"sync"

	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
	"github.com/minidb/goredis/internal/util"
)

// Hub holds channel->subscribers and pattern->subscribers maps plus their
// reverse per-connection indexes. Pub/sub state is read and written from
// every connection's goroutine concurrently (spec §5: "a concurrent-safe
// map suffices because each mutation is independent and visibility is
// monotone"), so unlike Keyspace this type does carry its own mutex.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[int64]*session.Session
	patterns map[string]map[int64]*session.Session
}

func New() *Hub {
	return &Hub{
		channels: make(map[string]map[int64]*session.Session),
		patterns: make(map[string]map[int64]*session.Session),
	}
}

func (h *Hub) Subscribe(sess *session.Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[int64]*session.Session)
		h.channels[channel] = subs
	}
	subs[sess.ID] = sess
	sess.Subscribe(channel)
}

func (h *Hub) Unsubscribe(sess *session.Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[channel]; ok {
		delete(subs, sess.ID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	sess.Unsubscribe(channel)
}

func (h *Hub) PSubscribe(sess *session.Session, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.patterns[pattern]
	if !ok {
		subs = make(map[int64]*session.Session)
		h.patterns[pattern] = subs
	}
	subs[sess.ID] = sess
	sess.PSubscribe(pattern)
}

func (h *Hub) PUnsubscribe(sess *session.Session, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.patterns[pattern]; ok {
		delete(subs, sess.ID)
		if len(subs) == 0 {
			delete(h.patterns, pattern)
		}
	}
	sess.PUnsubscribe(pattern)
}

// Cleanup removes every subscription a connection holds, called
// unconditionally on connection close (spec §4.5's cleanup contract).
func (h *Hub) Cleanup(sess *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range sess.Channels() {
		if subs, ok := h.channels[ch]; ok {
			delete(subs, sess.ID)
			if len(subs) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	for _, p := range sess.Patterns() {
		if subs, ok := h.patterns[p]; ok {
			delete(subs, sess.ID)
			if len(subs) == 0 {
				delete(h.patterns, p)
			}
		}
	}
}

// Publish delivers payload to every direct subscriber of channel and
// every subscriber whose pattern glob-matches channel, returning the
// total delivery count — a subscriber matched by two patterns counts
// twice, per spec §4.5.
func (h *Hub) Publish(channel string, payload []byte) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var delivered int64

	for _, sess := range h.channels[channel] {
		msg := resp.ArrayOf(resp.BulkString("message"), resp.BulkString(channel), resp.Bulk(payload))
		if sess.Deliver(msg) {
			delivered++
		}
	}

	for pattern, subs := range h.patterns {
		if !util.Match(pattern, channel) {
			continue
		}
		for _, sess := range subs {
			msg := resp.ArrayOf(
				resp.BulkString("pmessage"),
				resp.BulkString(pattern),
				resp.BulkString(channel),
				resp.Bulk(payload),
			)
			if sess.Deliver(msg) {
				delivered++
			}
		}
	}

	return delivered
}
