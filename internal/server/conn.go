package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/dbmanager"
	"github.com/minidb/goredis/internal/log"
	"github.com/minidb/goredis/internal/resp"
	"github.com/minidb/goredis/internal/session"
)

// connHandler drives one client connection end to end: decode a frame,
// dispatch it, write the reply (a single frame, or — for SUBSCRIBE and
// kin — several in sequence), and drain whatever the session's
// asynchronous outbox accumulated along the way (pub/sub deliveries).
// It generalizes the teacher's handler.Handler.handle (one parser-fed
// channel, one blocking h.db.Do per droplet) to this repo's richer
// per-connection state (MULTI queue, subscriptions) and its async-reply
// sentinel, resp.NoReply.
type connHandler struct {
	manager     *dbmanager.Manager
	pubsub      def.PubSubHub
	aof         def.Recorder
	persist     def.Persistence
	logger      log.Logger
	idleTimeout time.Duration
}

func (h *connHandler) handle(ctx context.Context, conn net.Conn, sess *session.Session) {
	defer h.pubsub.Cleanup(sess)

	writeErrc := make(chan struct{}, 1)
	go h.drainOutbox(conn, sess, writeErrc)
	defer close(writeErrc)

	r := resp.NewReader(conn)
	for {
		if h.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		}

		v, err := r.ReadValue()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debugf("[server] conn %s closed: %s", conn.RemoteAddr(), err.Error())
			}
			return
		}

		args, err := v.CommandArgs()
		if err != nil {
			_, _ = conn.Write(resp.Encode(resp.Err("ERR Protocol error")))
			return
		}

		name := string(args[0])
		reply := h.manager.Dispatch(ctx, sess, h.pubsub, h.aof, h.persist, name, args[1:])

		if strings.EqualFold(name, "QUIT") {
			_, _ = conn.Write(resp.Encode(reply))
			return
		}
		if reply.IsNoReply() {
			continue
		}
		if reply.IsMulti() {
			// SUBSCRIBE-family confirmations: N independent frames, written
			// here (not via the outbox) so they stay in command-issue order
			// relative to whatever this connection sends next.
			wrote := true
			for _, frame := range reply.Items {
				if _, err := conn.Write(resp.Encode(frame)); err != nil {
					wrote = false
					break
				}
			}
			if !wrote {
				h.logger.Debugf("[server] conn %s write err", conn.RemoteAddr())
				return
			}
			continue
		}
		if _, err := conn.Write(resp.Encode(reply)); err != nil {
			h.logger.Debugf("[server] conn %s write err: %s", conn.RemoteAddr(), err.Error())
			return
		}
	}
}

// drainOutbox writes every asynchronously delivered value to the connection
// as soon as it arrives. Only genuine out-of-band deliveries (PUBLISH fan-out
// to a subscriber) go through the outbox; a command's own reply — including
// SUBSCRIBE/UNSUBSCRIBE's confirmation frames — is written synchronously by
// handle() above so it can never be overtaken by a later command's reply.
func (h *connHandler) drainOutbox(conn net.Conn, sess *session.Session, done <-chan struct{}) {
	for {
		select {
		case v := <-sess.Outbox():
			if _, err := conn.Write(resp.Encode(v)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
