package command

import (
	"github.com/minidb/goredis/internal/def"
	"github.com/minidb/goredis/internal/resp"
)

func registerPubSubCommands(r *Registry) {
	r.Register(Spec{Name: "SUBSCRIBE", MinArgs: 1, MaxArgs: -1, PubSubControl: true, Handler: cmdSubscribe})
	r.Register(Spec{Name: "UNSUBSCRIBE", MinArgs: 0, MaxArgs: -1, PubSubControl: true, Handler: cmdUnsubscribe})
	r.Register(Spec{Name: "PSUBSCRIBE", MinArgs: 1, MaxArgs: -1, PubSubControl: true, Handler: cmdPSubscribe})
	r.Register(Spec{Name: "PUNSUBSCRIBE", MinArgs: 0, MaxArgs: -1, PubSubControl: true, Handler: cmdPUnsubscribe})
	r.Register(Spec{Name: "PUBLISH", MinArgs: 2, MaxArgs: 2, PubSubControl: true, Handler: cmdPublish})
}

// subscribeReply builds the [kind, name, remaining] confirmation frame
// spec §4.5 requires, one per (un)subscribed channel/pattern.
func subscribeReply(kind, name string, remaining int) resp.Value {
	return resp.ArrayOf(resp.BulkString(kind), resp.BulkString(name), resp.Int(int64(remaining)))
}

func cmdSubscribe(ec *def.ExecContext) resp.Value {
	frames := make([]resp.Value, 0, len(ec.Args))
	for _, a := range ec.Args {
		ch := string(a)
		ec.PubSub.Subscribe(ec.Session, ch)
		frames = append(frames, subscribeReply("subscribe", ch, ec.Session.SubscriptionCount()))
	}
	return resp.Multi(frames...)
}

func cmdUnsubscribe(ec *def.ExecContext) resp.Value {
	channels := ec.Args
	if len(channels) == 0 {
		for _, ch := range ec.Session.Channels() {
			channels = append(channels, []byte(ch))
		}
	}
	if len(channels) == 0 {
		return resp.Multi(subscribeReply("unsubscribe", "", ec.Session.SubscriptionCount()))
	}
	frames := make([]resp.Value, 0, len(channels))
	for _, a := range channels {
		ch := string(a)
		ec.PubSub.Unsubscribe(ec.Session, ch)
		frames = append(frames, subscribeReply("unsubscribe", ch, ec.Session.SubscriptionCount()))
	}
	return resp.Multi(frames...)
}

func cmdPSubscribe(ec *def.ExecContext) resp.Value {
	frames := make([]resp.Value, 0, len(ec.Args))
	for _, a := range ec.Args {
		p := string(a)
		ec.PubSub.PSubscribe(ec.Session, p)
		frames = append(frames, subscribeReply("psubscribe", p, ec.Session.SubscriptionCount()))
	}
	return resp.Multi(frames...)
}

func cmdPUnsubscribe(ec *def.ExecContext) resp.Value {
	patterns := ec.Args
	if len(patterns) == 0 {
		for _, p := range ec.Session.Patterns() {
			patterns = append(patterns, []byte(p))
		}
	}
	if len(patterns) == 0 {
		return resp.Multi(subscribeReply("punsubscribe", "", ec.Session.SubscriptionCount()))
	}
	frames := make([]resp.Value, 0, len(patterns))
	for _, a := range patterns {
		p := string(a)
		ec.PubSub.PUnsubscribe(ec.Session, p)
		frames = append(frames, subscribeReply("punsubscribe", p, ec.Session.SubscriptionCount()))
	}
	return resp.Multi(frames...)
}

func cmdPublish(ec *def.ExecContext) resp.Value {
	count := ec.PubSub.Publish(string(ec.Args[0]), ec.Args[1])
	return resp.Int(count)
}
