package realtime

import (
	"context"
	"log/slog"
)

// Bus decouples "publish to group G" from the set of live connections
// subscribed to G. The local backend fans out through a Registry in
// the same process; a distributed backend (external broker) can be
// swapped in behind the same interface. Delivery is best effort: no
// buffering for empty groups, nothing survives a restart, and a failed
// publish is logged and dropped without reaching the caller.
type Bus interface {
	Send(ctx context.Context, group string, ev Event)
}

type LocalBus struct {
	registry *Registry
}

func NewLocalBus(registry *Registry) *LocalBus {
	return &LocalBus{registry: registry}
}

func (b *LocalBus) Send(ctx context.Context, group string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bus publish panic", "group", group, "type", ev.Type, "panic", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		slog.Debug("bus publish skipped", "group", group, "type", ev.Type, "err", err)
		return
	}
	b.registry.Publish(group, ev)
}
