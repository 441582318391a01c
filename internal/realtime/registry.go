package realtime

import (
	"fmt"
	"sync"
)

// Conn is a live connection capable of receiving events. Send must be
// safe for concurrent use.
type Conn interface {
	Send(ev Event) error
}

// Group keys. One group per chatroom, one per user's notification
// stream.
func ChatGroup(chatroomID string) string { return "chat:" + chatroomID }
func UserGroup(userID int64) string      { return fmt.Sprintf("notif:%d", userID) }

// Registry tracks which live connections belong to which group. A
// connection may sit in several groups at once; Drop removes it from
// all of them so the caller never needs per-group Leave bookkeeping on
// disconnect.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]map[Conn]struct{})}
}

func (r *Registry) Join(group string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gs, ok := r.groups[group]
	if !ok {
		gs = make(map[Conn]struct{})
		r.groups[group] = gs
	}
	gs[c] = struct{}{}
}

func (r *Registry) Leave(group string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(group, c)
}

// Drop removes the connection from every group it joined.
func (r *Registry) Drop(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for group := range r.groups {
		r.leaveLocked(group, c)
	}
}

func (r *Registry) leaveLocked(group string, c Conn) {
	if gs, ok := r.groups[group]; ok {
		delete(gs, c)
		if len(gs) == 0 {
			delete(r.groups, group)
		}
	}
}

// Publish delivers ev to every connection currently in the group.
// Delivery is best-effort and synchronous, so events published from
// one goroutine reach each subscriber in publish order.
func (r *Registry) Publish(group string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if gs, ok := r.groups[group]; ok {
		for c := range gs {
			_ = c.Send(ev) // best-effort
		}
	}
}

// Size reports how many connections are currently in the group.
func (r *Registry) Size(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.groups[group])
}
