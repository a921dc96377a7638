// Package notify delivers notifications to connected users.  A Hub keeps
// the live subscriptions of this process; a Dispatcher persists each
// notification and pushes it either through the broker (so every instance
// sees it) or straight to the local hub.
package notify

import (
    "sync"

    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/model"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 32

// Hub fans notifications out to the subscriptions of their recipient.
type Hub struct {
    mu     sync.RWMutex
    subs   map[string]map[*Subscription]struct{}
    buffer int
    log    *zap.Logger
}

// Subscription receives the notifications addressed to one user.  C is
// closed once Close has been called or the hub shuts down.
type Subscription struct {
    C      <-chan model.Notification
    ch     chan model.Notification
    userID string
    hub    *Hub
    closed bool // guarded by hub.mu
}

// NewHub returns an empty hub.  buffer <= 0 selects DefaultBuffer.
func NewHub(buffer int, log *zap.Logger) *Hub {
    if buffer <= 0 {
        buffer = DefaultBuffer
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer, log: log}
}

// Subscribe registers a new subscription for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
    ch := make(chan model.Notification, h.buffer)
    s := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

    h.mu.Lock()
    set, ok := h.subs[userID]
    if !ok {
        set = make(map[*Subscription]struct{})
        h.subs[userID] = set
    }
    set[s] = struct{}{}
    h.mu.Unlock()
    return s
}

// Close unregisters the subscription.  Safe to call more than once.
func (s *Subscription) Close() {
    h := s.hub
    h.mu.Lock()
    defer h.mu.Unlock()
    if s.closed {
        return
    }
    s.closed = true
    close(s.ch)
    if set, ok := h.subs[s.userID]; ok {
        delete(set, s)
        if len(set) == 0 {
            delete(h.subs, s.userID)
        }
    }
}

// Publish hands n to every subscription of n.RecipientID and returns how
// many received it.  A subscription whose buffer is full misses the
// notification instead of blocking the publisher; the client recovers it
// from the persisted list.
func (h *Hub) Publish(n model.Notification) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    delivered := 0
    for s := range h.subs[n.RecipientID] {
        select {
        case s.ch <- n:
            delivered++
        default:
            h.log.Warn("subscriber too slow, notification dropped",
                zap.String("recipient_id", n.RecipientID),
                zap.String("notification_id", n.ID))
        }
    }
    return delivered
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.subs[userID])
}

// Shutdown closes every subscription.
func (h *Hub) Shutdown() {
    h.mu.Lock()
    defer h.mu.Unlock()
    for uid, set := range h.subs {
        for s := range set {
            if !s.closed {
                s.closed = true
                close(s.ch)
            }
        }
        delete(h.subs, uid)
    }
}
