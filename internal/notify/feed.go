package notify

import (
    "sync"

    "github.com/uniride/uniride-api/internal/model"
)

// Feed is the per-connection view of a user's notifications.  Deliveries
// are keyed by notification id, so a duplicate push or a replay after a
// reconnect never counts twice.
type Feed struct {
    mu     sync.Mutex
    byID   map[string]int
    items  []model.Notification
    unread int
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
    return &Feed{byID: make(map[string]int)}
}

// Apply records n and reports whether it was new.
func (f *Feed) Apply(n model.Notification) bool {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, seen := f.byID[n.ID]; seen {
        return false
    }
    f.byID[n.ID] = len(f.items)
    f.items = append(f.items, n)
    if !n.Read {
        f.unread++
    }
    return true
}

// MarkRead flips the read flag of a known notification.  It reports false
// when the id is unknown or already read.
func (f *Feed) MarkRead(id string) bool {
    f.mu.Lock()
    defer f.mu.Unlock()
    i, ok := f.byID[id]
    if !ok || f.items[i].Read {
        return false
    }
    f.items[i].Read = true
    f.unread--
    return true
}

// Unread returns the number of unread notifications.
func (f *Feed) Unread() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.unread
}

// Items returns a copy of the feed, newest last.
func (f *Feed) Items() []model.Notification {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := make([]model.Notification, len(f.items))
    copy(out, f.items)
    return out
}
