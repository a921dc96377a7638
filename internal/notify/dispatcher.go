package notify

import (
    "context"
    "fmt"

    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/store"
)

// Publisher pushes a persisted notification to every running instance.
type Publisher interface {
    PublishNotification(ctx context.Context, n model.Notification) error
}

// Dispatcher persists notifications and pushes them.  Without a
// publisher the push goes straight to the local hub.
type Dispatcher struct {
    store store.NotificationStore
    hub   *Hub
    pub   Publisher
    log   *zap.Logger
}

// NewDispatcher wires a Dispatcher.  pub may be nil.
func NewDispatcher(st store.NotificationStore, hub *Hub, pub Publisher, log *zap.Logger) *Dispatcher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Dispatcher{store: st, hub: hub, pub: pub, log: log}
}

// Notify stores n (filling its id and timestamp) and pushes it.  If the
// broker refuses the message, local subscribers still get it and the
// broker error is returned so the caller can report the degraded push.
func (d *Dispatcher) Notify(ctx context.Context, n *model.Notification) error {
    if err := d.store.CreateNotification(ctx, n); err != nil {
        return apperr.Store("create notification", err)
    }
    if d.pub == nil {
        d.hub.Publish(*n)
        return nil
    }
    if err := d.pub.PublishNotification(ctx, *n); err != nil {
        d.log.Warn("broker publish failed, delivering locally",
            zap.String("notification_id", n.ID), zap.Error(err))
        d.hub.Publish(*n)
        return fmt.Errorf("publish notification: %w", err)
    }
    return nil
}

// Relay receives notifications coming back from the broker and hands
// each one to the local hub at most once.
type Relay struct {
    hub   *Hub
    dedup Deduper
    log   *zap.Logger
}

// NewRelay returns a Relay.  A nil deduper relays everything.
func NewRelay(hub *Hub, dedup Deduper, log *zap.Logger) *Relay {
    if log == nil {
        log = zap.NewNop()
    }
    return &Relay{hub: hub, dedup: dedup, log: log}
}

// Deliver publishes n locally unless it was relayed before.  When the
// dedupe store is unreachable the notification is delivered anyway; the
// client feed drops repeats by id.
func (r *Relay) Deliver(ctx context.Context, n model.Notification) error {
    if n.ID == "" || n.RecipientID == "" {
        return apperr.Invalid("notification", "id and recipient are required")
    }
    if r.dedup != nil {
        first, err := r.dedup.First(ctx, n.ID)
        if err != nil {
            r.log.Warn("dedupe check failed", zap.String("notification_id", n.ID), zap.Error(err))
        } else if !first {
            r.log.Debug("duplicate notification skipped", zap.String("notification_id", n.ID))
            return nil
        }
    }
    r.hub.Publish(n)
    return nil
}
