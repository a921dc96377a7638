// Package queue contains the background consumer that listens to the
// notification.created exchange and relays each event to the local
// WebSocket hub.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/model"
)

// Sink receives decoded notifications.
type Sink interface {
    Deliver(ctx context.Context, n model.Notification) error
}

// StartNotificationConsumer connects to RabbitMQ, binds a private queue to
// the notification.created fanout exchange and relays every message to
// sink.  It runs a reconnect loop with exponential backoff and returns
// only when ctx is cancelled.  A message that cannot be decoded or
// delivered is rejected without requeue so one bad payload never stalls
// the consumer.
func StartNotificationConsumer(ctx context.Context, url string, sink Sink, log *zap.Logger) error {
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("notification-consumer")

    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, sink, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink Sink, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", zap.Error(err))
    }

    if err := ch.ExchangeDeclare(NotificationExchange, "fanout", true, false, false, false, nil); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }

    // Server-named, exclusive and auto-deleted: one queue per running
    // instance, gone when the instance disconnects.
    q, err := ch.QueueDeclare("", false, true, true, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(q.Name, "", NotificationExchange, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }

    msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Info("consuming", zap.String("queue", q.Name))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleMessage(ctx, d.Body, sink); err != nil {
                log.Warn("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one broker payload and delivers it.
func HandleMessage(ctx context.Context, body []byte, sink Sink) error {
    var ev NotificationCreatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := sink.Deliver(ctx, ev.Notification()); err != nil {
        return fmt.Errorf("deliver %s: %w", ev.NotificationID, err)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
