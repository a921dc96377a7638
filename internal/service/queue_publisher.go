// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned so callers can report a degraded push
// without failing the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/model"
    q "github.com/uniride/uniride-api/internal/queue"
)

// NotificationPublisher publishes NotificationCreatedEvent messages to the
// notification.created fanout exchange.  A connection is dialled per
// publish; notifications are low volume and this keeps the publisher free
// of reconnect state.
type NotificationPublisher struct {
    URL string
    Log *zap.Logger
}

// NewNotificationPublisher returns a publisher for the broker at url.
func NewNotificationPublisher(url string, log *zap.Logger) *NotificationPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &NotificationPublisher{URL: url, Log: log.Named("rabbitmq")}
}

// PublishNotification publishes n. The function never panics; any error
// is logged and returned.  Messages are marked as persistent.
func (p *NotificationPublisher) PublishNotification(ctx context.Context, n model.Notification) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        p.Log.Warn("dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Log.Warn("channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the exchange exists (idempotent). Durable so it survives broker restarts.
    if err := ch.ExchangeDeclare(
        q.NotificationExchange, // name
        "fanout",               // kind
        true,                   // durable
        false,                  // autoDelete
        false,                  // internal
        false,                  // noWait
        nil,                    // args
    ); err != nil {
        p.Log.Warn("exchange declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(q.EventFromNotification(n))
    if err != nil {
        p.Log.Warn("marshal event failed", zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    n.ID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        q.NotificationExchange, // fanout exchange
        "",                     // routing key ignored by fanout
        false,                  // mandatory
        false,                  // immediate
        pub,
    ); err != nil {
        p.Log.Warn("publish failed", zap.String("notification_id", n.ID), zap.Error(err))
        return err
    }

    return nil
}
