// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "encoding/json"
    "time"

    "github.com/uniride/uniride-api/internal/model"
)

// NotificationExchange is the fanout exchange every instance binds its own
// queue to, so a notification reaches the instance holding the
// recipient's WebSocket wherever it was created.
const NotificationExchange = "notification.created"

// NotificationCreatedEvent is published once a notification row has been
// stored.  It carries the full notification so consumers can push it
// without querying the database.
type NotificationCreatedEvent struct {
    NotificationID string          `json:"notification_id"`
    RecipientID    string          `json:"recipient_id"`
    Type           string          `json:"type"`
    Title          string          `json:"title"`
    Body           string          `json:"body"`
    Metadata       json.RawMessage `json:"metadata,omitempty"`
    Read           bool            `json:"read"`
    CreatedAt      string          `json:"created_at"`
}

// EventFromNotification builds the broker payload for n.
func EventFromNotification(n model.Notification) NotificationCreatedEvent {
    return NotificationCreatedEvent{
        NotificationID: n.ID,
        RecipientID:    n.RecipientID,
        Type:           string(n.Type),
        Title:          n.Title,
        Body:           n.Body,
        Metadata:       n.Metadata,
        Read:           n.Read,
        CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339Nano),
    }
}

// Notification converts the event back.  An unparsable timestamp is left
// zero rather than rejecting the message.
func (e NotificationCreatedEvent) Notification() model.Notification {
    created, _ := time.Parse(time.RFC3339Nano, e.CreatedAt)
    return model.Notification{
        ID:          e.NotificationID,
        RecipientID: e.RecipientID,
        Type:        model.NotificationType(e.Type),
        Title:       e.Title,
        Body:        e.Body,
        Metadata:    e.Metadata,
        Read:        e.Read,
        CreatedAt:   created,
    }
}
