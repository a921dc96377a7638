package model

import (
    "encoding/json"
    "time"
)

// NotificationType tags what happened.
type NotificationType string

const (
    NotificationTripRequested NotificationType = "trip_requested"
    NotificationTripAccepted  NotificationType = "trip_accepted"
    NotificationTripRejected  NotificationType = "trip_rejected"
)

// Notification is a recipient-scoped event record produced by request
// transitions.  Only the recipient may flip Read.
type Notification struct {
    ID          string           `json:"id"`
    RecipientID string           `json:"recipient_id"`
    Type        NotificationType `json:"type"`
    Title       string           `json:"title"`
    Body        string           `json:"body"`
    Metadata    json.RawMessage  `json:"metadata,omitempty"`
    Read        bool             `json:"read"`
    CreatedAt   time.Time        `json:"created_at"`
}

// RequestMetadata is the metadata payload attached to request notifications.
type RequestMetadata struct {
    RequestID string `json:"request_id"`
}
