// Package store declares the persistence contracts the matching and request
// core depends on.  The MySQL implementations live in internal/repository;
// tests substitute in-memory fakes.
package store

import (
    "context"

    "github.com/uniride/uniride-api/internal/model"
)

// ScheduleStore keeps driver and passenger schedules.  Both variants share
// one soft-delete policy: deleting flips Active to false.
type ScheduleStore interface {
    // ListActiveSchedules returns active schedules of role.  An empty
    // ownerID lists every owner.
    ListActiveSchedules(ctx context.Context, role model.Role, ownerID string) ([]model.Schedule, error)
    GetSchedule(ctx context.Context, role model.Role, id string) (*model.Schedule, error)
    CreateSchedule(ctx context.Context, s *model.Schedule) error
    // SoftDeleteSchedule deactivates a schedule owned by ownerID.
    SoftDeleteSchedule(ctx context.Context, role model.Role, id, ownerID string) error
    // ReplaceSchedule deactivates oldID and inserts s in one transaction.
    ReplaceSchedule(ctx context.Context, oldID string, s *model.Schedule) error
}

// RequestFilter selects trip requests by participant and state.  At least
// one of DriverID and PassengerID must be set; both narrow to one pair.
type RequestFilter struct {
    DriverID    string
    PassengerID string
    States      []model.RequestState
}

// RequestStore keeps trip requests.  Rows are never deleted.
type RequestStore interface {
    // CreateRequest inserts a pending request.  It fails with a state
    // conflict when the passenger already has a pending request for the
    // same driver schedule.
    CreateRequest(ctx context.Context, passengerID, driverID, driverScheduleID string, message *string) (*model.TripRequest, error)
    GetRequest(ctx context.Context, id string) (*model.TripRequest, error)
    // UpdateRequestState moves id to `to` only if its current state is one
    // of `from`.  Losing that compare-and-swap is a state conflict.
    UpdateRequestState(ctx context.Context, id string, from []model.RequestState, to model.RequestState) (*model.TripRequest, error)
    ListRequests(ctx context.Context, f RequestFilter) ([]model.TripRequest, error)
}

// NotificationStore keeps notifications per recipient.
type NotificationStore interface {
    CreateNotification(ctx context.Context, n *model.Notification) error
    MarkNotificationRead(ctx context.Context, id, recipientID string) error
    ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]model.Notification, error)
    CountUnread(ctx context.Context, recipientID string) (int, error)
}
