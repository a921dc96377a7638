package model

import "time"

// RequestState is the lifecycle state of a TripRequest.
type RequestState string

const (
    StatePending   RequestState = "pending"
    StateAccepted  RequestState = "accepted"
    StateRejected  RequestState = "rejected"
    StateCancelled RequestState = "cancelled"
)

// Terminal reports whether no transition may leave s.
func (s RequestState) Terminal() bool {
    return s == StateAccepted || s == StateRejected || s == StateCancelled
}

// TripRequest is a passenger's proposal to join a driver schedule.  It is
// never deleted; it only moves between states.
//
// Fields:
//  ID               – primary key (uuid).
//  PassengerID      – passenger that created the request.
//  DriverID         – owner of the referenced schedule.
//  DriverScheduleID – schedule the passenger wants to join.
//  State            – pending, accepted, rejected or cancelled.
//  Message          – optional free text.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last state change.
type TripRequest struct {
    ID               string       `json:"id"`
    PassengerID      string       `json:"passenger_id"`
    DriverID         string       `json:"driver_id"`
    DriverScheduleID string       `json:"driver_schedule_id"`
    State            RequestState `json:"state"`
    Message          *string      `json:"message,omitempty"`
    CreatedAt        time.Time    `json:"created_at"`
    UpdatedAt        time.Time    `json:"updated_at"`
}
