// Package lifecycle drives a trip request from creation to one of its
// terminal states and emits the notifications each transition owes the
// other party.
//
//  pending ──accept──▶ accepted
//     │  └──reject──▶ rejected
//     └────cancel──▶ cancelled   (cancel is also allowed from accepted)
//
// Every legality check happens before any write.  The write itself is a
// compare-and-swap on the stored state so two concurrent transitions of
// the same request cannot both succeed.
package lifecycle

import (
    "context"
    "encoding/json"
    "errors"
    "strings"

    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/session"
    "github.com/uniride/uniride-api/internal/store"
)

// Notifier persists a notification and pushes it to its recipient.
type Notifier interface {
    Notify(ctx context.Context, n *model.Notification) error
}

// Directory resolves display names used in notification texts.
type Directory interface {
    DisplayName(ctx context.Context, userID string) (string, error)
}

// Options tunes optional behaviour.
type Options struct {
    // NotifyOnReject sends a trip_rejected notification to the passenger.
    // Off by default: rejection is silent.
    NotifyOnReject bool
}

// Service implements the request state machine on top of the stores.
type Service struct {
    schedules store.ScheduleStore
    requests  store.RequestStore
    notifier  Notifier
    names     Directory
    log       *zap.Logger
    opts      Options
}

// New wires a Service.  names and log may be nil.
func New(schedules store.ScheduleStore, requests store.RequestStore, notifier Notifier, names Directory, log *zap.Logger, opts Options) *Service {
    if log == nil {
        log = zap.NewNop()
    }
    return &Service{
        schedules: schedules,
        requests:  requests,
        notifier:  notifier,
        names:     names,
        log:       log,
        opts:      opts,
    }
}

// Create opens a pending request from the session's passenger against a
// driver schedule and notifies the driver.
//
// When the returned error is a *apperr.PartialSideEffect the request was
// committed and the returned value is valid; only the notification is
// missing.
func (s *Service) Create(ctx context.Context, sess session.Session, driverScheduleID string, message *string) (*model.TripRequest, error) {
    if !sess.Is(model.RolePassenger) {
        return nil, apperr.ErrForbidden
    }
    driverScheduleID = strings.TrimSpace(driverScheduleID)
    if driverScheduleID == "" {
        return nil, apperr.Invalid("driver_schedule_id", "required")
    }

    sched, err := s.schedules.GetSchedule(ctx, model.RoleDriver, driverScheduleID)
    if err != nil {
        return nil, storeErr("get driver schedule", err)
    }
    if !sched.Active {
        return nil, apperr.StateConflict("driver schedule %s is no longer active", sched.ID)
    }
    if sched.OwnerID == sess.UserID {
        return nil, apperr.Invalid("driver_schedule_id", "cannot request a trip on your own schedule")
    }

    name := s.displayName(ctx, sess.UserID)
    if message != nil {
        m := strings.TrimSpace(*message)
        message = &m
    }
    if message == nil || *message == "" {
        m := "Solicitud de viaje de " + name
        message = &m
    }

    req, err := s.requests.CreateRequest(ctx, sess.UserID, sched.OwnerID, sched.ID, message)
    if err != nil {
        return nil, storeErr("create request", err)
    }

    n := newNotification(req, sched.OwnerID, model.NotificationTripRequested,
        "Nueva solicitud de viaje", name+" quiere viajar contigo")
    return req, s.emit(ctx, req, n, "notify driver")
}

// Accept moves a pending request to accepted and notifies the passenger.
// Only the request's driver may accept.
func (s *Service) Accept(ctx context.Context, sess session.Session, requestID string) (*model.TripRequest, error) {
    req, err := s.transition(ctx, sess, requestID, model.RoleDriver,
        []model.RequestState{model.StatePending}, model.StateAccepted)
    if err != nil {
        return nil, err
    }
    n := newNotification(req, req.PassengerID, model.NotificationTripAccepted,
        "¡Solicitud aceptada!", "El conductor aceptó tu solicitud de viaje")
    return req, s.emit(ctx, req, n, "notify passenger")
}

// Reject moves a pending request to rejected.  The passenger is only told
// when Options.NotifyOnReject is set.
func (s *Service) Reject(ctx context.Context, sess session.Session, requestID string) (*model.TripRequest, error) {
    req, err := s.transition(ctx, sess, requestID, model.RoleDriver,
        []model.RequestState{model.StatePending}, model.StateRejected)
    if err != nil {
        return nil, err
    }
    if !s.opts.NotifyOnReject {
        return req, nil
    }
    n := newNotification(req, req.PassengerID, model.NotificationTripRejected,
        "Solicitud rechazada", "El conductor rechazó tu solicitud de viaje")
    return req, s.emit(ctx, req, n, "notify passenger")
}

// Cancel withdraws a pending or accepted request.  Only the passenger who
// created it may cancel.
func (s *Service) Cancel(ctx context.Context, sess session.Session, requestID string) (*model.TripRequest, error) {
    return s.transition(ctx, sess, requestID, model.RolePassenger,
        []model.RequestState{model.StatePending, model.StateAccepted}, model.StateCancelled)
}

// PendingForDriver lists the driver's requests still awaiting an answer.
func (s *Service) PendingForDriver(ctx context.Context, driverID string) ([]model.TripRequest, error) {
    out, err := s.requests.ListRequests(ctx, store.RequestFilter{
        DriverID: driverID,
        States:   []model.RequestState{model.StatePending},
    })
    if err != nil {
        return nil, storeErr("list pending requests", err)
    }
    return out, nil
}

// ActiveForPassenger lists the passenger's pending and accepted requests.
func (s *Service) ActiveForPassenger(ctx context.Context, passengerID string) ([]model.TripRequest, error) {
    out, err := s.requests.ListRequests(ctx, store.RequestFilter{
        PassengerID: passengerID,
        States:      []model.RequestState{model.StatePending, model.StateAccepted},
    })
    if err != nil {
        return nil, storeErr("list active requests", err)
    }
    return out, nil
}

// SharesAcceptedTrip reports whether passengerID holds an accepted request
// on one of driverID's schedules.  Passengers use it to see the vehicle
// documents of drivers they ride with.
func (s *Service) SharesAcceptedTrip(ctx context.Context, passengerID, driverID string) (bool, error) {
    out, err := s.requests.ListRequests(ctx, store.RequestFilter{
        DriverID:    driverID,
        PassengerID: passengerID,
        States:      []model.RequestState{model.StateAccepted},
    })
    if err != nil {
        return false, storeErr("list accepted requests", err)
    }
    return len(out) > 0, nil
}

// transition loads the request, checks that the session is the party
// entitled to act and that the current state allows the move, then writes
// it with a compare-and-swap.
func (s *Service) transition(ctx context.Context, sess session.Session, requestID string, actor model.Role, from []model.RequestState, to model.RequestState) (*model.TripRequest, error) {
    if !sess.Is(actor) {
        return nil, apperr.ErrForbidden
    }
    if strings.TrimSpace(requestID) == "" {
        return nil, apperr.Invalid("request_id", "required")
    }
    req, err := s.requests.GetRequest(ctx, requestID)
    if err != nil {
        return nil, storeErr("get request", err)
    }
    party := req.DriverID
    if actor == model.RolePassenger {
        party = req.PassengerID
    }
    if party != sess.UserID {
        return nil, apperr.ErrForbidden
    }
    if !stateIn(req.State, from) {
        return nil, apperr.StateConflict("request %s is %s, cannot become %s", req.ID, req.State, to)
    }
    updated, err := s.requests.UpdateRequestState(ctx, req.ID, from, to)
    if err != nil {
        return nil, storeErr("update request state", err)
    }
    return updated, nil
}

func (s *Service) emit(ctx context.Context, req *model.TripRequest, n *model.Notification, effect string) error {
    if s.notifier == nil {
        return nil
    }
    if err := s.notifier.Notify(ctx, n); err != nil {
        s.log.Warn("request committed but notification failed",
            zap.String("request_id", req.ID),
            zap.String("state", string(req.State)),
            zap.String("recipient_id", n.RecipientID),
            zap.String("effect", effect),
            zap.Error(err))
        return &apperr.PartialSideEffect{Effect: effect, Err: err}
    }
    return nil
}

func (s *Service) displayName(ctx context.Context, userID string) string {
    if s.names == nil {
        return "un pasajero"
    }
    name, err := s.names.DisplayName(ctx, userID)
    if err != nil || strings.TrimSpace(name) == "" {
        if err != nil {
            s.log.Debug("display name lookup failed", zap.String("user_id", userID), zap.Error(err))
        }
        return "un pasajero"
    }
    return name
}

func newNotification(req *model.TripRequest, recipient string, typ model.NotificationType, title, body string) *model.Notification {
    meta, _ := json.Marshal(model.RequestMetadata{RequestID: req.ID})
    return &model.Notification{
        RecipientID: recipient,
        Type:        typ,
        Title:       title,
        Body:        body,
        Metadata:    meta,
    }
}

func stateIn(s model.RequestState, set []model.RequestState) bool {
    for _, x := range set {
        if s == x {
            return true
        }
    }
    return false
}

// storeErr passes domain sentinels through and wraps anything else as an
// unavailable store.
func storeErr(op string, err error) error {
    switch {
    case errors.Is(err, apperr.ErrNotFound),
        errors.Is(err, apperr.ErrForbidden),
        errors.Is(err, apperr.ErrStateConflict),
        apperr.IsValidation(err):
        return err
    }
    return apperr.Store(op, err)
}
