// Package memory is an in-process implementation of the store interfaces.
// It backs the unit tests of the packages above the repository layer.
package memory

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
    "github.com/uniride/uniride-api/internal/store"
)

// Store keeps schedules, requests and notifications in maps guarded by a
// single mutex.  Setting Fail makes every call return that error.
type Store struct {
    mu            sync.Mutex
    schedules     map[string]model.Schedule
    requests      map[string]model.TripRequest
    notifications map[string]model.Notification
    seq           int64
    now           func() time.Time

    Fail error
}

var (
    _ store.ScheduleStore     = (*Store)(nil)
    _ store.RequestStore      = (*Store)(nil)
    _ store.NotificationStore = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
    return &Store{
        schedules:     make(map[string]model.Schedule),
        requests:      make(map[string]model.TripRequest),
        notifications: make(map[string]model.Notification),
        now:           func() time.Time { return time.Now().UTC() },
    }
}

// stamp returns strictly increasing timestamps so listing order is stable.
func (m *Store) stamp() time.Time {
    m.seq++
    return m.now().Add(time.Duration(m.seq) * time.Microsecond)
}

func (m *Store) ListActiveSchedules(_ context.Context, role model.Role, ownerID string) ([]model.Schedule, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    out := make([]model.Schedule, 0)
    for _, s := range m.schedules {
        if s.Role != role || !s.Active {
            continue
        }
        if ownerID != "" && s.OwnerID != ownerID {
            continue
        }
        out = append(out, s)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out, nil
}

func (m *Store) GetSchedule(_ context.Context, role model.Role, id string) (*model.Schedule, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    s, ok := m.schedules[id]
    if !ok || s.Role != role {
        return nil, apperr.ErrNotFound
    }
    return &s, nil
}

func (m *Store) CreateSchedule(_ context.Context, s *model.Schedule) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return m.Fail
    }
    m.insertSchedule(s)
    return nil
}

func (m *Store) insertSchedule(s *model.Schedule) {
    if s.ID == "" {
        s.ID = uuid.NewString()
    }
    s.Active = true
    s.CreatedAt = m.stamp()
    m.schedules[s.ID] = *s
}

func (m *Store) SoftDeleteSchedule(_ context.Context, role model.Role, id, ownerID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return m.Fail
    }
    return m.deactivate(role, id, ownerID)
}

func (m *Store) deactivate(role model.Role, id, ownerID string) error {
    s, ok := m.schedules[id]
    if !ok || s.Role != role || !s.Active {
        return apperr.ErrNotFound
    }
    if s.OwnerID != ownerID {
        return apperr.ErrForbidden
    }
    s.Active = false
    m.schedules[id] = s
    return nil
}

func (m *Store) ReplaceSchedule(_ context.Context, oldID string, s *model.Schedule) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return m.Fail
    }
    if err := m.deactivate(s.Role, oldID, s.OwnerID); err != nil {
        return err
    }
    s.ID = ""
    m.insertSchedule(s)
    return nil
}

func (m *Store) CreateRequest(_ context.Context, passengerID, driverID, driverScheduleID string, message *string) (*model.TripRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    for _, r := range m.requests {
        if r.PassengerID == passengerID && r.DriverScheduleID == driverScheduleID && r.State == model.StatePending {
            return nil, apperr.StateConflict("a pending request for schedule %s already exists", driverScheduleID)
        }
    }
    now := m.stamp()
    r := model.TripRequest{
        ID:               uuid.NewString(),
        PassengerID:      passengerID,
        DriverID:         driverID,
        DriverScheduleID: driverScheduleID,
        State:            model.StatePending,
        Message:          message,
        CreatedAt:        now,
        UpdatedAt:        now,
    }
    m.requests[r.ID] = r
    return &r, nil
}

func (m *Store) GetRequest(_ context.Context, id string) (*model.TripRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    r, ok := m.requests[id]
    if !ok {
        return nil, apperr.ErrNotFound
    }
    return &r, nil
}

func (m *Store) UpdateRequestState(_ context.Context, id string, from []model.RequestState, to model.RequestState) (*model.TripRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    r, ok := m.requests[id]
    if !ok {
        return nil, apperr.ErrNotFound
    }
    allowed := false
    for _, f := range from {
        if r.State == f {
            allowed = true
            break
        }
    }
    if !allowed {
        return nil, apperr.StateConflict("request %s is %s", id, r.State)
    }
    r.State = to
    r.UpdatedAt = m.stamp()
    m.requests[id] = r
    return &r, nil
}

// SetRequestState forces a state without any check.  Tests use it to
// simulate a concurrent writer.
func (m *Store) SetRequestState(id string, st model.RequestState) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r := m.requests[id]
    r.State = st
    m.requests[id] = r
}

func (m *Store) ListRequests(_ context.Context, f store.RequestFilter) ([]model.TripRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    out := make([]model.TripRequest, 0)
    for _, r := range m.requests {
        if f.DriverID != "" && r.DriverID != f.DriverID {
            continue
        }
        if f.PassengerID != "" && r.PassengerID != f.PassengerID {
            continue
        }
        if len(f.States) > 0 && !hasState(f.States, r.State) {
            continue
        }
        out = append(out, r)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
    return out, nil
}

func hasState(set []model.RequestState, s model.RequestState) bool {
    for _, x := range set {
        if x == s {
            return true
        }
    }
    return false
}

func (m *Store) CreateNotification(_ context.Context, n *model.Notification) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return m.Fail
    }
    if n.ID == "" {
        n.ID = uuid.NewString()
    }
    n.CreatedAt = m.stamp()
    m.notifications[n.ID] = *n
    return nil
}

func (m *Store) MarkNotificationRead(_ context.Context, id, recipientID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return m.Fail
    }
    n, ok := m.notifications[id]
    if !ok {
        return apperr.ErrNotFound
    }
    if n.RecipientID != recipientID {
        return apperr.ErrForbidden
    }
    n.Read = true
    m.notifications[id] = n
    return nil
}

func (m *Store) ListNotifications(_ context.Context, recipientID string, unreadOnly bool) ([]model.Notification, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return nil, m.Fail
    }
    out := make([]model.Notification, 0)
    for _, n := range m.notifications {
        if n.RecipientID != recipientID || (unreadOnly && n.Read) {
            continue
        }
        out = append(out, n)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
    return out, nil
}

func (m *Store) CountUnread(_ context.Context, recipientID string) (int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.Fail != nil {
        return 0, m.Fail
    }
    n := 0
    for _, v := range m.notifications {
        if v.RecipientID == recipientID && !v.Read {
            n++
        }
    }
    return n, nil
}
