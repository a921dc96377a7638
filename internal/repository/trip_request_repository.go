package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/apperr"
	"github.com/uniride/uniride-api/internal/model"
	"github.com/uniride/uniride-api/internal/store"
)

// TripRequestRepo persists trip requests.  Rows are never deleted; state
// changes go through UpdateRequestState, which is a compare-and-swap on
// the current state.
type TripRequestRepo struct {
	db *sql.DB
}

var _ store.RequestStore = (*TripRequestRepo)(nil)

// NewTripRequestRepo constructs a TripRequestRepo with the given DB handle.
func NewTripRequestRepo(db *sql.DB) *TripRequestRepo { return &TripRequestRepo{db: db} }

const requestCols = `id, passenger_id, driver_id, driver_schedule_id, state, message, created_at, updated_at`

func scanRequest(row rowScanner) (*model.TripRequest, error) {
	var (
		r   model.TripRequest
		msg sql.NullString
	)
	if err := row.Scan(&r.ID, &r.PassengerID, &r.DriverID, &r.DriverScheduleID, &r.State, &msg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if msg.Valid {
		m := msg.String
		r.Message = &m
	}
	return &r, nil
}

// CreateRequest inserts a pending request.  Inside one transaction the
// driver schedule row is locked, which serialises concurrent creates for
// the same schedule, and the passenger's pending requests against it are
// counted.  An inactive schedule or an existing pending request is a
// state conflict.
func (r *TripRequestRepo) CreateRequest(ctx context.Context, passengerID, driverID, driverScheduleID string, message *string) (*model.TripRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT active FROM schedules WHERE id = ? AND role = 'driver' FOR UPDATE`,
		driverScheduleID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.StateConflict("driver schedule %s is no longer active", driverScheduleID)
	}

	var pending int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_requests WHERE passenger_id = ? AND driver_schedule_id = ? AND state = 'pending'`,
		passengerID, driverScheduleID).Scan(&pending)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, apperr.StateConflict("a pending request for schedule %s already exists", driverScheduleID)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	req := &model.TripRequest{
		ID:               uuid.NewString(),
		PassengerID:      passengerID,
		DriverID:         driverID,
		DriverScheduleID: driverScheduleID,
		State:            model.StatePending,
		Message:          message,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	const q = `INSERT INTO trip_requests (id, passenger_id, driver_id, driver_schedule_id, state, message, created_at, updated_at)
	           VALUES (?, ?, ?, ?, 'pending', ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, req.ID, passengerID, driverID, driverScheduleID, nullString(message), now, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return req, nil
}

// GetRequest returns the request with id or ErrNotFound.
func (r *TripRequestRepo) GetRequest(ctx context.Context, id string) (*model.TripRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestCols+` FROM trip_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

// UpdateRequestState sets state `to` only where the current state is in
// `from`.  When no row changes, the request is re-read to report either
// ErrNotFound or a state conflict naming the state that won.
func (r *TripRequestRepo) UpdateRequestState(ctx context.Context, id string, from []model.RequestState, to model.RequestState) (*model.TripRequest, error) {
	if len(from) == 0 {
		return nil, apperr.Invalid("from", "at least one source state is required")
	}
	args := make([]any, 0, len(from)+2)
	args = append(args, to, id)
	for _, s := range from {
		args = append(args, s)
	}
	q := `UPDATE trip_requests SET state = ? WHERE id = ? AND state IN (` + placeholders(len(from)) + `)`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	cur, err := r.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.StateConflict("request %s is %s, cannot become %s", id, cur.State, to)
	}
	return cur, nil
}

// ListRequests returns requests matching f, newest first.
func (r *TripRequestRepo) ListRequests(ctx context.Context, f store.RequestFilter) ([]model.TripRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if f.PassengerID != "" {
		where = append(where, "passenger_id = ?")
		args = append(args, f.PassengerID)
	}
	if len(where) == 0 {
		return nil, apperr.Invalid("filter", "driver or passenger is required")
	}
	if len(f.States) > 0 {
		where = append(where, "state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, s)
		}
	}
	q := `SELECT ` + requestCols + ` FROM trip_requests WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TripRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
