package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/model"
	"github.com/uniride/uniride-api/internal/store"
)

// ScheduleRepo persists driver and passenger schedules in the single
// `schedules` table.  Deleting a schedule only clears its active flag.
type ScheduleRepo struct {
	db *sql.DB
}

var _ store.ScheduleStore = (*ScheduleRepo)(nil)

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleCols = `id, owner_id, role, day, time_of_day, origin, destination, zone, seats, flexibility_minutes, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (model.Schedule, error) {
	var (
		s     model.Schedule
		at    string
		zone  sql.NullString
		seats sql.NullInt64
		flex  sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.Role, &s.Day, &at, &s.Origin, &s.Destination,
		&zone, &seats, &flex, &s.Active, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.Time = hhmm(at)
	if zone.Valid {
		z := zone.String
		s.Zone = &z
	}
	s.Seats = int(seats.Int64)
	s.FlexibilityMinutes = int(flex.Int64)
	return s, nil
}

// hhmm trims a TIME column ("08:00:00") to "08:00".
func hhmm(t string) string {
	if len(t) >= 5 && t[2] == ':' {
		return t[:5]
	}
	return t
}

// ListActiveSchedules returns active schedules of role, oldest first.  An
// empty ownerID returns every owner's schedules.
func (r *ScheduleRepo) ListActiveSchedules(ctx context.Context, role model.Role, ownerID string) ([]model.Schedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM schedules WHERE role = ? AND active = 1`
	args := []any{role}
	if ownerID != "" {
		q += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSchedule returns a schedule of role by id, active or not.
func (r *ScheduleRepo) GetSchedule(ctx context.Context, role model.Role, id string) (*model.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleCols+` FROM schedules WHERE id = ? AND role = ?`, id, role)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSchedule inserts s, assigning its id and creation time.
func (r *ScheduleRepo) CreateSchedule(ctx context.Context, s *model.Schedule) error {
	return insertSchedule(ctx, r.db, s)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSchedule(ctx context.Context, ex execer, s *model.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Active = true
	s.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	var seats, flex sql.NullInt64
	if s.Role == model.RoleDriver {
		seats = sql.NullInt64{Int64: int64(s.Seats), Valid: true}
	} else {
		flex = sql.NullInt64{Int64: int64(s.FlexibilityMinutes), Valid: true}
	}
	const q = `INSERT INTO schedules (id, owner_id, role, day, time_of_day, origin, destination, zone, seats, flexibility_minutes, active, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`
	_, err := ex.ExecContext(ctx, q, s.ID, s.OwnerID, s.Role, s.Day, s.Time, s.Origin, s.Destination,
		nullString(s.Zone), seats, flex, s.CreatedAt)
	return err
}

// SoftDeleteSchedule clears the active flag of a schedule owned by
// ownerID.  It returns ErrNotFound when the schedule does not exist or is
// already inactive, and ErrForbidden when it belongs to someone else.
func (r *ScheduleRepo) SoftDeleteSchedule(ctx context.Context, role model.Role, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET active = 0 WHERE id = ? AND role = ? AND owner_id = ? AND active = 1`,
		id, role, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.explainMiss(ctx, r.db, role, id, ownerID, false)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// explainMiss tells apart the reasons an owner-scoped update touched no row.
func (r *ScheduleRepo) explainMiss(ctx context.Context, q queryRower, role model.Role, id, ownerID string, lock bool) error {
	sel := `SELECT owner_id, active FROM schedules WHERE id = ? AND role = ?`
	if lock {
		sel += ` FOR UPDATE`
	}
	var (
		owner  string
		active bool
	)
	err := q.QueryRowContext(ctx, sel, id, role).Scan(&owner, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	if !active {
		return ErrNotFound
	}
	return nil
}

// ReplaceSchedule deactivates oldID and inserts s in one transaction.  s
// must carry the same role and owner as the schedule it replaces; it
// receives a fresh id.
func (r *ScheduleRepo) ReplaceSchedule(ctx context.Context, oldID string, s *model.Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.explainMiss(ctx, tx, s.Role, oldID, s.OwnerID, true); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE schedules SET active = 0 WHERE id = ?`, oldID); err != nil {
		return err
	}
	s.ID = ""
	if err := insertSchedule(ctx, tx, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListDriverCards returns every active driver that has at least one active
// schedule, with those schedules attached, ordered by driver name.
func (r *ScheduleRepo) ListDriverCards(ctx context.Context) ([]model.DriverCard, error) {
	const q = `SELECT u.full_name, u.email, u.phone,
	                  s.id, s.owner_id, s.role, s.day, s.time_of_day, s.origin, s.destination, s.zone, s.seats, s.flexibility_minutes, s.active, s.created_at
	           FROM schedules s
	           JOIN users u ON u.id = s.owner_id
	           WHERE s.role = 'driver' AND s.active = 1 AND u.is_active = 1
	           ORDER BY u.full_name, s.owner_id, s.created_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DriverCard, 0)
	for rows.Next() {
		var (
			name, email string
			phone       sql.NullString
		)
		s, err := scanSchedule(prefixScanner{rows: rows, prefix: []any{&name, &email, &phone}})
		if err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].DriverID != s.OwnerID {
			card := model.DriverCard{DriverID: s.OwnerID, FullName: name, Email: email}
			if phone.Valid && strings.TrimSpace(phone.String) != "" {
				p := phone.String
				card.Phone = &p
			}
			out = append(out, card)
		}
		last := &out[len(out)-1]
		last.Schedules = append(last.Schedules, s)
	}
	return out, rows.Err()
}

// prefixScanner lets scanSchedule read a row that has extra leading columns.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(append([]any{}, p.prefix...), dest...)...)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
