package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/database"
	"github.com/uniride/uniride-api/internal/model"
	"github.com/uniride/uniride-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,email,password_hash,full_name,phone,student_code,career,age,sex,zone,role,is_active,created_at,updated_at`

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                              model.User
		phone, code, career, sex, zone sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &phone, &code, &career, &u.Age, &sex, &zone,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Phone = strPtr(phone)
	u.StudentCode = strPtr(code)
	u.Career = strPtr(career)
	u.Sex = strPtr(sex)
	u.Zone = strPtr(zone)
	return u, nil
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create inserts user and returns its ID.  The role stays empty until the
// user picks one.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, full_name, role) VALUES (?,?,?,?,'')",
		id, email, hash, strings.TrimSpace(fullName))
	if err != nil {
		if database.IsDuplicate(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// SetRole stores the role chosen by the user.  Schedules kept under any
// other role are deactivated in the same transaction so they stop being
// matched and browsed.
func (r *UserRepo) SetRole(ctx context.Context, id string, role model.Role) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, "UPDATE users SET role=? WHERE id=? AND is_active=1", role, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE schedules SET active=0 WHERE owner_id=? AND role<>? AND active=1", id, role); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetPassword replaces the password hash of an active user.
func (r *UserRepo) SetPassword(ctx context.Context, id, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=? AND is_active=1", hash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ProfileUpdate carries the editable profile fields.  Nil pointers leave
// the column untouched.
type ProfileUpdate struct {
	FullName    *string
	Phone       *string
	StudentCode *string
	Career      *string
	Age         *int
	Sex         *string
	Zone        *string
}

// UpdateProfile applies the non-nil fields of p.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.FullName != nil {
		add("full_name", strings.TrimSpace(*p.FullName))
	}
	if p.Phone != nil {
		add("phone", emptyToNull(*p.Phone))
	}
	if p.StudentCode != nil {
		add("student_code", emptyToNull(*p.StudentCode))
	}
	if p.Career != nil {
		add("career", emptyToNull(*p.Career))
	}
	if p.Age != nil {
		add("age", *p.Age)
	}
	if p.Sex != nil {
		add("sex", emptyToNull(*p.Sex))
	}
	if p.Zone != nil {
		add("zone", emptyToNull(*p.Zone))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=? AND is_active=1", args...)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so only a
	// missing user is an error.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate soft-deletes the account and its active schedules in one
// transaction.
func (r *UserRepo) Deactivate(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, "UPDATE users SET is_active=0 WHERE id=? AND is_active=1", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE schedules SET active=0 WHERE owner_id=? AND active=1", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DisplayName returns the user's full name, or the local part of the
// email when no name was given.
func (r *UserRepo) DisplayName(ctx context.Context, id string) (string, error) {
	var name, email string
	err := r.DB.QueryRowContext(ctx, "SELECT full_name, email FROM users WHERE id=? LIMIT 1", id).Scan(&name, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) != "" {
		return name, nil
	}
	local, _, _ := strings.Cut(email, "@")
	return local, nil
}

func emptyToNull(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
