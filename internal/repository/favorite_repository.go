package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/model"
)

// contactHistoryLimit is how many contact records a passenger sees.
const contactHistoryLimit = 20

// FavoriteRepo keeps a passenger's favourite drivers and contact history.
type FavoriteRepo struct {
	db *sql.DB
}

// NewFavoriteRepo constructs a FavoriteRepo with the given DB handle.
func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Toggle adds driverID to the passenger's favourites, or removes it if it
// was already there.  It reports whether the driver is a favourite now.
func (r *FavoriteRepo) Toggle(ctx context.Context, passengerID, driverID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM favorite_drivers WHERE passenger_id = ? AND driver_id = ?`, passengerID, driverID)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO favorite_drivers (passenger_id, driver_id) VALUES (?, ?)`, passengerID, driverID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return removed == 0, nil
}

// ListFavorites returns the passenger's favourite drivers, newest first.
func (r *FavoriteRepo) ListFavorites(ctx context.Context, passengerID string) ([]model.FavoriteDriver, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.passenger_id, f.driver_id, COALESCE(u.full_name, ''), f.created_at
		 FROM favorite_drivers f LEFT JOIN users u ON u.id = f.driver_id
		 WHERE f.passenger_id = ? ORDER BY f.created_at DESC`, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.FavoriteDriver, 0)
	for rows.Next() {
		var f model.FavoriteDriver
		if err := rows.Scan(&f.PassengerID, &f.DriverID, &f.DriverName, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecordContact appends an entry to the passenger's contact history.
func (r *FavoriteRepo) RecordContact(ctx context.Context, c *model.ContactRecord) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_history (id, passenger_id, driver_id, channel, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PassengerID, c.DriverID, c.Channel, c.CreatedAt)
	return err
}

// ListContacts returns the passenger's latest contacts.
func (r *FavoriteRepo) ListContacts(ctx context.Context, passengerID string) ([]model.ContactRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.passenger_id, c.driver_id, COALESCE(u.full_name, ''), c.channel, c.created_at
		 FROM contact_history c LEFT JOIN users u ON u.id = c.driver_id
		 WHERE c.passenger_id = ? ORDER BY c.created_at DESC LIMIT ?`, passengerID, contactHistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ContactRecord, 0)
	for rows.Next() {
		var c model.ContactRecord
		if err := rows.Scan(&c.ID, &c.PassengerID, &c.DriverID, &c.DriverName, &c.Channel, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
