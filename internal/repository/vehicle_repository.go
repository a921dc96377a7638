package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uniride/uniride-api/internal/database"
	"github.com/uniride/uniride-api/internal/model"
)

// VehicleRepo stores vehicles registered by drivers.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo constructs a VehicleRepo with the given DB handle.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// Create inserts v.  The plate is upper-cased; a taken plate yields
// ErrPlateExists.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	if v.Capacity <= 0 {
		v.Capacity = model.DefaultVehicleCapacity
	}
	v.CreatedAt = time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO vehicles (id, owner_id, plate, brand, model, color, year, capacity, property_card_url, license_url, insurance_url, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, v.ID, v.OwnerID, v.Plate, v.Brand, v.Model, v.Color, v.Year, v.Capacity,
		v.PropertyCardURL, v.LicenseURL, v.InsuranceURL, v.CreatedAt)
	if database.IsDuplicate(err) {
		return ErrPlateExists
	}
	return err
}

// ListByOwner returns the driver's vehicles, newest first.
func (r *VehicleRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, plate, brand, model, color, year, capacity, property_card_url, license_url, insurance_url, created_at
		 FROM vehicles WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Vehicle, 0)
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Plate, &v.Brand, &v.Model, &v.Color, &v.Year, &v.Capacity,
			&v.PropertyCardURL, &v.LicenseURL, &v.InsuranceURL, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
