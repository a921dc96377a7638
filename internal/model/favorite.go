package model

import "time"

// FavoriteDriver marks a driver a passenger wants to find again quickly.
type FavoriteDriver struct {
    PassengerID string    `json:"passenger_id"`
    DriverID    string    `json:"driver_id"`
    DriverName  string    `json:"driver_name,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

// ContactChannel is how a passenger reached out to a driver.
type ContactChannel string

const (
    ContactWhatsApp ContactChannel = "whatsapp"
    ContactPhone    ContactChannel = "phone"
)

// ContactRecord is one entry of a passenger's contact history.
type ContactRecord struct {
    ID          string         `json:"id"`
    PassengerID string         `json:"passenger_id"`
    DriverID    string         `json:"driver_id"`
    DriverName  string         `json:"driver_name,omitempty"`
    Channel     ContactChannel `json:"channel"`
    CreatedAt   time.Time      `json:"created_at"`
}

// DriverCard is what passengers browse: a driver profile plus the driver's
// active schedules.
type DriverCard struct {
    DriverID  string     `json:"driver_id"`
    FullName  string     `json:"full_name"`
    Email     string     `json:"email"`
    Phone     *string    `json:"phone,omitempty"`
    Schedules []Schedule `json:"schedules"`
}
