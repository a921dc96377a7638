package model

import "time"

// Role distinguishes the two kinds of participants.  A user has no role
// until one is chosen after registration.
type Role string

const (
    RoleNone      Role = ""
    RoleDriver    Role = "driver"
    RolePassenger Role = "passenger"
)

// Valid reports whether r is one of the selectable roles.
func (r Role) Valid() bool { return r == RoleDriver || r == RolePassenger }

// Opposite returns the counterpart role used when looking for matches.
func (r Role) Opposite() Role {
    switch r {
    case RoleDriver:
        return RolePassenger
    case RolePassenger:
        return RoleDriver
    }
    return RoleNone
}

// Weekday is the day a schedule repeats on.  Values are stored exactly as
// entered in the client forms (lower-case Spanish day names).
type Weekday string

const (
    Lunes     Weekday = "lunes"
    Martes    Weekday = "martes"
    Miercoles Weekday = "miercoles"
    Jueves    Weekday = "jueves"
    Viernes   Weekday = "viernes"
    Sabado    Weekday = "sabado"
    Domingo   Weekday = "domingo"
)

// Weekdays lists the fixed enumeration in calendar order.
var Weekdays = []Weekday{Lunes, Martes, Miercoles, Jueves, Viernes, Sabado, Domingo}

// Valid reports whether d belongs to the enumeration.
func (d Weekday) Valid() bool {
    for _, w := range Weekdays {
        if d == w {
            return true
        }
    }
    return false
}

// Place is one end of a trip.  Only two places exist.
type Place string

const (
    PlaceResidence  Place = "residencia"
    PlaceUniversity Place = "universidad"
)

// Valid reports whether p is a known place.
func (p Place) Valid() bool { return p == PlaceResidence || p == PlaceUniversity }

// DefaultFlexibilityMinutes is the tolerance applied when a passenger
// schedule carries none.
const DefaultFlexibilityMinutes = 30

// Schedule is a recurring weekly travel preference.  Driver and passenger
// schedules share this shape; Role tells them apart and decides which of
// the variant-specific fields are meaningful.
//
// Fields:
//  ID                 – primary key (uuid).
//  OwnerID            – user that created the schedule.
//  Role               – driver or passenger variant.
//  Day                – day of week.
//  Time               – "HH:MM"; exact departure (driver) or approximate time (passenger).
//  Origin/Destination – residencia or universidad.
//  Zone               – optional residential zone free text.
//  Seats              – offered seats (drivers only).
//  FlexibilityMinutes – time tolerance (passengers only).
//  Active             – soft-delete flag; only active rows are matched.
//  CreatedAt          – creation timestamp.
type Schedule struct {
    ID                 string    `json:"id"`
    OwnerID            string    `json:"owner_id"`
    Role               Role      `json:"role"`
    Day                Weekday   `json:"day"`
    Time               string    `json:"time"`
    Origin             Place     `json:"origin"`
    Destination        Place     `json:"destination"`
    Zone               *string   `json:"zone,omitempty"`
    Seats              int       `json:"seats,omitempty"`
    FlexibilityMinutes int       `json:"flexibility_minutes,omitempty"`
    Active             bool      `json:"active"`
    CreatedAt          time.Time `json:"created_at"`
}

// Tolerance returns the passenger flexibility, falling back to the default
// when unset.  Driver schedules have no tolerance of their own.
func (s Schedule) Tolerance() int {
    if s.FlexibilityMinutes <= 0 {
        return DefaultFlexibilityMinutes
    }
    return s.FlexibilityMinutes
}
