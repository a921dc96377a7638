package match

import (
    "strings"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
)

// ValidateNew checks a schedule about to be created and normalises it in
// place: the time is zero-padded, the zone trimmed, and the passenger
// tolerance defaulted.  Origin equal to destination is refused here even
// though the store itself would accept it.
func ValidateNew(s *model.Schedule) error {
    if s.OwnerID == "" {
        return apperr.Invalid("owner_id", "required")
    }
    if _, err := matchable(*s); err != nil {
        return err
    }
    if s.Origin == s.Destination {
        return apperr.Invalid("destination", "must differ from origin")
    }
    t, err := NormalizeTime(s.Time)
    if err != nil {
        return err
    }
    s.Time = t
    if s.Zone != nil {
        z := strings.TrimSpace(*s.Zone)
        if z == "" {
            s.Zone = nil
        } else {
            s.Zone = &z
        }
    }
    switch s.Role {
    case model.RoleDriver:
        if s.Seats <= 0 {
            return apperr.Invalid("seats", "must be a positive integer")
        }
        s.FlexibilityMinutes = 0
    case model.RolePassenger:
        if s.FlexibilityMinutes < 0 {
            return apperr.Invalid("flexibility_minutes", "must not be negative")
        }
        if s.FlexibilityMinutes == 0 {
            s.FlexibilityMinutes = model.DefaultFlexibilityMinutes
        }
        s.Seats = 0
    }
    return nil
}

// Filter narrows the driver list shown to passengers.  Empty fields do not
// filter.  Zone is a case-insensitive substring match.
type Filter struct {
    Day    model.Weekday
    Origin model.Place
    Zone   string
}

// Apply keeps the drivers having at least one schedule satisfying every
// set criterion.  Each criterion is checked independently against the
// driver's schedules, as the browse screen does.
func (f Filter) Apply(cards []model.DriverCard) []model.DriverCard {
    zone := strings.ToLower(strings.TrimSpace(f.Zone))
    out := make([]model.DriverCard, 0, len(cards))
    for _, c := range cards {
        if f.Day != "" && !anySchedule(c.Schedules, func(s model.Schedule) bool { return s.Day == f.Day }) {
            continue
        }
        if zone != "" && !anySchedule(c.Schedules, func(s model.Schedule) bool {
            return s.Zone != nil && strings.Contains(strings.ToLower(*s.Zone), zone)
        }) {
            continue
        }
        if f.Origin != "" && !anySchedule(c.Schedules, func(s model.Schedule) bool { return s.Origin == f.Origin }) {
            continue
        }
        out = append(out, c)
    }
    return out
}

func anySchedule(ss []model.Schedule, pred func(model.Schedule) bool) bool {
    for _, s := range ss {
        if pred(s) {
            return true
        }
    }
    return false
}
