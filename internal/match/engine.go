// Package match computes which schedules of the opposite role are
// compatible with a party's own schedules.  Everything here is a pure
// function of its inputs; the store is never consulted.
package match

import (
    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
)

// Match pairs a compatible candidate with the own schedule that produced it.
type Match struct {
    Own          model.Schedule `json:"own"`
    Candidate    model.Schedule `json:"candidate"`
    DeltaMinutes int            `json:"delta_minutes"`
}

// Find returns every (own, candidate) pair satisfying the compatibility
// predicate, in own-major / candidate-minor order.  A candidate appears
// once per own schedule it matches.  Any malformed schedule on either side
// aborts the whole computation with a *apperr.ValidationError.
func Find(mine, candidates []model.Schedule) ([]Match, error) {
    if len(mine) == 0 {
        return []Match{}, nil
    }
    ownMin := make([]int, len(mine))
    for i, s := range mine {
        m, err := matchable(s)
        if err != nil {
            return nil, err
        }
        ownMin[i] = m
    }
    candMin := make([]int, len(candidates))
    for i, s := range candidates {
        m, err := matchable(s)
        if err != nil {
            return nil, err
        }
        candMin[i] = m
    }

    out := make([]Match, 0)
    for i, own := range mine {
        for j, cand := range candidates {
            if own.Role == cand.Role {
                return nil, apperr.Invalid("role", "candidates must have the opposite role")
            }
            delta, ok := compatible(own, cand, ownMin[i], candMin[j])
            if !ok {
                continue
            }
            out = append(out, Match{Own: own, Candidate: cand, DeltaMinutes: delta})
        }
    }
    return out, nil
}

// Compatible evaluates the predicate for a single pair.
func Compatible(own, cand model.Schedule) (bool, error) {
    om, err := matchable(own)
    if err != nil {
        return false, err
    }
    cm, err := matchable(cand)
    if err != nil {
        return false, err
    }
    if own.Role == cand.Role {
        return false, apperr.Invalid("role", "candidates must have the opposite role")
    }
    _, ok := compatible(own, cand, om, cm)
    return ok, nil
}

// compatible is the conjunction of: same day, same origin and destination,
// and a time difference within the passenger's tolerance.
func compatible(own, cand model.Schedule, ownMin, candMin int) (int, bool) {
    if own.Day != cand.Day {
        return 0, false
    }
    if own.Origin != cand.Origin || own.Destination != cand.Destination {
        return 0, false
    }
    delta := ownMin - candMin
    if delta < 0 {
        delta = -delta
    }
    if delta > tolerance(own, cand) {
        return 0, false
    }
    return delta, true
}

// tolerance is governed by whichever side is the passenger.
func tolerance(a, b model.Schedule) int {
    if a.Role == model.RolePassenger {
        return a.Tolerance()
    }
    return b.Tolerance()
}

// DedupeByOwner keeps the first match for every candidate owner,
// preserving order.
func DedupeByOwner(ms []Match) []Match {
    seen := make(map[string]struct{}, len(ms))
    out := make([]Match, 0, len(ms))
    for _, m := range ms {
        if _, ok := seen[m.Candidate.OwnerID]; ok {
            continue
        }
        seen[m.Candidate.OwnerID] = struct{}{}
        out = append(out, m)
    }
    return out
}

// matchable checks the fields the predicate reads and returns the parsed time.
func matchable(s model.Schedule) (int, error) {
    if !s.Role.Valid() {
        return 0, apperr.Invalid("role", "unknown role "+string(s.Role))
    }
    if !s.Day.Valid() {
        return 0, apperr.Invalid("day", "unknown day "+string(s.Day))
    }
    if !s.Origin.Valid() {
        return 0, apperr.Invalid("origin", "unknown place "+string(s.Origin))
    }
    if !s.Destination.Valid() {
        return 0, apperr.Invalid("destination", "unknown place "+string(s.Destination))
    }
    return Minutes(s.Time)
}
