package match

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/model"
)

func passenger(id, owner string, day model.Weekday, at string, flex int) model.Schedule {
    return model.Schedule{
        ID: id, OwnerID: owner, Role: model.RolePassenger, Day: day, Time: at,
        Origin: model.PlaceResidence, Destination: model.PlaceUniversity,
        FlexibilityMinutes: flex, Active: true,
    }
}

func driver(id, owner string, day model.Weekday, at string, seats int) model.Schedule {
    return model.Schedule{
        ID: id, OwnerID: owner, Role: model.RoleDriver, Day: day, Time: at,
        Origin: model.PlaceResidence, Destination: model.PlaceUniversity,
        Seats: seats, Active: true,
    }
}

func TestFindMorningScenario(t *testing.T) {
    mine := []model.Schedule{passenger("p1", "pat", model.Lunes, "07:50", 30)}
    pool := []model.Schedule{driver("d1", "dan", model.Lunes, "08:00", 4)}

    got, err := Find(mine, pool)
    require.NoError(t, err)
    require.Len(t, got, 1)
    assert.Equal(t, "d1", got[0].Candidate.ID)
    assert.Equal(t, "p1", got[0].Own.ID)
    assert.Equal(t, 10, got[0].DeltaMinutes)
}

func TestToleranceBoundary(t *testing.T) {
    own := passenger("p1", "pat", model.Martes, "08:00", 30)

    ok, err := Compatible(own, driver("d1", "dan", model.Martes, "08:30", 3))
    require.NoError(t, err)
    assert.True(t, ok, "30 minutes is inside the window")

    ok, err = Compatible(own, driver("d2", "dan", model.Martes, "08:31", 3))
    require.NoError(t, err)
    assert.False(t, ok, "31 minutes is outside the window")

    ok, err = Compatible(own, driver("d3", "dan", model.Martes, "07:30", 3))
    require.NoError(t, err)
    assert.True(t, ok, "difference is absolute")
}

func TestDriverSideUsesPassengerTolerance(t *testing.T) {
    own := driver("d1", "dan", model.Jueves, "06:00", 2)

    ok, err := Compatible(own, passenger("p1", "pat", model.Jueves, "06:45", 45))
    require.NoError(t, err)
    assert.True(t, ok)

    // unset flexibility falls back to 30
    ok, err = Compatible(own, passenger("p2", "pia", model.Jueves, "06:45", 0))
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestNoReverseDirection(t *testing.T) {
    own := passenger("p1", "pat", model.Lunes, "08:00", 30)
    back := driver("d1", "dan", model.Lunes, "08:00", 4)
    back.Origin, back.Destination = model.PlaceUniversity, model.PlaceResidence

    got, err := Find([]model.Schedule{own}, []model.Schedule{back})
    require.NoError(t, err)
    assert.Empty(t, got)
}

func TestDifferentDay(t *testing.T) {
    got, err := Find(
        []model.Schedule{passenger("p1", "pat", model.Lunes, "08:00", 30)},
        []model.Schedule{driver("d1", "dan", model.Martes, "08:00", 4)},
    )
    require.NoError(t, err)
    assert.Empty(t, got)
}

func TestOrderingOwnMajor(t *testing.T) {
    mine := []model.Schedule{
        passenger("p1", "pat", model.Lunes, "08:00", 30),
        passenger("p2", "pat", model.Lunes, "08:10", 30),
    }
    pool := []model.Schedule{
        driver("d1", "dan", model.Lunes, "08:05", 4),
        driver("d2", "eve", model.Lunes, "08:20", 2),
    }

    got, err := Find(mine, pool)
    require.NoError(t, err)
    require.Len(t, got, 4)
    pairs := make([]string, 0, len(got))
    for _, m := range got {
        pairs = append(pairs, m.Own.ID+"/"+m.Candidate.ID)
    }
    assert.Equal(t, []string{"p1/d1", "p1/d2", "p2/d1", "p2/d2"}, pairs)

    deduped := DedupeByOwner(got)
    require.Len(t, deduped, 2)
    assert.Equal(t, "dan", deduped[0].Candidate.OwnerID)
    assert.Equal(t, "eve", deduped[1].Candidate.OwnerID)
}

func TestFindIsStable(t *testing.T) {
    mine := []model.Schedule{passenger("p1", "pat", model.Viernes, "17:00", 20)}
    pool := []model.Schedule{
        driver("d1", "dan", model.Viernes, "17:15", 1),
        driver("d2", "eve", model.Viernes, "16:45", 1),
    }
    first, err := Find(mine, pool)
    require.NoError(t, err)
    second, err := Find(mine, pool)
    require.NoError(t, err)
    assert.Equal(t, first, second)
}

func TestEmptyMineSkipsCandidates(t *testing.T) {
    broken := driver("d1", "dan", model.Lunes, "nope", 4)
    got, err := Find(nil, []model.Schedule{broken})
    require.NoError(t, err)
    assert.Empty(t, got)
}

func TestMalformedInputFailsFast(t *testing.T) {
    own := passenger("p1", "pat", model.Lunes, "08:00", 30)

    cases := map[string]model.Schedule{
        "bad time":    driver("d1", "dan", model.Lunes, "8h", 4),
        "hour range":  driver("d2", "dan", model.Lunes, "24:00", 4),
        "unknown day": driver("d3", "dan", model.Weekday("monday"), "08:00", 4),
        "same role":   passenger("p2", "pia", model.Lunes, "08:00", 30),
    }
    for name, cand := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := Find([]model.Schedule{own}, []model.Schedule{cand})
            require.Error(t, err)
            assert.True(t, apperr.IsValidation(err))
        })
    }
}

func TestMinutes(t *testing.T) {
    m, err := Minutes("07:50")
    require.NoError(t, err)
    assert.Equal(t, 470, m)

    m, err = Minutes("07:50:00")
    require.NoError(t, err)
    assert.Equal(t, 470, m)

    m, err = Minutes("7:05")
    require.NoError(t, err)
    assert.Equal(t, 425, m)

    for _, bad := range []string{"", "0750", "07:60", "aa:bb", "07:50:61", "1:2:3:4"} {
        _, err := Minutes(bad)
        assert.Error(t, err, bad)
    }
}
