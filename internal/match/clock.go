package match

import (
    "strconv"
    "strings"

    "github.com/uniride/uniride-api/internal/apperr"
)

// Minutes converts a time of day to minutes since midnight.  "HH:MM" is the
// form the clients send; "HH:MM:SS" is how TIME columns come back from the
// store, so both are accepted.  Seconds are ignored.
func Minutes(hhmm string) (int, error) {
    parts := strings.Split(strings.TrimSpace(hhmm), ":")
    if len(parts) != 2 && len(parts) != 3 {
        return 0, apperr.Invalid("time", "expected HH:MM, got "+strconv.Quote(hhmm))
    }
    h, err := twoDigits(parts[0], 23)
    if err != nil {
        return 0, apperr.Invalid("time", "bad hour in "+strconv.Quote(hhmm))
    }
    m, err := twoDigits(parts[1], 59)
    if err != nil {
        return 0, apperr.Invalid("time", "bad minute in "+strconv.Quote(hhmm))
    }
    if len(parts) == 3 {
        if _, err := twoDigits(parts[2], 59); err != nil {
            return 0, apperr.Invalid("time", "bad second in "+strconv.Quote(hhmm))
        }
    }
    return h*60 + m, nil
}

// NormalizeTime returns hhmm as zero-padded "HH:MM".
func NormalizeTime(hhmm string) (string, error) {
    total, err := Minutes(hhmm)
    if err != nil {
        return "", err
    }
    h, m := total/60, total%60
    return pad(h) + ":" + pad(m), nil
}

func twoDigits(s string, max int) (int, error) {
    if len(s) == 0 || len(s) > 2 {
        return 0, strconv.ErrSyntax
    }
    n, err := strconv.Atoi(s)
    if err != nil || n < 0 || n > max {
        return 0, strconv.ErrRange
    }
    return n, nil
}

func pad(n int) string {
    if n < 10 {
        return "0" + strconv.Itoa(n)
    }
    return strconv.Itoa(n)
}
