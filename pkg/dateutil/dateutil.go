package dateutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the spreadsheet day-zero. Using 1899-12-30 instead of
// 1899-12-31 absorbs the historical 1900 leap-year offset for every serial
// after February 1900, which is the only range real exports produce.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minSerial = 61
	maxSerial = 200000
)

var datePattern = regexp.MustCompile(`^(\d{1,4})[-/.](\d{1,2})[-/.](\d{1,4})$`)

// FromSerial converts a spreadsheet numeric date serial to a calendar date.
func FromSerial(serial float64) time.Time {
	days := int(serial)
	frac := serial - float64(days)
	t := serialEpoch.AddDate(0, 0, days)
	if frac > 0 {
		t = t.Add(time.Duration(frac * 24 * float64(time.Hour)))
	}
	return t
}

// Parse interprets a raw cell value as a date. Accepted inputs: native
// time.Time values, ISO strings, day-first DD-MM-YY / DD-MM-YYYY /
// DD/MM/YYYY, spreadsheet numeric serials, and MM/DD/YYYY only when a
// day-first reading is impossible. The second return value is false when the
// value could not be parsed; callers fall back to "now" and must flag the
// row, never drop it silently.
func Parse(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case float64:
		if t >= minSerial && t <= maxSerial {
			return FromSerial(t), true
		}
		return time.Time{}, false
	case int:
		return Parse(float64(t))
	case int64:
		return Parse(float64(t))
	case string:
		return parseString(strings.TrimSpace(t))
	default:
		return time.Time{}, false
	}
}

func parseString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Bare integers are spreadsheet serials that arrived as text.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n >= minSerial && n <= maxSerial {
			return FromSerial(n), true
		}
		return time.Time{}, false
	}

	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	// ISO YYYY-MM-DD regardless of locale.
	if len(m[1]) == 4 {
		return makeDate(c, b, a)
	}

	// Day-first default.
	if t, ok := makeDate(a, b, c); ok {
		return t, true
	}
	// MM/DD fallback only when a day-first reading is impossible.
	if b > 12 {
		return makeDate(b, a, c)
	}
	return time.Time{}, false
}

func makeDate(day, month, year int) (time.Time, bool) {
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. 31-02), which would silently shift
	// the date; reject instead.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}
