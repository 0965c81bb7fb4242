package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse_DayFirst(t *testing.T) {
	got, ok := Parse("05-03-24")
	require.True(t, ok)
	require.Equal(t, date(2024, time.March, 5), got)

	got, ok = Parse("12/06/2024")
	require.True(t, ok)
	require.Equal(t, date(2024, time.June, 12), got)

	got, ok = Parse("31.12.2023")
	require.True(t, ok)
	require.Equal(t, date(2023, time.December, 31), got)
}

func TestParse_ISO(t *testing.T) {
	got, ok := Parse("2024-03-05")
	require.True(t, ok)
	require.Equal(t, date(2024, time.March, 5), got)

	got, ok = Parse("2024-03-05T10:30:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC), got)
}

func TestParse_MonthFirstFallbackOnlyWhenDayFirstImpossible(t *testing.T) {
	// 15 cannot be a month, so 03/15 must be March 15th
	got, ok := Parse("03/15/2024")
	require.True(t, ok)
	require.Equal(t, date(2024, time.March, 15), got)

	// both readings possible: day-first wins
	got, ok = Parse("03/04/2024")
	require.True(t, ok)
	require.Equal(t, date(2024, time.April, 3), got)
}

func TestParse_SpreadsheetSerial(t *testing.T) {
	got, ok := Parse(45000.0)
	require.True(t, ok)
	require.Equal(t, date(2023, time.March, 15), got)

	// serial that arrived as text
	got, ok = Parse("45000")
	require.True(t, ok)
	require.Equal(t, date(2023, time.March, 15), got)

	_, ok = Parse(3.0)
	require.False(t, ok)
}

func TestParse_NativeTime(t *testing.T) {
	now := time.Now()
	got, ok := Parse(now)
	require.True(t, ok)
	require.Equal(t, now, got)

	_, ok = Parse(time.Time{})
	require.False(t, ok)
}

func TestParse_RejectsGarbage(t *testing.T) {
	for _, v := range []any{"not a date", "", nil, "99-99-99", "31-02-2024", true} {
		_, ok := Parse(v)
		require.False(t, ok, "value %v", v)
	}
}

func TestFromSerial_FractionIsTimeOfDay(t *testing.T) {
	got := FromSerial(45000.5)
	require.Equal(t, time.Date(2023, time.March, 15, 12, 0, 0, 0, time.UTC), got)
}
