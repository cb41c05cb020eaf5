package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
	}{
		{"today", TimeframeToday},
		{"WEEK", TimeframeWeek},
		{" month ", TimeframeMonth},
		{"rolling90", TimeframeRolling90},
		{"all", TimeframeRolling90},
	}
	for _, tt := range tests {
		got, err := ParseTimeframe(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseTimeframe("year")
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
}

func TestTimeframeWindow(t *testing.T) {
	today := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		tf   Timeframe
		from time.Time
	}{
		{TimeframeToday, today},
		{TimeframeWeek, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)},
		{TimeframeMonth, time.Date(2024, 12, 17, 0, 0, 0, 0, time.UTC)},
		{TimeframeRolling90, time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			from, to := tt.tf.Window(today)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, today, to)
			assert.Len(t, DaysBetween(from, to), tt.tf.Days())
		})
	}
}

func TestCalendarDay(t *testing.T) {
	loc := newYork(t)

	// 03:30 UTC on the 16th is still the evening of the 15th in New York.
	got := CalendarDay(time.Date(2025, 1, 16, 3, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestDayBounds(t *testing.T) {
	loc := newYork(t)

	t.Run("standard day", func(t *testing.T) {
		start, end := DayBounds(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), loc)
		assert.Equal(t, time.Date(2025, 1, 15, 5, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 1, 16, 5, 0, 0, 0, time.UTC), end)
	})

	t.Run("spring forward is 23 hours", func(t *testing.T) {
		start, end := DayBounds(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), loc)
		assert.Equal(t, 23*time.Hour, end.Sub(start))
	})
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	days := DaysBetween(from, to)
	require.Len(t, days, 4)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), days[2])

	assert.Empty(t, DaysBetween(to, from))
}

func TestToday_UsesClock(t *testing.T) {
	loc := newYork(t)
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 7, 4, 2, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), Today(loc))
}
