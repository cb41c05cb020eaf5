package domain

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a trailing window of calendar days ending today.
type Timeframe string

const (
	TimeframeToday     Timeframe = "today"
	TimeframeWeek      Timeframe = "week"
	TimeframeMonth     Timeframe = "month"
	TimeframeRolling90 Timeframe = "rolling90"
)

// timeframeAliasAll is the legacy label for the longest window.
const timeframeAliasAll = "all"

// Timeframes lists every summary window, shortest first.
var Timeframes = []Timeframe{TimeframeToday, TimeframeWeek, TimeframeMonth, TimeframeRolling90}

// ParseTimeframe validates a timeframe label. "all" is accepted as an alias
// of rolling90.
func ParseTimeframe(s string) (Timeframe, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	if label == timeframeAliasAll {
		return TimeframeRolling90, nil
	}
	for _, tf := range Timeframes {
		if Timeframe(label) == tf {
			return tf, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

// Days is the window length in calendar days, today included.
func (tf Timeframe) Days() int {
	switch tf {
	case TimeframeToday:
		return 1
	case TimeframeWeek:
		return 7
	case TimeframeMonth:
		return 30
	case TimeframeRolling90:
		return 90
	default:
		return 0
	}
}

// Window returns the inclusive first and last calendar day of the timeframe
// when today is the given calendar day.
func (tf Timeframe) Window(today time.Time) (from, to time.Time) {
	return today.AddDate(0, 0, -(tf.Days() - 1)), today
}

// CalendarDay returns the calendar date of t as observed in loc, encoded as
// midnight UTC. Calendar days compare and serialize independently of offsets.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the half-open UTC interval [start, end) covering the
// calendar day in loc. DST transitions make some days 23 or 25 hours long.
func DayBounds(day time.Time, loc *time.Location) (start, end time.Time) {
	y, m, d := day.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// DaysBetween lists every calendar day from..to inclusive. It returns nil when
// to is before from.
func DaysBetween(from, to time.Time) []time.Time {
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
