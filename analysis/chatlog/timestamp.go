package chatlog

import (
	"strconv"
	"strings"
	"time"
)

// maxYearsAhead bounds how far past the current year an export timestamp may be.
const maxYearsAhead = 5

// ParseTimestamp resolves a day-first date, a clock string and an optional am/pm marker
// into a UTC instant. It reports false for anything it cannot resolve exactly.
func ParseTimestamp(date, clock, ampm string) (time.Time, bool) {
	return parseTimestampAt(date, clock, ampm, time.Now())
}

func parseTimestampAt(date, clock, ampm string, now time.Time) (time.Time, bool) {
	if date == "" || clock == "" {
		return time.Time{}, false
	}

	timeParts := strings.Split(clock, ":")
	if len(timeParts) < 2 {
		return time.Time{}, false
	}
	hour, ok := atoi(timeParts[0])
	if !ok {
		return time.Time{}, false
	}
	minute, ok := atoi(timeParts[1])
	if !ok {
		return time.Time{}, false
	}
	second := 0
	if len(timeParts) > 2 {
		if second, ok = atoi(timeParts[2]); !ok {
			return time.Time{}, false
		}
	}

	hour = applyMeridiem(hour, ampm)

	dateParts := strings.FieldsFunc(date, func(r rune) bool { return r == '/' || r == '.' })
	if len(dateParts) != 3 || strings.Count(date, "/")+strings.Count(date, ".") != 2 {
		return time.Time{}, false
	}
	day, ok := atoi(dateParts[0])
	if !ok {
		return time.Time{}, false
	}
	month, ok := atoi(dateParts[1])
	if !ok {
		return time.Time{}, false
	}
	year, ok := atoi(dateParts[2])
	if !ok {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}

	switch {
	case year < 2000 || year > now.Year()+maxYearsAhead,
		month < 1 || month > 12,
		day < 1 || day > 31,
		hour < 0 || hour > 23,
		minute < 0 || minute > 59,
		second < 0 || second > 59:
		return time.Time{}, false
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day {
		return time.Time{}, false
	}
	return ts, true
}

func applyMeridiem(hour int, ampm string) int {
	if ampm == "" {
		return hour
	}
	marker := strings.Map(func(r rune) rune {
		if r == '.' || isSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(ampm))

	switch {
	case (marker == "pm" || marker == "p") && hour >= 1 && hour <= 11:
		return hour + 12
	case (marker == "am" || marker == "a") && hour == 12:
		return 0
	}
	return hour
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
