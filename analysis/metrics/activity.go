package metrics

import "time"

// Activity is the hour-of-day and day-of-week distribution of messages, in UTC.
type Activity struct {
	Hourly      [24]int `json:"hourly"`
	Weekday     [7]int  `json:"weekday"` // index 0 is Sunday
	PeakHour    int     `json:"peakHour"`
	PeakWeekday string  `json:"peakWeekday"`
}

func newActivity() Activity {
	return Activity{PeakHour: -1}
}

func (a *Activity) add(ts time.Time) {
	ts = ts.UTC()
	a.Hourly[ts.Hour()]++
	a.Weekday[ts.Weekday()]++
}

// finish picks the busiest hour and weekday; ties go to the earliest slot.
func (a *Activity) finish() {
	a.PeakHour = -1
	best := 0
	for h, n := range a.Hourly {
		if n > best {
			best, a.PeakHour = n, h
		}
	}

	a.PeakWeekday = ""
	best = 0
	for d, n := range a.Weekday {
		if n > best {
			best, a.PeakWeekday = n, time.Weekday(d).String()
		}
	}
}
