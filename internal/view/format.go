package view

import (
	"fmt"
	"time"

	"github.com/and161185/feedlog/internal/model"
)

// FormatDate renders a calendar date like "Jan 2, 2006".
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format("Jan 2, 2006")
}

// FormatTime renders an "HH:MM" wall clock in 12-hour form, e.g. "2:05 PM".
// Input that does not parse is returned unchanged.
func FormatTime(hhmm string) string {
	m, err := model.ParseClock(hhmm)
	if err != nil {
		return hhmm
	}
	h, mm := m/60, m%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, mm, suffix)
}

// FormatDuration renders minutes as "45m", "1h" or "1h 30m".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// CurrentDate is the local calendar date of now.
func CurrentDate(now time.Time) model.Date { return model.DateOf(now) }

// CurrentTime is the local wall clock of now as "HH:MM".
func CurrentTime(now time.Time) string { return now.Format(model.ClockLayout) }
