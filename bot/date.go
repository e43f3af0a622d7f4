package bot

import (
	"fmt"
	"strings"
	"time"
)

// InputDateLayout is the layout of the --date flag (DD-MM-YYYY).
const InputDateLayout = "02-01-2006"

// YearsBack is how far in the past the bot looks.
const YearsBack = 200

// YearsAgo returns the calendar day years before now, in now's location.
// A day that does not exist in the target month (29 February) is clamped to
// the month's last day.
func YearsAgo(now time.Time, years int) time.Time {
	y, m, d := now.Date()
	y -= years
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate reads a DD-MM-YYYY date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(InputDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want DD-MM-YYYY: %w", s, err)
	}
	return t, nil
}
