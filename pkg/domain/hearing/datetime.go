package hearing

import (
	"fmt"
	"strings"
	"time"
)

// Display layouts used when hearings are entered through the UI.
const (
	DateLayout = "Jan 02, 2006"
	TimeLayout = "03:04 PM"
)

var (
	dateLayouts = []string{DateLayout, "Jan 2, 2006", "January 2, 2006", "2006-01-02", "01/02/2006"}
	timeLayouts = []string{TimeLayout, "3:04 PM", "03:04PM", "3:04PM", "15:04"}
)

// ParseDateTime combines the display date and time strings into an absolute
// time in loc. The primary layouts are tried first.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	date = strings.TrimSpace(date)
	clock = strings.ToUpper(strings.TrimSpace(clock))
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			if t, err := time.ParseInLocation(dl+" "+tl, date+" "+clock, loc); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date/time %q %q, expected e.g. %q %q", date, clock, DateLayout, TimeLayout)
}

// FormatDate renders t with the display date layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTime renders t with the display time layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
