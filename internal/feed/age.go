package feed

import (
	"fmt"
	"time"
)

// absoluteDateLayout is used for notifications a week old or more.
const absoluteDateLayout = "Jan 2, 2006"

// RelativeAge renders how long ago t was, relative to now. Each bucket's
// lower bound belongs to it: exactly 60 minutes is "1h ago", exactly 24
// hours is "1d ago" and exactly 7 days falls through to the date.
func RelativeAge(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.Local().Format(absoluteDateLayout)
	}
}
