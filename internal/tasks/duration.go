package tasks

import (
	"fmt"
	"strings"
	"time"
)

// Duration display strings
const (
	ShortestDuration = "1秒"
	TimePassed       = "时间已过"
)

// TimeLayout renders task timestamps for the console
const TimeLayout = "2006年01月02日 15时04分05秒"

// FormatDuration renders d as days/hours/minutes/seconds, omitting zero parts.
// Sub-second durations render as "1秒" and negative ones as "时间已过".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return TimePassed
	}

	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%d天", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%d时", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%d分", minutes)
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "%d秒", seconds)
	}

	if b.Len() == 0 {
		return ShortestDuration
	}
	return b.String()
}

// FormatTime renders t in loc using TimeLayout. The zero time renders as "".
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimeLayout)
}
