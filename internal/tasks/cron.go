package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stone-age-io/links-health-monitor/internal/config"
)

// cronParser accepts six-field expressions with a leading seconds field
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidCron reports whether expr is a usable six-field cron expression
func ValidCron(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	_, err := cronParser.Parse(expr)
	return err == nil
}

// EffectiveCron returns the customised expression when it is enabled and
// valid, and the default expression otherwise
func EffectiveCron(enabled bool, custom string) string {
	if enabled && ValidCron(custom) {
		return custom
	}
	return config.DefaultCron
}

// Next returns the first activation of expr strictly after from, in loc
func Next(expr string, from time.Time, loc *time.Location) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if loc != nil {
		from = from.In(loc)
	}
	return sched.Next(from), nil
}
