package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/roomops/herald/pkg/calendar"
)

// Rule computes when a job should run next.
type Rule interface {
	// Next returns the first run time strictly after the given instant.
	Next(after time.Time) time.Time
	String() string
}

// IntervalRule repeats on a fixed interval: next run is always the
// reference instant plus the interval, with no calendar arithmetic.
type IntervalRule struct {
	Interval time.Duration
}

// Every builds a fixed-interval rule.
func Every(interval time.Duration) *IntervalRule {
	return &IntervalRule{Interval: interval}
}

func (r *IntervalRule) Next(after time.Time) time.Time {
	return after.Add(r.Interval)
}

func (r *IntervalRule) String() string {
	return fmt.Sprintf("every %s", r.Interval)
}

// cronRule wraps a parsed cron schedule. Weekly day/time announcements are
// expressed this way so the cron library does the calendar walking.
type cronRule struct {
	spec     string
	schedule cron.Schedule
}

// Weekly builds a rule that fires at the given wall-clock time on each of
// the given weekdays.
func Weekly(days []time.Weekday, at calendar.TimeOfDay) (Rule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("weekly rule requires at least one day")
	}

	sorted := make([]time.Weekday, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	names := make([]string, 0, len(sorted))
	for _, day := range sorted {
		names = append(names, calendar.CronDay(day))
	}

	spec := fmt.Sprintf("%d %d * * %s", at.Minute, at.Hour, strings.Join(names, ","))
	return ParseCron(spec)
}

// ParseCron builds a rule from a standard five-field cron expression.
func ParseCron(spec string) (Rule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &cronRule{spec: spec, schedule: schedule}, nil
}

func (r *cronRule) Next(after time.Time) time.Time {
	return r.schedule.Next(after)
}

func (r *cronRule) String() string {
	return r.spec
}
