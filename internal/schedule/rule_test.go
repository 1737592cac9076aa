package schedule

import (
	"testing"
	"time"

	"github.com/roomops/herald/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalRuleNext(t *testing.T) {
	rule := Every(90 * time.Second)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(90*time.Second), rule.Next(now))
	assert.Equal(t, "every 1m30s", rule.String())
}

func TestWeeklyRuleNext(t *testing.T) {
	rule, err := Weekly([]time.Weekday{time.Thursday, time.Monday}, calendar.TimeOfDay{Hour: 17, Minute: 0})
	require.NoError(t, err)
	assert.Equal(t, "0 17 * * MON,THU", rule.String())

	// 2024-03-04 is a Monday.
	monMorning := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC), rule.Next(monMorning))

	monEvening := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 7, 17, 0, 0, 0, time.UTC), rule.Next(monEvening))
}

func TestWeeklyRuleRequiresDays(t *testing.T) {
	_, err := Weekly(nil, calendar.TimeOfDay{Hour: 12})
	assert.Error(t, err)
}

func TestParseCronInvalid(t *testing.T) {
	_, err := ParseCron("not a cron spec")
	assert.Error(t, err)
}
