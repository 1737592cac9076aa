package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopTask() error { return nil }

func TestRegisterDistinctNames(t *testing.T) {
	registry := NewRegistry()

	for i := 0; i < 5; i++ {
		_, err := registry.Register(fmt.Sprintf("job-%d", i), Every(time.Minute), noopTask)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, registry.Len())
}

func TestRegisterDuplicateName(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Register("ping", Every(time.Minute), noopTask)
	require.NoError(t, err)

	_, err = registry.Register("ping", Every(time.Hour), noopTask)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, registry.Len())
}

func TestDueJobsOrdering(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	late, err := registry.Register("late", Every(time.Minute), noopTask)
	require.NoError(t, err)
	early, err := registry.Register("early", Every(time.Minute), noopTask)
	require.NoError(t, err)
	future, err := registry.Register("future", Every(time.Minute), noopTask)
	require.NoError(t, err)

	late.NextRun = now.Add(-time.Second)
	early.NextRun = now.Add(-time.Minute)
	future.NextRun = now.Add(time.Hour)

	due := registry.DueJobs(now)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].Name)
	assert.Equal(t, "late", due[1].Name)
}

func TestDueJobsTieBreakByRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	first, err := registry.Register("first", Every(time.Minute), noopTask)
	require.NoError(t, err)
	second, err := registry.Register("second", Every(time.Minute), noopTask)
	require.NoError(t, err)

	first.NextRun = now
	second.NextRun = now

	due := registry.DueJobs(now)
	require.Len(t, due, 2)
	assert.Equal(t, "first", due[0].Name)
	assert.Equal(t, "second", due[1].Name)
}

func TestDueJobsExcludesFuture(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	job, err := registry.Register("ping", Every(time.Minute), noopTask)
	require.NoError(t, err)
	job.NextRun = now.Add(time.Nanosecond)

	assert.Empty(t, registry.DueJobs(now))

	job.NextRun = now
	assert.Len(t, registry.DueJobs(now), 1)
}

func TestMarkRunAdvancesInterval(t *testing.T) {
	registry := NewRegistry()
	t0 := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	job, err := registry.Register("ping", Every(60*time.Second), noopTask)
	require.NoError(t, err)
	job.NextRun = t0

	now := t0.Add(61 * time.Second)
	due := registry.DueJobs(now)
	require.Len(t, due, 1)
	assert.Equal(t, "ping", due[0].Name)

	registry.MarkRun(job, now)
	assert.Equal(t, now, job.LastRun)
	assert.Equal(t, t0.Add(121*time.Second), job.NextRun)
}

func TestMarkRunIdempotent(t *testing.T) {
	registry := NewRegistry()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	job, err := registry.Register("ping", Every(time.Minute), noopTask)
	require.NoError(t, err)

	registry.MarkRun(job, now)
	first := job.NextRun

	registry.MarkRun(job, now)
	assert.Equal(t, first, job.NextRun)
}

func TestSnapshot(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Register("ping", Every(time.Minute), noopTask)
	require.NoError(t, err)
	_, err = registry.Register("pong", Every(time.Hour), noopTask)
	require.NoError(t, err)

	statuses := registry.Snapshot()
	require.Len(t, statuses, 2)
	assert.Equal(t, "ping", statuses[0].Name)
	assert.Equal(t, "every 1m0s", statuses[0].Schedule)
	assert.Equal(t, "pong", statuses[1].Name)
	assert.True(t, statuses[0].LastRun.IsZero())
	assert.False(t, statuses[0].NextRun.IsZero())
}
