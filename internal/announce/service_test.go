package announce

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/roomops/herald/internal/blacklist"
	"github.com/roomops/herald/internal/gitter"
	"github.com/roomops/herald/internal/schedule"
	"github.com/roomops/herald/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendMessage(ctx context.Context, roomID, text string) (*gitter.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, text)
	return &gitter.Message{ID: "m-1", Text: text}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testStore(t *testing.T) *blacklist.Store {
	t.Helper()
	store := blacklist.NewStore(filepath.Join(t.TempDir(), "blacklist.yml"), testLogger())
	require.NoError(t, store.Load())
	return store
}

func TestRegisterJobsInterval(t *testing.T) {
	service := NewService(&fakeSender{}, testStore(t), testLogger(), "room-1")
	registry := schedule.NewRegistry()

	err := service.RegisterJobs(registry, []types.Announcement{
		{Name: "heartbeat", Message: "alive", Every: "90s"},
	})
	require.NoError(t, err)

	statuses := registry.Snapshot()
	require.Len(t, statuses, 1)
	assert.Equal(t, "heartbeat", statuses[0].Name)
	assert.Equal(t, "every 1m30s", statuses[0].Schedule)
}

func TestRegisterJobsWeeklyFanOut(t *testing.T) {
	service := NewService(&fakeSender{}, testStore(t), testLogger(), "room-1")
	registry := schedule.NewRegistry()

	err := service.RegisterJobs(registry, []types.Announcement{
		{
			Name:    "standup-reminder",
			Message: "standup!",
			Days:    []string{"monday", "thursday"},
			Times:   []string{"10:00", "17:00"},
		},
	})
	require.NoError(t, err)

	statuses := registry.Snapshot()
	require.Len(t, statuses, 2)
	assert.Equal(t, "standup-reminder@10:00", statuses[0].Name)
	assert.Equal(t, "standup-reminder@17:00", statuses[1].Name)
	assert.Equal(t, "0 10 * * MON,THU", statuses[0].Schedule)
}

func TestRegisterJobsDuplicateName(t *testing.T) {
	service := NewService(&fakeSender{}, testStore(t), testLogger(), "room-1")
	registry := schedule.NewRegistry()

	_, err := registry.Register("heartbeat", schedule.Every(time.Minute), func() error { return nil })
	require.NoError(t, err)

	err = service.RegisterJobs(registry, []types.Announcement{
		{Name: "heartbeat", Message: "alive", Every: "90s"},
	})
	assert.ErrorIs(t, err, schedule.ErrDuplicateName)
}

func TestPostTaskSendsMessage(t *testing.T) {
	sender := &fakeSender{}
	service := NewService(sender, testStore(t), testLogger(), "room-1")

	task := service.postTask("heartbeat", "alive")
	require.NoError(t, task())

	assert.Equal(t, []string{"alive"}, sender.sent)
}

func TestPostTaskSkipsBlacklistedDate(t *testing.T) {
	sender := &fakeSender{}
	store := testStore(t)
	service := NewService(sender, store, testLogger(), "room-1")

	today := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return today }
	require.NoError(t, store.Add(today))

	task := service.postTask("heartbeat", "alive")
	require.NoError(t, task())

	assert.Empty(t, sender.sent)
}

func TestPostTaskPropagatesErrors(t *testing.T) {
	sendErr := &gitter.StatusError{Code: http.StatusUnauthorized, URL: "https://api.example.com"}
	sender := &fakeSender{err: sendErr}
	service := NewService(sender, testStore(t), testLogger(), "room-1")

	task := service.postTask("heartbeat", "alive")
	err := task()

	var statusErr *gitter.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestPostTaskNetworkError(t *testing.T) {
	sender := &fakeSender{err: &gitter.NetworkError{URL: "https://api.example.com", Err: errors.New("connection refused")}}
	service := NewService(sender, testStore(t), testLogger(), "room-1")

	task := service.postTask("heartbeat", "alive")
	assert.Error(t, task())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Standup Reminder @ 17:00", DisplayName("standup-reminder@17:00"))
	assert.Equal(t, "Heartbeat", DisplayName("heartbeat"))
}
