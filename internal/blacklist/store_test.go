package blacklist

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "blacklist.yml"), testLogger())

	require.NoError(t, store.Load())
	assert.Empty(t, store.Dates())
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	store := NewStore(path, testLogger())
	require.NoError(t, store.Load())
	assert.Empty(t, store.Dates())
}

func TestLoadInvalidDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yml")
	require.NoError(t, os.WriteFile(path, []byte("- 'next tuesday'\n"), 0o644))

	store := NewStore(path, testLogger())
	assert.Error(t, store.Load())
}

func TestAddAndContains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yml")
	store := NewStore(path, testLogger())
	require.NoError(t, store.Load())

	day := time.Date(2024, 12, 25, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.Add(day))

	// Any clock time on the same date matches.
	assert.True(t, store.Contains(time.Date(2024, 12, 25, 23, 59, 0, 0, time.UTC)))
	assert.False(t, store.Contains(day.AddDate(0, 0, 1)))
}

func TestAddDuplicate(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "blacklist.yml"), testLogger())
	require.NoError(t, store.Load())

	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(day))

	err := store.Add(day)
	assert.ErrorIs(t, err, ErrAlreadyListed)
	assert.Len(t, store.Dates(), 1)
}

func TestAddPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yml")

	store := NewStore(path, testLogger())
	require.NoError(t, store.Load())
	require.NoError(t, store.Add(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Add(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	reloaded := NewStore(path, testLogger())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"2024-01-01", "2024-12-25"}, reloaded.Dates())
}
