package blacklist

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DateLayout is the canonical on-disk form of a blacklisted date.
const DateLayout = "2006-01-02"

// ErrAlreadyListed is returned when a date is blacklisted twice.
var ErrAlreadyListed = errors.New("date already blacklisted")

// Store is a YAML-backed set of dates on which no announcements are
// posted. The file is a plain list of ISO dates and may be absent or
// empty. Both the runner and the stream listener touch it, hence the
// mutex.
type Store struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
	dates  map[string]struct{}
}

func NewStore(path string, logger *logrus.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		dates:  make(map[string]struct{}),
	}
}

// Load reads the blacklist file. A missing or empty file yields an empty
// set; an unparseable file or an invalid date is an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debugf("Blacklist file %s not found, starting empty", s.path)
			return nil
		}
		return fmt.Errorf("failed to read blacklist file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var listed []string
	if err := yaml.Unmarshal(data, &listed); err != nil {
		return fmt.Errorf("failed to parse blacklist file: %w", err)
	}

	dates := make(map[string]struct{}, len(listed))
	for _, value := range listed {
		if _, err := time.Parse(DateLayout, value); err != nil {
			return fmt.Errorf("invalid blacklist date %q: %w", value, err)
		}
		dates[value] = struct{}{}
	}

	s.dates = dates
	s.logger.Infof("Loaded %d blacklisted date(s) from %s", len(dates), s.path)
	return nil
}

// Contains reports whether the calendar date of t is blacklisted.
func (s *Store) Contains(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.dates[t.Format(DateLayout)]
	return found
}

// Add blacklists a date and persists the full list. It fails with
// ErrAlreadyListed when the date is already present.
func (s *Store) Add(day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := day.Format(DateLayout)
	if _, found := s.dates[key]; found {
		return fmt.Errorf("%s: %w", key, ErrAlreadyListed)
	}

	s.dates[key] = struct{}{}
	if err := s.persist(); err != nil {
		delete(s.dates, key)
		return err
	}

	s.logger.Infof("Blacklisted %s", key)
	return nil
}

// Dates returns the blacklisted dates in ascending order.
func (s *Store) Dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	listed := make([]string, 0, len(s.dates))
	for date := range s.dates {
		listed = append(listed, date)
	}
	sort.Strings(listed)
	return listed
}

func (s *Store) persist() error {
	listed := make([]string, 0, len(s.dates))
	for date := range s.dates {
		listed = append(listed, date)
	}
	sort.Strings(listed)

	data, err := yaml.Marshal(listed)
	if err != nil {
		return fmt.Errorf("failed to encode blacklist: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blacklist file: %w", err)
	}

	return nil
}
