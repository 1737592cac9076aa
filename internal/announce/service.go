package announce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roomops/herald/internal/blacklist"
	"github.com/roomops/herald/internal/gitter"
	"github.com/roomops/herald/internal/schedule"
	"github.com/roomops/herald/pkg/calendar"
	"github.com/roomops/herald/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MessageSender posts a message to a room.
type MessageSender interface {
	SendMessage(ctx context.Context, roomID, text string) (*gitter.Message, error)
}

// Service turns configured announcements into registry jobs that post to
// the room. A blacklisted date silences the post for that day; the job's
// next run advances either way.
type Service struct {
	sender    MessageSender
	blacklist *blacklist.Store
	logger    *logrus.Logger
	roomID    string
	now       func() time.Time
}

func NewService(sender MessageSender, store *blacklist.Store, logger *logrus.Logger, roomID string) *Service {
	return &Service{
		sender:    sender,
		blacklist: store,
		logger:    logger,
		roomID:    roomID,
		now:       time.Now,
	}
}

// RegisterJobs registers one job per interval announcement and one per
// (weekly announcement, time) pair, so "mon,thu at 10:00 and 17:00" becomes
// two jobs named "<name>@10:00" and "<name>@17:00".
func (s *Service) RegisterJobs(registry *schedule.Registry, announcements []types.Announcement) error {
	for _, ann := range announcements {
		if ann.Every != "" {
			interval, err := time.ParseDuration(ann.Every)
			if err != nil {
				return fmt.Errorf("announcement %q: invalid interval: %w", ann.Name, err)
			}

			if err := s.registerOne(registry, ann.Name, schedule.Every(interval), ann.Message); err != nil {
				return err
			}
			continue
		}

		days := make([]time.Weekday, 0, len(ann.Days))
		for _, name := range ann.Days {
			day, err := calendar.ParseWeekday(name)
			if err != nil {
				return fmt.Errorf("announcement %q: %w", ann.Name, err)
			}
			days = append(days, day)
		}

		for _, value := range ann.Times {
			at, err := calendar.ParseTimeOfDay(value)
			if err != nil {
				return fmt.Errorf("announcement %q: %w", ann.Name, err)
			}

			rule, err := schedule.Weekly(days, at)
			if err != nil {
				return fmt.Errorf("announcement %q: %w", ann.Name, err)
			}

			name := fmt.Sprintf("%s@%s", ann.Name, at)
			if err := s.registerOne(registry, name, rule, ann.Message); err != nil {
				return err
			}
		}
	}

	s.logger.Infof("Registered %d announcement job(s)", registry.Len())
	return nil
}

func (s *Service) registerOne(registry *schedule.Registry, name string, rule schedule.Rule, message string) error {
	job, err := registry.Register(name, rule, s.postTask(name, message))
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"schedule": rule.String(),
		"next_run": job.NextRun.Format(time.RFC3339),
	}).Info("Announcement scheduled")

	return nil
}

// postTask builds the unit of work for one announcement job.
func (s *Service) postTask(name, message string) schedule.TaskFunc {
	return func() error {
		now := s.now()
		if s.blacklist.Contains(now) {
			s.logger.WithFields(logrus.Fields{
				"job":  name,
				"date": now.Format(blacklist.DateLayout),
			}).Info("Date is blacklisted, skipping announcement")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg, err := s.sender.SendMessage(ctx, s.roomID, message)
		if err != nil {
			s.logPostFailure(name, err)
			return err
		}

		s.logger.WithFields(logrus.Fields{
			"job":        name,
			"message_id": msg.ID,
		}).Info("Announcement posted")
		return nil
	}
}

func (s *Service) logPostFailure(name string, err error) {
	fields := logrus.Fields{"job": name}

	var statusErr *gitter.StatusError
	if errors.As(err, &statusErr) {
		fields["status"] = statusErr.Code
		switch {
		case statusErr.Code >= http.StatusInternalServerError:
			s.logger.WithFields(fields).Error("Server error while posting announcement")
		case statusErr.Code == http.StatusUnauthorized:
			s.logger.WithFields(fields).Error("Authentication failed, check the API token")
		case statusErr.Code == http.StatusNotFound:
			s.logger.WithFields(fields).Errorf("Room endpoint not found: %s", statusErr.URL)
		case statusErr.Code >= http.StatusBadRequest:
			s.logger.WithFields(fields).Error("Bad request while posting announcement")
		default:
			s.logger.WithFields(fields).Errorf("Unexpected response while posting announcement: %d", statusErr.Code)
		}
		return
	}

	fields["error"] = err.Error()
	s.logger.WithFields(fields).Error("Failed to reach the room API")
}

// DisplayName renders a job name for humans: "standup-reminder@17:00"
// becomes "Standup Reminder @ 17:00".
func DisplayName(name string) string {
	base, at, hasAt := strings.Cut(name, "@")
	title := cases.Title(language.English).String(strings.ReplaceAll(base, "-", " "))
	if hasAt {
		return fmt.Sprintf("%s @ %s", title, at)
	}
	return title
}
