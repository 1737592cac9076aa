package announce

import (
	"time"

	"github.com/roomops/herald/internal/schedule"
	"github.com/roomops/herald/pkg/utils"
	"github.com/sirupsen/logrus"
)

// StartupNotifier logs the loaded schedule shortly after boot, once the
// registry is fully populated.
type StartupNotifier struct {
	registry     *schedule.Registry
	logger       *logrus.Logger
	initialDelay time.Duration
}

func NewStartupNotifier(registry *schedule.Registry, logger *logrus.Logger) *StartupNotifier {
	return &StartupNotifier{
		registry:     registry,
		logger:       logger,
		initialDelay: 2 * time.Second,
	}
}

func (n *StartupNotifier) NotifyStartup() {
	time.Sleep(n.initialDelay)

	statuses := n.registry.Snapshot()
	n.logger.Infof("=== Scheduled announcements (%d) ===", len(statuses))

	for _, status := range statuses {
		n.logger.Infof("  %s (%s), next run in %s",
			DisplayName(status.Name),
			status.Schedule,
			utils.FormatDuration(time.Until(status.NextRun)))
	}
}
