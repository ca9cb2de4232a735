// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	settingsstore "github.com/tangra/visitortrack/internal/app/store/trackersettings"
	"go.uber.org/zap"
)

// RetentionSweepJob creates the daily job that deletes events older than
// the configured retention window. The window is re-read from settings on
// every run, so an admin change takes effect at the next sweep without a
// restart.
func RetentionSweepJob(events *eventstore.Store, settings *settingsstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "retention-sweep",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			cfg, err := settings.Get(ctx)
			if err != nil {
				return err
			}

			cutoff := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
			deleted, err := events.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("swept expired visit events",
					zap.Int64("deleted", deleted),
					zap.Int("retention_days", cfg.RetentionDays),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
