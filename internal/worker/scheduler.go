package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// PurgeSchedule is the cron spec of the expired credential purge.
const PurgeSchedule = "@every 15m"

// StartScheduler registers the periodic tasks and starts the scheduler.
func StartScheduler(opt asynq.RedisConnOpt, logger *slog.Logger) (stop func(), err error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.InfoLevel,
		Logger:   &asynqLogger{logger: logger},
	})

	entryID, err := scheduler.Register(PurgeSchedule, newPurgeTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register purge schedule: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info("scheduler started", "schedule", PurgeSchedule, "entry_id", entryID)
	return scheduler.Shutdown, nil
}
