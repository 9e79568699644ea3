package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePurgeExpired = "maintenance:purge_expired"
	QueueMaintenance = "maintenance"
)

// Purger deletes expired activation codes and password reset tokens.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (codes, tokens int64, err error)
}

func newPurgeTask() *asynq.Task {
	return asynq.NewTask(TypePurgeExpired, nil,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
		asynq.Unique(10*time.Minute),
	)
}

func handlePurgeExpired(logger *slog.Logger, p Purger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		codes, tokens, err := p.PurgeExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("purge expired credentials: %w", err)
		}
		if codes > 0 || tokens > 0 {
			logger.Info("purged expired credentials", "activation_codes", codes, "reset_tokens", tokens)
		}
		return nil
	}
}
