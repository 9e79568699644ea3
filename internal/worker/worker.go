// Package worker runs the asynq server that drains the email outbox and the
// scheduler that enqueues periodic maintenance.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/hibiken/asynq"
)

// asynqLogger routes asynq's logs to slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (a *asynqLogger) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *asynqLogger) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a *asynqLogger) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *asynqLogger) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }

func (a *asynqLogger) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// EmailHandler processes notification.TypeSendEmail tasks.
type EmailHandler interface {
	HandleEmailTask(ctx context.Context, t *asynq.Task) error
}

type Config struct {
	Redis       asynq.RedisConnOpt
	Concurrency int
	Logger      *slog.Logger
	Email       EmailHandler
	Purger      Purger
}

// Start runs the worker in the background and returns its stop function.
func Start(cfg Config) (stop func(), err error) {
	srv, mux := newServer(cfg)
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	cfg.Logger.Info("worker started", "concurrency", cfg.Concurrency)
	return srv.Shutdown, nil
}

func newServer(cfg Config) (*asynq.Server, *asynq.ServeMux) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			notification.QueueNotifications: 6,
			QueueMaintenance:                1,
		},
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(cfg.Logger)),
		Logger:          &asynqLogger{logger: cfg.Logger},
	})

	return srv, newMux(cfg)
}

func newMux(cfg Config) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeSendEmail, cfg.Email.HandleEmailTask)
	mux.HandleFunc(TypePurgeExpired, handlePurgeExpired(cfg.Logger, cfg.Purger))
	return mux
}

func makeErrorHandler(logger *slog.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		level := slog.LevelWarn
		if retried >= maxRetry {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "task failed",
			"type", task.Type(),
			"retry", retried,
			"max_retry", maxRetry,
			"error", err,
		)
	}
}
