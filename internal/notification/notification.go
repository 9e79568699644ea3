// Package notification is the outbound port of the application: transactional
// email, delivered either synchronously or through the asynq outbox, and
// real-time events pushed to connected users.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSendEmail is the asynq task type of a queued email.
const TypeSendEmail = "email:send"

// QueueNotifications is the asynq queue email tasks are enqueued on.
const QueueNotifications = "notifications"

// Attachment references a file on local disk.
type Attachment struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
}

// Email is one outbound message. It is also the payload of an email task.
type Email struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Sender delivers an email through a provider.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Publisher pushes an event on a channel key such as "user:<id>".
type Publisher interface {
	Publish(ctx context.Context, channelKey, event string, payload any) error
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Config struct {
	Logger    *slog.Logger
	Sender    Sender
	Publisher Publisher
	// Queue is optional. Without it QueueEmail sends in a background goroutine.
	Queue Enqueuer
}

// Service implements the notification port used by every module.
type Service struct {
	log    *slog.Logger
	sender Sender
	pub    Publisher
	queue  Enqueuer
}

func NewService(cfg Config) *Service {
	return &Service{
		log:    cfg.Logger,
		sender: cfg.Sender,
		pub:    cfg.Publisher,
		queue:  cfg.Queue,
	}
}

// SendEmail delivers e now and returns the provider error. Use it when the
// email is the purpose of the request.
func (s *Service) SendEmail(ctx context.Context, e Email) error {
	if err := s.sender.Send(ctx, e); err != nil {
		s.log.Error("email delivery failed", "to", e.To, "subject", e.Subject, "error", err)
		return err
	}
	s.log.Info("email sent", "to", e.To, "subject", e.Subject)
	return nil
}

// QueueEmail schedules e for at-least-once delivery. Failures are logged only.
func (s *Service) QueueEmail(ctx context.Context, e Email) {
	if s.queue == nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = s.SendEmail(ctx, e)
		}()
		return
	}

	task, err := NewEmailTask(e)
	if err != nil {
		s.log.Error("build email task", "to", e.To, "error", err)
		return
	}
	info, err := s.queue.EnqueueContext(ctx, task)
	if err != nil {
		s.log.Error("enqueue email task", "to", e.To, "subject", e.Subject, "error", err)
		return
	}
	s.log.Debug("email task enqueued", "task_id", info.ID, "queue", info.Queue)
}

// Push publishes event to channelKey. Nobody listening is not an error, and
// publish failures are logged only.
func (s *Service) Push(ctx context.Context, channelKey, event string, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, channelKey, event, payload); err != nil {
		s.log.Warn("push failed", "channel", channelKey, "event", event, "error", err)
	}
}

// NewEmailTask wraps e in an asynq task.
func NewEmailTask(e Email) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendEmail, payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// HandleEmailTask is the asynq handler for TypeSendEmail.
func (s *Service) HandleEmailTask(ctx context.Context, t *asynq.Task) error {
	var e Email
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if e.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}
	return s.SendEmail(ctx, e)
}
