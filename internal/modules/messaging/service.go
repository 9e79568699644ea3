package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/realtime"
	"github.com/google/uuid"
)

// Service is the Conversation Engine.
type Service interface {
	Send(ctx context.Context, senderID string, in SendInput) (*MessageView, error)
	ListConversations(ctx context.Context, userID string, f ConversationFilter) ([]ConversationSummary, int, error)
	OpenConversation(ctx context.Context, userID, conversationID string) ([]MessageView, error)
	MarkRead(ctx context.Context, messageID, userID string) error
	Archive(ctx context.Context, userID, conversationID string) error
	Unarchive(ctx context.Context, userID, conversationID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// Directory resolves user accounts.
type Directory interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// Notifier is the part of the notification port used for messages.
type Notifier interface {
	QueueEmail(ctx context.Context, e notification.Email)
	Push(ctx context.Context, channelKey, event string, payload any)
}

type SendInput struct {
	RecipientID     string
	Subject         string
	Content         string
	ParentMessageID string
}

type service struct {
	repo      Repository
	users     Directory
	notifier  Notifier
	templates *templates.Engine
	logger    *slog.Logger
	config    *config.Config
	now       func() time.Time
}

type Config struct {
	Repo      Repository
	Users     Directory
	Notifier  Notifier
	Templates *templates.Engine
	Logger    *slog.Logger
	Config    *config.Config
	Now       func() time.Time
}

func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      cfg.Repo,
		users:     cfg.Users,
		notifier:  cfg.Notifier,
		templates: cfg.Templates,
		logger:    cfg.Logger,
		config:    cfg.Config,
		now:       now,
	}
}

// Send stores a message. A reply joins the conversation of its parent; any
// other message opens a conversation whose id is its own, patched in after
// the insert.
func (s *service) Send(ctx context.Context, senderID string, in SendInput) (*MessageView, error) {
	if uuid.Validate(in.RecipientID) != nil {
		return nil, ErrRecipientNotFound
	}
	recipient, err := s.users.GetUser(ctx, in.RecipientID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		s.logger.Error("failed to load message recipient", "recipient_id", in.RecipientID, "error", err)
		return nil, apperror.Internal(err)
	}
	sender, err := s.users.GetUser(ctx, senderID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load message sender", "sender_id", senderID, "error", err)
		return nil, apperror.Internal(err)
	}

	m := &Message{
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Subject:     strings.TrimSpace(in.Subject),
		Content:     in.Content,
	}
	if in.ParentMessageID != "" {
		parent, err := s.parent(ctx, senderID, in.ParentMessageID)
		if err != nil {
			return nil, err
		}
		m.ParentMessageID = &parent.ID
		m.ConversationID = parent.ConversationID
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		s.logger.Error("failed to insert message", "sender_id", senderID, "error", err)
		return nil, apperror.Internal(err)
	}
	if m.ConversationID == nil {
		if err := s.repo.SetConversation(ctx, m.ID, m.ID); err != nil {
			s.logger.Error("failed to open conversation", "message_id", m.ID, "error", err)
			return nil, apperror.Internal(err)
		}
		m.ConversationID = &m.ID
	}

	view := &MessageView{Message: *m, Sender: participant(sender), Recipient: participant(recipient)}
	s.logger.Info("message sent", "message_id", m.ID, "conversation_id", *m.ConversationID)

	s.notifier.Push(ctx, realtime.UserChannel(recipient.ID), EventNewMessage, view.DTO())
	s.pushUnreadCount(ctx, recipient.ID)
	s.emailRecipient(ctx, recipient, sender, m.Subject)
	return view, nil
}

// parent loads the message being replied to. The sender must take part in it.
func (s *service) parent(ctx context.Context, senderID, id string) (*Message, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrParentNotFound
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, apperror.Internal(err)
	}
	if p.SenderID != senderID && p.RecipientID != senderID {
		return nil, ErrNotParticipant
	}
	return p, nil
}

func participant(u *user.User) Participant {
	return Participant{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Role: string(u.Role)}
}

func (s *service) emailRecipient(ctx context.Context, recipient, sender *user.User, subject string) {
	email, err := notification.Compose(ctx, s.templates, templates.NewMessage, recipient.Email, templates.NewMessageData{
		RecipientFirstName: recipient.FirstName,
		SenderName:         strings.TrimSpace(sender.FirstName + " " + sender.LastName),
		Subject:            subject,
		MessagesURL:        s.config.Server.FrontendURL + "/espace-personnel/connexion",
	})
	if err != nil {
		s.logger.Error("failed to render new message email", "error", err)
		return
	}
	s.notifier.QueueEmail(ctx, email)
}

func (s *service) pushUnreadCount(ctx context.Context, userID string) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to count unread messages", "user_id", userID, "error", err)
		return
	}
	s.notifier.Push(ctx, realtime.UserChannel(userID), EventUnreadCount, map[string]int{"count": n})
}

func (s *service) ListConversations(ctx context.Context, userID string, f ConversationFilter) ([]ConversationSummary, int, error) {
	rows, total, err := s.repo.ListConversations(ctx, userID, f)
	if err != nil {
		s.logger.Error("failed to list conversations", "user_id", userID, "box", f.Box, "error", err)
		return nil, 0, apperror.Internal(err)
	}
	return rows, total, nil
}

// OpenConversation returns the thread and marks what the user received as read.
func (s *service) OpenConversation(ctx context.Context, userID, conversationID string) ([]MessageView, error) {
	if uuid.Validate(conversationID) != nil {
		return nil, ErrConversationNotFound
	}
	thread, err := s.repo.Thread(ctx, userID, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(thread) == 0 {
		return nil, ErrConversationNotFound
	}

	n, err := s.repo.MarkThreadRead(ctx, userID, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if n > 0 {
		for i := range thread {
			if thread[i].RecipientID == userID {
				thread[i].IsRead = true
			}
		}
		s.pushUnreadCount(ctx, userID)
	}
	return thread, nil
}

func (s *service) MarkRead(ctx context.Context, messageID, userID string) error {
	if uuid.Validate(messageID) != nil {
		return ErrMessageNotFound
	}
	m, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return apperror.Internal(err)
	}
	if m.RecipientID != userID {
		return ErrNotRecipient
	}
	if err := s.repo.MarkRead(ctx, messageID); err != nil {
		return apperror.Internal(err)
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *service) Archive(ctx context.Context, userID, conversationID string) error {
	if uuid.Validate(conversationID) != nil {
		return ErrConversationNotFound
	}
	if err := s.repo.Archive(ctx, userID, conversationID, s.now()); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) Unarchive(ctx context.Context, userID, conversationID string) error {
	if uuid.Validate(conversationID) != nil {
		return ErrConversationNotFound
	}
	if err := s.repo.Unarchive(ctx, userID, conversationID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}
