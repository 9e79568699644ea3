package messaging

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	adaID   = "0190c6a4-0000-7000-8000-00000000000a"
	graceID = "0190c6a4-0000-7000-8000-00000000000b"
	alanID  = "0190c6a4-0000-7000-8000-00000000000c"
)

// memRepo is an in-memory Repository. It resolves participants through the
// same directory as the service.
type memRepo struct {
	mu       sync.Mutex
	now      func() time.Time
	users    *stubDirectory
	messages []*Message
	archived map[[2]string]bool
	seq      int64
}

func newMemRepo(now func() time.Time, users *stubDirectory) *memRepo {
	return &memRepo{now: now, users: users, archived: map[[2]string]bool{}}
}

func (m *memRepo) Insert(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	msg.ID = uuid.NewString()
	msg.Seq = m.seq
	msg.CreatedAt = m.now()
	msg.UpdatedAt = msg.CreatedAt
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memRepo) SetConversation(_ context.Context, id, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.ConversationID = &conversationID
			return nil
		}
	}
	return ErrMessageNotFound
}

func (m *memRepo) FindByID(_ context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (m *memRepo) view(msg *Message) MessageView {
	s := m.users.users[msg.SenderID]
	r := m.users.users[msg.RecipientID]
	return MessageView{Message: *msg, Sender: participant(s), Recipient: participant(r)}
}

func (m *memRepo) FindView(_ context.Context, id string) (*MessageView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			v := m.view(msg)
			return &v, nil
		}
	}
	return nil, ErrMessageNotFound
}

func newer(a, b *Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Seq > b.Seq
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (m *memRepo) ListConversations(_ context.Context, userID string, f ConversationFilter) ([]ConversationSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := map[string]*ConversationSummary{}
	latest := map[string]*Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == nil {
			continue
		}
		switch f.Box {
		case BoxInbox:
			if msg.RecipientID != userID {
				continue
			}
		case BoxSent:
			if msg.SenderID != userID {
				continue
			}
		default:
			if msg.SenderID != userID && msg.RecipientID != userID {
				continue
			}
		}
		archived := m.archived[[2]string{userID, *msg.ConversationID}]
		if (f.Archived == ArchivedOnly && !archived) || ((f.Archived == "" || f.Archived == ArchivedExclude) && archived) {
			continue
		}
		cid := *msg.ConversationID
		g, ok := groups[cid]
		if !ok {
			g = &ConversationSummary{}
			groups[cid] = g
		}
		g.ThreadCount++
		if msg.RecipientID == userID && !msg.IsRead {
			g.UnreadInThread++
		}
		if l, ok := latest[cid]; !ok || newer(msg, l) {
			latest[cid] = msg
		}
	}

	var msgs []*Message
	for _, l := range latest {
		msgs = append(msgs, l)
	}
	sort.Slice(msgs, func(i, j int) bool { return newer(msgs[i], msgs[j]) })

	out := []ConversationSummary{}
	for _, l := range msgs {
		g := groups[*l.ConversationID]
		g.MessageView = m.view(l)
		out = append(out, *g)
	}
	total := len(out)
	off := int(f.offset())
	if off >= total {
		return nil, total, nil
	}
	out = out[off:]
	if len(out) > PageSize {
		out = out[:PageSize]
	}
	return out, total, nil
}

func (m *memRepo) Thread(_ context.Context, userID, conversationID string) ([]MessageView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MessageView
	for _, msg := range m.messages {
		if msg.ConversationID == nil || *msg.ConversationID != conversationID {
			continue
		}
		if msg.SenderID == userID || msg.RecipientID == userID {
			out = append(out, m.view(msg))
		}
	}
	return out, nil
}

func (m *memRepo) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.IsRead = true
			return nil
		}
	}
	return ErrMessageNotFound
}

func (m *memRepo) MarkThreadRead(_ context.Context, userID, conversationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID != nil && *msg.ConversationID == conversationID && msg.RecipientID == userID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.RecipientID == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Archive(_ context.Context, userID, conversationID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived[[2]string{userID, conversationID}] = true
	return nil
}

func (m *memRepo) Unarchive(_ context.Context, userID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.archived, [2]string{userID, conversationID})
	return nil
}

type stubDirectory struct {
	users map[string]*user.User
	fail  map[string]error
}

func (d *stubDirectory) GetUser(_ context.Context, id string) (*user.User, error) {
	if err, ok := d.fail[id]; ok {
		return nil, err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type pushed struct {
	channel string
	event   string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []notification.Email
	pushes []pushed
}

func (r *recordingNotifier) QueueEmail(_ context.Context, e notification.Email) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, e)
}

func (r *recordingNotifier) Push(_ context.Context, channelKey, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{channelKey, event, payload})
}

func (r *recordingNotifier) events(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.pushes {
		if p.channel == channel {
			out = append(out, p.event)
		}
	}
	return out
}

func (r *recordingNotifier) lastCount(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.pushes) - 1; i >= 0; i-- {
		p := r.pushes[i]
		if p.channel == channel && p.event == EventUnreadCount {
			return p.payload.(map[string]int)["count"]
		}
	}
	return -1
}

type fixture struct {
	repo     *memRepo
	users    *stubDirectory
	notifier *recordingNotifier
	now      time.Time
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		users: &stubDirectory{users: map[string]*user.User{
			adaID:   {ID: adaID, FirstName: "Ada", LastName: "LOVELACE", Email: "ada@example.com", Role: user.RoleAdmin},
			graceID: {ID: graceID, FirstName: "Grace", LastName: "HOPPER", Email: "grace@example.com", Role: user.RoleLearner},
			alanID:  {ID: alanID, FirstName: "Alan", LastName: "TURING", Email: "alan@example.com", Role: user.RoleProfessional},
		}},
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.repo = newMemRepo(clock, f.users)

	cfg := &config.Config{}
	cfg.Server.FrontendURL = "https://ipseis.test"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(&Config{
		Repo:      f.repo,
		Users:     f.users,
		Notifier:  f.notifier,
		Templates: templates.NewEngine(templates.Config{}, logger),
		Logger:    logger,
		Config:    cfg,
		Now:       clock,
	})
	return f
}

func (f *fixture) send(t *testing.T, from, to, subject, parent string) *MessageView {
	t.Helper()
	v, err := f.svc.Send(context.Background(), from, SendInput{RecipientID: to, Subject: subject, Content: subject + " body", ParentMessageID: parent})
	require.NoError(t, err)
	return v
}
