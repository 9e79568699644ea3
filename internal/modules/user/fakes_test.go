package user

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/session"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu         sync.Mutex
	users      map[string]*User
	codes      map[string]*ActivationCode
	tokens     map[string]*PasswordResetToken
	referenced map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:      map[string]*User{},
		codes:      map[string]*ActivationCode{},
		tokens:     map[string]*PasswordResetToken{},
		referenced: map[string]bool{},
	}
}

func (m *memRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	if m.referenced[id] {
		return ErrUserReferenced
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Email+u.FirstName+u.LastName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, len(out), nil
}

func (m *memRepo) ListActiveExcept(_ context.Context, id string) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if u.IsActive && u.ID != id {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) ExistingEmails(_ context.Context, emails []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := map[string]bool{}
	for _, e := range emails {
		for _, u := range m.users {
			if u.Email == e {
				found[e] = true
			}
		}
	}
	return found, nil
}

func (m *memRepo) CreateActivationCode(_ context.Context, c *ActivationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.codes[c.ID] = &cp
	return nil
}

func (m *memRepo) FindActivationCode(_ context.Context, code string) (*ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrInvalidActivationCode
}

func (m *memRepo) FindActivationCodeByID(_ context.Context, id string) (*ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return nil, ErrActivationCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) ListActivationCodes(_ context.Context, archived bool) ([]ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ActivationCode
	for _, c := range m.codes {
		if c.Archived == archived {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memRepo) MarkActivationCodeUsed(_ context.Context, id, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.codes[id]
	if c.IsUsed {
		return ErrActivationCodeUsed
	}
	c.IsUsed, c.UsedBy, c.UsedAt = true, &userID, &at
	return nil
}

func (m *memRepo) CancelActivationCode(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return ErrActivationCodeNotFound
	}
	c.Cancelled, c.CancelledAt = true, &at
	return nil
}

func (m *memRepo) ArchiveActivationCode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return ErrActivationCodeNotFound
	}
	c.Archived = true
	return nil
}

func (m *memRepo) CreateResetToken(_ context.Context, t *PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *memRepo) FindResetToken(_ context.Context, hash string) (*PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[hash]
	if !ok {
		return nil, ErrInvalidResetToken
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) DeleteResetTokensForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memRepo) PurgeExpired(_ context.Context, now time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes, tokens int64
	for k, c := range m.codes {
		if !c.IsUsed && c.ExpiresAt.Before(now) {
			delete(m.codes, k)
			codes++
		}
	}
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(now) {
			delete(m.tokens, k)
			tokens++
		}
	}
	return codes, tokens, nil
}

// memSessions is an in-memory session.Provider.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]string
	n        int
}

func newMemSessions() *memSessions { return &memSessions{sessions: map[string]string{}} }

func (m *memSessions) Create(_ context.Context, userID, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	sid := "auth:" + string(rune('a'+m.n))
	m.sessions[sid] = userID
	return sid, nil
}

func (m *memSessions) Touch(_ context.Context, sid string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.sessions[sid]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &session.Session{ID: sid, UserID: uid}, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}

func (m *memSessions) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.sessions {
		if v == userID {
			delete(m.sessions, k)
		}
	}
	return nil
}

func (m *memSessions) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.sessions {
		if v == userID {
			n++
		}
	}
	return n
}

type queuedEmails struct {
	mu     sync.Mutex
	emails []notification.Email
}

func (q *queuedEmails) QueueEmail(_ context.Context, e notification.Email) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.emails = append(q.emails, e)
}

func (q *queuedEmails) last() notification.Email {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.emails) == 0 {
		return notification.Email{}
	}
	return q.emails[len(q.emails)-1]
}

type fixture struct {
	repo     *memRepo
	sessions *memSessions
	mail     *queuedEmails
	now      time.Time
	svc      Service
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour
	cfg.Server.FrontendURL = "https://ipseis.test"
	cfg.Mail.SupportEmail = "support@ipseis.test"
	cfg.Activation.CodeTTL = 7 * 24 * time.Hour
	return cfg
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		sessions: newMemSessions(),
		mail:     &queuedEmails{},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(&Config{
		Repo:      f.repo,
		Sessions:  f.sessions,
		Notifier:  f.mail,
		Templates: templates.NewEngine(templates.Config{}, logger),
		Logger:    logger,
		Config:    testConfig(),
		Now:       func() time.Time { return f.now },
	})
	return f
}

// seedUser stores an active user with the given password.
func (f *fixture) seedUser(id, email, password string, role Role) *User {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &User{ID: id, FirstName: "Test", LastName: "USER", Email: email, PasswordHash: hash, Role: role, IsActive: true}
	_ = f.repo.Create(context.Background(), u)
	return u
}
