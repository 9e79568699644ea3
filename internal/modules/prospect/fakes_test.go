package prospect

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/google/uuid"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu           sync.Mutex
	prospects    map[string]*Prospect
	interactions []Interaction
	messages     []*ContactMessage
}

func newMemRepo() *memRepo {
	return &memRepo{prospects: map[string]*Prospect{}}
}

func (m *memRepo) Upsert(_ context.Context, p *Prospect) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.prospects {
		if existing.Email != p.Email {
			continue
		}
		existing.InteractionCount++
		existing.LastInteractionDate = p.LastInteractionDate
		existing.HasContactMessage = existing.HasContactMessage || p.HasContactMessage
		existing.HasCatalogueDownload = existing.HasCatalogueDownload || p.HasCatalogueDownload
		if existing.Source != p.Source {
			existing.Source = SourceMixed
		}
		*p = *existing
		return false, nil
	}
	cp := *p
	cp.Status = StatusNew
	cp.InteractionCount = 1
	cp.CreatedAt = p.LastInteractionDate
	cp.UpdatedAt = p.LastInteractionDate
	m.prospects[cp.ID] = &cp
	*p = cp
	return true, nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return nil, ErrProspectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prospects {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProspectNotFound
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]Prospect, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Prospect
	for _, p := range m.prospects {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Status == "" && p.Status == StatusConverted {
			continue
		}
		if f.Source != "" && p.Source != f.Source {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastInteractionDate.After(out[j].LastInteractionDate) })
	return out, len(out), nil
}

func (m *memRepo) SetStatus(_ context.Context, ids []string, status Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if p, ok := m.prospects[id]; ok {
			p.Status = status
			n++
		}
	}
	return n, nil
}

func (m *memRepo) RecordOutreach(_ context.Context, id string, at time.Time) (*Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return nil, ErrProspectNotFound
	}
	p.InteractionCount++
	p.LastInteractionDate = at
	if p.Status == StatusNew {
		p.Status = StatusContacted
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) AppendInteraction(_ context.Context, in *Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *memRepo) LastInteraction(_ context.Context, prospectID string, t InteractionType) (*Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.interactions) - 1; i >= 0; i-- {
		in := m.interactions[i]
		if in.ProspectID == prospectID && in.Type == t {
			return &in, nil
		}
	}
	return nil, nil
}

func (m *memRepo) RecentInteractions(ctx context.Context, prospectIDs []string, perProspect int) (map[string][]Interaction, error) {
	out := map[string][]Interaction{}
	for _, id := range prospectIDs {
		h, _ := m.History(ctx, id)
		if len(h) > perProspect {
			h = h[:perProspect]
		}
		if len(h) > 0 {
			out[id] = h
		}
	}
	return out, nil
}

func (m *memRepo) History(_ context.Context, prospectID string) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Interaction
	for i := len(m.interactions) - 1; i >= 0; i-- {
		if m.interactions[i].ProspectID == prospectID {
			out = append(out, m.interactions[i])
		}
	}
	return out, nil
}

func (m *memRepo) CreateContactMessage(_ context.Context, msg *ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memRepo) ListContactMessages(_ context.Context, unreadOnly bool, limit, offset uint64) ([]ContactMessage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ContactMessage
	for i := len(m.messages) - 1; i >= 0; i-- {
		if unreadOnly && m.messages[i].IsRead {
			continue
		}
		out = append(out, *m.messages[i])
	}
	total := len(out)
	if offset >= uint64(total) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memRepo) MarkContactMessageRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.IsRead = true
			return nil
		}
	}
	return ErrContactMessageNotFound
}

func (m *memRepo) historyOf(email string) []Interaction {
	p, err := m.FindByEmail(context.Background(), email)
	if err != nil {
		return nil
	}
	h, _ := m.History(context.Background(), p.ID)
	return h
}

// stubAccounts is a fixed set of registered emails.
type stubAccounts struct {
	mu     sync.Mutex
	emails map[string]bool
	issued []*user.ActivationCode
}

func (a *stubAccounts) AccountExists(_ context.Context, email string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emails[email], nil
}

func (a *stubAccounts) ExistingEmails(_ context.Context, emails []string) (map[string]bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := map[string]bool{}
	for _, e := range emails {
		if a.emails[e] {
			out[e] = true
		}
	}
	return out, nil
}

func (a *stubAccounts) IssueActivationCode(_ context.Context, issuerID, email string, role user.Role) (*user.ActivationCode, error) {
	if role == user.RoleAdmin {
		return nil, user.ErrInvalidRole
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	code := &user.ActivationCode{
		ID:          uuid.NewString(),
		Code:        "K7P2X9QA",
		Role:        role,
		TargetEmail: email,
		CreatedBy:   &issuerID,
		ExpiresAt:   time.Date(2025, 5, 8, 9, 0, 0, 0, time.UTC),
	}
	a.issued = append(a.issued, code)
	return code, nil
}

// recordingMailer keeps every email. When fail is set SendEmail returns it.
type recordingMailer struct {
	mu     sync.Mutex
	fail   error
	sent   []notification.Email
	queued []notification.Email
}

func (r *recordingMailer) SendEmail(_ context.Context, e notification.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, e)
	return nil
}

func (r *recordingMailer) QueueEmail(_ context.Context, e notification.Email) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, e)
}

type fixture struct {
	repo     *memRepo
	accounts *stubAccounts
	mail     *recordingMailer
	now      time.Time
	svc      Service
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Mail.AdminAddress = "admin@ipseis.test"
	cfg.Mail.SupportEmail = "support@ipseis.test"
	cfg.Storage.CataloguePath = "testdata/catalogue.pdf"
	cfg.Storage.CatalogueName = "Catalogue IPSEIS.pdf"
	return cfg
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		accounts: &stubAccounts{emails: map[string]bool{}},
		mail:     &recordingMailer{},
		now:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(&Config{
		Repo:      f.repo,
		Accounts:  f.accounts,
		Mailer:    f.mail,
		Templates: templates.NewEngine(templates.Config{}, logger),
		Logger:    logger,
		Config:    testConfig(),
		Now:       func() time.Time { return f.now },
	})
	return f
}
