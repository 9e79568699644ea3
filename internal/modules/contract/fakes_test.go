package contract

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/storage"
	"github.com/stretchr/testify/require"
)

const (
	adminID    = "0190c6a4-0000-7000-8000-0000000000a1"
	graceID    = "0190c6a4-0000-7000-8000-0000000000b2"
	alanID     = "0190c6a4-0000-7000-8000-0000000000c3"
	trainingID = "0190c6a4-0000-7000-8000-0000000000d4"
	missingID  = "0190c6a4-0000-7000-8000-0000000000ff"
)

var (
	admin = Actor{UserID: adminID, Role: string(user.RoleAdmin)}
	grace = Actor{UserID: graceID, Role: string(user.RoleLearner)}
	alan  = Actor{UserID: alanID, Role: string(user.RoleProfessional)}
)

const samplePDF = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

func pdf() io.Reader { return strings.NewReader(samplePDF) }

type memRepo struct {
	mu        sync.Mutex
	users     *stubUsers
	trainings map[string]string
	contracts map[string]*Contract
}

func (m *memRepo) Create(_ context.Context, c *Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contracts[c.ID] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	cp := *c
	return &cp, nil
}

func party(u *user.User) Party {
	return Party{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func (m *memRepo) view(c *Contract) View {
	v := View{Contract: *c, Recipient: party(m.users.users[c.RecipientID]), Creator: party(m.users.users[c.CreatedBy])}
	if c.LinkedTrainingID != nil {
		if title, ok := m.trainings[*c.LinkedTrainingID]; ok {
			v.TrainingTitle = &title
		}
	}
	return v
}

func (m *memRepo) FindView(_ context.Context, id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	v := m.view(c)
	return &v, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]View, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []View
	for _, c := range m.contracts {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.RecipientID != "" && c.RecipientID != f.RecipientID {
			continue
		}
		if f.ExcludeDraft && c.Status == StatusDraft {
			continue
		}
		out = append(out, m.view(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if int(f.Offset) >= total {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && uint64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memRepo) UpdateDraft(_ context.Context, c *Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.contracts[c.ID]
	if !ok || stored.Status != StatusDraft {
		return errStale
	}
	cp := *c
	m.contracts[c.ID] = &cp
	return nil
}

func (m *memRepo) Transition(_ context.Context, id string, from, to Status, set map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok || c.Status != from {
		return errStale
	}
	c.Status = to
	for k, v := range set {
		switch k {
		case "signed_at":
			t := v.(time.Time)
			c.SignedAt = &t
		case "signed_ip":
			c.SignedIP = v.(string)
		case "signed_user_agent":
			c.SignedUserAgent = v.(string)
		case "rejected_at":
			t := v.(time.Time)
			c.RejectedAt = &t
		case "cancelled_at":
			t := v.(time.Time)
			c.CancelledAt = &t
		case "updated_at":
			c.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (m *memRepo) DeleteDraft(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok || c.Status != StatusDraft {
		return errStale
	}
	delete(m.contracts, id)
	return nil
}

func (m *memRepo) SignedTrainingIDs(_ context.Context, recipientID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, c := range m.contracts {
		if c.RecipientID != recipientID || c.Status != StatusSigned || c.LinkedTrainingID == nil {
			continue
		}
		if !seen[*c.LinkedTrainingID] {
			seen[*c.LinkedTrainingID] = true
			ids = append(ids, *c.LinkedTrainingID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type stubUsers struct {
	users map[string]*user.User
	err   error
}

func (s *stubUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type stubTrainings map[string]string

func (s stubTrainings) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s[id]
	return ok, nil
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

type fixture struct {
	repo     *memRepo
	files    *storage.Store
	dir      string
	notifier *recordingNotifier
	now      time.Time
	svc      Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &stubUsers{users: map[string]*user.User{
		adminID: {ID: adminID, FirstName: "Ada", LastName: "LOVELACE", Email: "ada@example.com", Role: user.RoleAdmin},
		graceID: {ID: graceID, FirstName: "Grace", LastName: "HOPPER", Email: "grace@example.com", Role: user.RoleLearner},
		alanID:  {ID: alanID, FirstName: "Alan", LastName: "TURING", Email: "alan@example.com", Role: user.RoleProfessional},
	}}
	trainings := stubTrainings{trainingID: "Management bienveillant"}

	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	f := &fixture{
		repo:     &memRepo{users: users, trainings: trainings, contracts: map[string]*Contract{}},
		files:    files,
		dir:      dir,
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	cfg := &config.Config{}
	cfg.Server.FrontendURL = "https://ipseis.test"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(&Config{
		Repo:      f.repo,
		Users:     users,
		Trainings: trainings,
		Files:     files,
		Notifier:  f.notifier,
		Templates: templates.NewEngine(templates.Config{}, logger),
		Logger:    logger,
		Config:    cfg,
		Now:       func() time.Time { return f.now },
	})
	return f
}

// draft creates a contract for grace, with a PDF when withPDF is set.
func (f *fixture) draft(t *testing.T, title string, withPDF bool) *View {
	t.Helper()
	var r io.Reader
	if withPDF {
		r = pdf()
	}
	v, err := f.svc.Create(context.Background(), admin, Input{Title: title, RecipientID: graceID, Amount: 1250.5}, r)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	return v
}

func (f *fixture) sent(t *testing.T, title string) *View {
	t.Helper()
	v := f.draft(t, title, true)
	v, err := f.svc.Send(context.Background(), admin, v.ID)
	require.NoError(t, err)
	return v
}
