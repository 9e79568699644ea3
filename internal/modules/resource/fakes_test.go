package resource

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/storage"
	"github.com/stretchr/testify/require"
)

const (
	adminID    = "0190c6a4-0000-7000-8000-0000000000a1"
	graceID    = "0190c6a4-0000-7000-8000-0000000000b2"
	alanID     = "0190c6a4-0000-7000-8000-0000000000c3"
	trainingID = "0190c6a4-0000-7000-8000-0000000000d4"
	otherID    = "0190c6a4-0000-7000-8000-0000000000d5"
	missingID  = "0190c6a4-0000-7000-8000-0000000000ff"
)

var (
	admin = Actor{UserID: adminID, Role: string(user.RoleAdmin)}
	grace = Actor{UserID: graceID, Role: string(user.RoleLearner)}
	alan  = Actor{UserID: alanID, Role: string(user.RoleProfessional)}
)

const samplePDF = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

func pdf(name string) *Upload {
	return &Upload{File: strings.NewReader(samplePDF), Filename: name}
}

type memRepo struct {
	mu        sync.Mutex
	trainings map[string]string
	resources map[string]*Resource
}

func (m *memRepo) Create(_ context.Context, r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.resources[r.ID] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) view(r *Resource) View {
	v := View{Resource: *r, TrainingTitle: m.trainings[r.LinkedTrainingID]}
	if r.CreatedBy != nil {
		first, last := "Ada", "LOVELACE"
		v.CreatorFirstName, v.CreatorLastName = &first, &last
	}
	return v
}

func (m *memRepo) FindView(_ context.Context, id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	v := m.view(r)
	return &v, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]View, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []View
	for _, r := range m.resources {
		if f.TrainingID != "" && r.LinkedTrainingID != f.TrainingID {
			continue
		}
		if f.TrainingIDs != nil && !slices.Contains(f.TrainingIDs, r.LinkedTrainingID) {
			continue
		}
		if f.Role != "" && !r.OfferedTo(f.Role) {
			continue
		}
		out = append(out, m.view(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Limit > 0 {
		start := min(int(f.Offset), total)
		end := min(start+int(f.Limit), total)
		out = out[start:end]
	}
	return out, total, nil
}

func (m *memRepo) Update(_ context.Context, r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[r.ID]; !ok {
		return ErrResourceNotFound
	}
	cp := *r
	m.resources[r.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return ErrResourceNotFound
	}
	delete(m.resources, id)
	return nil
}

type stubTrainings map[string]string

func (s stubTrainings) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s[id]
	return ok, nil
}

// stubEnrolments maps a user to the trainings they signed for.
type stubEnrolments map[string][]string

func (s stubEnrolments) SignedTrainings(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

type fixture struct {
	repo       *memRepo
	files      *storage.Store
	dir        string
	enrolments stubEnrolments
	now        time.Time
	svc        Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	trainings := stubTrainings{trainingID: "Management bienveillant", otherID: "Bientraitance"}

	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	f := &fixture{
		repo:       &memRepo{trainings: trainings, resources: map[string]*Resource{}},
		files:      files,
		dir:        dir,
		enrolments: stubEnrolments{graceID: {trainingID}, alanID: {trainingID}},
		now:        time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(&Config{
		Repo:       f.repo,
		Trainings:  trainings,
		Enrolments: f.enrolments,
		Files:      files,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) create(t *testing.T, title, training string, roles ...string) *View {
	t.Helper()
	v, err := f.svc.Create(context.Background(), admin, Input{
		Title:            title,
		LinkedTrainingID: training,
		TargetRoles:      roles,
	}, pdf("support.pdf"))
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	return v
}
