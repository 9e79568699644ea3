package training

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	themes    map[string]*Theme
	trainings map[string]*Training
	order     []string
}

func newMemRepo() *memRepo {
	return &memRepo{themes: map[string]*Theme{}, trainings: map[string]*Training{}}
}

func (m *memRepo) ListThemes(context.Context) ([]Theme, error) {
	out := make([]Theme, 0, len(m.themes))
	for _, th := range m.themes {
		out = append(out, *th)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) FindTheme(_ context.Context, id string) (*Theme, error) {
	th, ok := m.themes[id]
	if !ok {
		return nil, ErrThemeNotFound
	}
	cp := *th
	return &cp, nil
}

func (m *memRepo) CreateTheme(_ context.Context, th *Theme) error {
	cp := *th
	m.themes[th.ID] = &cp
	return nil
}

func (m *memRepo) DeleteTheme(_ context.Context, id string) error {
	delete(m.themes, id)
	return nil
}

func (m *memRepo) CountThemeTrainings(_ context.Context, themeID string) (int, error) {
	n := 0
	for _, t := range m.trainings {
		if t.ThemeID != nil && *t.ThemeID == themeID {
			n++
		}
	}
	return n, nil
}

// joined copies t with the theme title filled in, as the SQL join does.
func (m *memRepo) joined(t *Training) Training {
	cp := *t
	cp.ThemeTitle = nil
	if t.ThemeID != nil {
		if th, ok := m.themes[*t.ThemeID]; ok {
			title := th.Title
			cp.ThemeTitle = &title
		}
	}
	return cp
}

func (m *memRepo) ListTrainings(_ context.Context, visibleOnly bool) ([]Training, error) {
	var out []Training
	for _, id := range m.order {
		t, ok := m.trainings[id]
		if !ok || (visibleOnly && !t.IsVisible) {
			continue
		}
		out = append(out, m.joined(t))
	}
	return out, nil
}

func (m *memRepo) FindTraining(_ context.Context, id string) (*Training, error) {
	t, ok := m.trainings[id]
	if !ok {
		return nil, ErrTrainingNotFound
	}
	cp := m.joined(t)
	return &cp, nil
}

func (m *memRepo) CreateTraining(_ context.Context, t *Training) error {
	cp := *t
	m.trainings[t.ID] = &cp
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memRepo) UpdateTraining(_ context.Context, t *Training) error {
	if _, ok := m.trainings[t.ID]; !ok {
		return ErrTrainingNotFound
	}
	cp := *t
	m.trainings[t.ID] = &cp
	return nil
}

func (m *memRepo) SetVisibility(_ context.Context, id string, visible bool) error {
	m.trainings[id].IsVisible = visible
	return nil
}

func (m *memRepo) DeleteTraining(_ context.Context, id string) error {
	if _, ok := m.trainings[id]; !ok {
		return ErrTrainingNotFound
	}
	delete(m.trainings, id)
	return nil
}

func (m *memRepo) AssignTheme(_ context.Context, trainingID, themeID string) error {
	id := themeID
	m.trainings[trainingID].ThemeID = &id
	return nil
}

func newTestService() (Service, *memRepo) {
	repo := newMemRepo()
	return NewService(&Config{Repo: repo, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}), repo
}

func sampleContent(title string) Content {
	return Content{
		Title:                 title,
		PedagogicalObjectives: []string{"Comprendre"},
		Program:               []string{"Module 1"},
		PedagogicalMethods:    []string{"Ateliers"},
		Audience:              "Soignants",
		Prerequisites:         "Aucun",
		EvaluationMethods:     []string{"QCM"},
		Trainer:               "Dr. Martin",
		NumberOfTrainees:      "12",
		Duration:              "2 jours",
		Quote:                 "Sur devis",
	}
}

func TestCatalogueHidesInvisibleTrainings(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	th, err := svc.CreateTheme(ctx, "Gériatrie", "soins")
	require.NoError(t, err)
	visible, err := svc.CreateTraining(ctx, th.ID, sampleContent("Bientraitance"), true)
	require.NoError(t, err)
	hidden, err := svc.CreateTraining(ctx, th.ID, sampleContent("Brouillon"), false)
	require.NoError(t, err)

	public, err := svc.Catalogue(ctx, false)
	require.NoError(t, err)
	require.Len(t, public, 1)
	require.Len(t, public[0].Trainings, 1)
	assert.Equal(t, visible.ID, public[0].Trainings[0].ID)

	admin, err := svc.Catalogue(ctx, true)
	require.NoError(t, err)
	assert.Len(t, admin[0].Trainings, 2)

	_, err = svc.GetTraining(ctx, hidden.ID, false)
	assert.ErrorIs(t, err, ErrTrainingNotFound)
	got, err := svc.GetTraining(ctx, hidden.ID, true)
	require.NoError(t, err)
	assert.False(t, got.IsVisible)
}

func TestCreateTrainingRequiresTheme(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateTraining(context.Background(), "0190c6a4-0000-7000-8000-00000000ffff", sampleContent("X"), true)
	assert.ErrorIs(t, err, ErrThemeNotFound)

	_, err = svc.CreateTraining(context.Background(), "not-a-uuid", sampleContent("X"), true)
	assert.ErrorIs(t, err, ErrThemeNotFound)
}

func TestUpdateTrainingMovesTheme(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.CreateTheme(ctx, "A", "soins")
	require.NoError(t, err)
	b, err := svc.CreateTheme(ctx, "B", "management")
	require.NoError(t, err)
	tr, err := svc.CreateTraining(ctx, a.ID, sampleContent("Initial"), true)
	require.NoError(t, err)

	updated, err := svc.UpdateTraining(ctx, tr.ID, &b.ID, sampleContent("Renamed"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, b.ID, *updated.ThemeID)

	assert.NoError(t, svc.DeleteTheme(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteTheme(ctx, b.ID), ErrThemeNotEmpty)
}

func TestExists(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	th, err := svc.CreateTheme(ctx, "A", "soins")
	require.NoError(t, err)
	tr, err := svc.CreateTraining(ctx, th.ID, sampleContent("T"), false)
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "0190c6a4-0000-7000-8000-00000000ffff")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.DeleteTraining(ctx, tr.ID))
	assert.ErrorIs(t, svc.DeleteTraining(ctx, tr.ID), ErrTrainingNotFound)
}
