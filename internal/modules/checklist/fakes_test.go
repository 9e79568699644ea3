package checklist

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"
)

const (
	adminID    = "0190c6a4-0000-7000-8000-0000000000a1"
	graceID    = "0190c6a4-0000-7000-8000-0000000000b2"
	prospectID = "0190c6a4-0000-7000-8000-0000000000e5"
	missingID  = "0190c6a4-0000-7000-8000-0000000000ff"
)

// memRepo resolves links against a fixed set of known ids.
type memRepo struct {
	mu         sync.Mutex
	known      map[string]string
	checklists map[string]*Checklist
	items      map[string][]Item
}

func newMemRepo() *memRepo {
	return &memRepo{
		known:      map[string]string{adminID: "Ada", graceID: "Grace", prospectID: "Jeanne"},
		checklists: map[string]*Checklist{},
		items:      map[string][]Item{},
	}
}

func (m *memRepo) checkLinks(c *Checklist) error {
	for _, id := range []*string{c.LinkedUserID, c.LinkedProspectID} {
		if id == nil {
			continue
		}
		if _, ok := m.known[*id]; !ok {
			return ErrLinkNotFound
		}
	}
	return nil
}

func (m *memRepo) Create(_ context.Context, c *Checklist, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLinks(c); err != nil {
		return err
	}
	cp := *c
	m.checklists[c.ID] = &cp
	m.items[c.ID] = append([]Item(nil), items...)
	return nil
}

func (m *memRepo) party(id *string) Party {
	if id == nil {
		return Party{}
	}
	name := m.known[*id]
	return Party{ID: id, FirstName: &name}
}

func (m *memRepo) view(c *Checklist) View {
	return View{
		Checklist:      *c,
		LinkedUser:     m.party(c.LinkedUserID),
		LinkedProspect: m.party(c.LinkedProspectID),
		Creator:        m.party(c.CreatedBy),
		Items:          append([]Item(nil), m.items[c.ID]...),
	}
}

func (m *memRepo) FindView(_ context.Context, id string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checklists[id]
	if !ok {
		return nil, ErrChecklistNotFound
	}
	v := m.view(c)
	return &v, nil
}

func (m *memRepo) List(_ context.Context, limit, offset uint64) ([]View, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []View
	for _, c := range m.checklists {
		out = append(out, m.view(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if limit > 0 {
		start := min(int(offset), total)
		end := min(start+int(limit), total)
		out = out[start:end]
	}
	return out, total, nil
}

func (m *memRepo) Replace(_ context.Context, c *Checklist, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checklists[c.ID]; !ok {
		return ErrChecklistNotFound
	}
	if err := m.checkLinks(c); err != nil {
		return err
	}
	cp := *c
	m.checklists[c.ID] = &cp
	m.items[c.ID] = append([]Item(nil), items...)
	return nil
}

func (m *memRepo) UpdateItem(_ context.Context, checklistID, itemID string, p ItemPatch, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checklists[checklistID]
	if !ok {
		return ErrChecklistNotFound
	}
	for i := range m.items[checklistID] {
		it := &m.items[checklistID][i]
		if it.ID != itemID {
			continue
		}
		if p.IsChecked != nil {
			it.IsChecked = *p.IsChecked
		}
		if p.Notes != nil {
			it.Notes = *p.Notes
		}
		c.UpdatedAt = at
		return nil
	}
	return ErrItemNotFound
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checklists[id]; !ok {
		return ErrChecklistNotFound
	}
	delete(m.checklists, id)
	delete(m.items, id)
	return nil
}

type fixture struct {
	repo *memRepo
	now  time.Time
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: newMemRepo(), now: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(&Config{
		Repo:   f.repo,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return f.now },
	})
	return f
}

func onboarding() Input {
	return Input{
		Title:        " Intégration de Grace ",
		Description:  "Suivi administratif",
		LinkedUserID: graceID,
		Items: []ItemInput{
			{Text: "Envoyer la convention"},
			{Text: "Recueillir les attentes", Notes: "Appel prévu"},
		},
	}
}
