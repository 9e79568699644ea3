package checklist

import "time"

type Checklist struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
	LinkedUserID     *string   `db:"linked_user_id"`
	LinkedProspectID *string   `db:"linked_prospect_id"`
	CreatedBy        *string   `db:"created_by"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type Item struct {
	ID          string `db:"id"`
	ChecklistID string `db:"checklist_id"`
	Position    int    `db:"position"`
	Text        string `db:"text"`
	IsChecked   bool   `db:"is_checked"`
	Notes       string `db:"notes"`
}

// Party is a linked user, prospect or author. Every field is nil when the
// link is unset.
type Party struct {
	ID        *string `db:"id"`
	FirstName *string `db:"first_name"`
	LastName  *string `db:"last_name"`
	Email     *string `db:"email"`
}

type View struct {
	Checklist
	LinkedUser     Party  `db:"linked_user"`
	LinkedProspect Party  `db:"linked_prospect"`
	Creator        Party  `db:"creator"`
	Items          []Item `db:"-"`
}

// Input is the full content of a checklist. Items are stored in order.
type Input struct {
	Title            string
	Description      string
	Items            []ItemInput
	LinkedUserID     string
	LinkedProspectID string
}

// ItemInput keeps ID when it names an item of the same checklist.
type ItemInput struct {
	ID        string
	Text      string
	IsChecked bool
	Notes     string
}

// ItemPatch changes the state of one item. Nil fields are left unchanged.
type ItemPatch struct {
	IsChecked *bool
	Notes     *string
}

type PartyDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

type ItemDTO struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsChecked bool   `json:"isChecked"`
	Notes     string `json:"notes"`
}

type DTO struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Items          []ItemDTO `json:"items"`
	LinkedUser     *PartyDTO `json:"linkedUser"`
	LinkedProspect *PartyDTO `json:"linkedProspect"`
	CreatedBy      *PartyDTO `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (p Party) dto() *PartyDTO {
	if p.ID == nil {
		return nil
	}
	return &PartyDTO{ID: *p.ID, FirstName: deref(p.FirstName), LastName: deref(p.LastName), Email: deref(p.Email)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (v *View) DTO() DTO {
	d := DTO{
		ID:             v.ID,
		Title:          v.Title,
		Description:    v.Description,
		Items:          make([]ItemDTO, 0, len(v.Items)),
		LinkedUser:     v.LinkedUser.dto(),
		LinkedProspect: v.LinkedProspect.dto(),
		CreatedBy:      v.Creator.dto(),
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	for _, it := range v.Items {
		d.Items = append(d.Items, ItemDTO{ID: it.ID, Text: it.Text, IsChecked: it.IsChecked, Notes: it.Notes})
	}
	if d.CreatedBy != nil {
		d.CreatedBy.Email = ""
	}
	return d
}
