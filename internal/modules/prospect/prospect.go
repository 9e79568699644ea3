package prospect

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Status is the follow-up state of a prospect.
type Status string

const (
	StatusNew       Status = "nouveau"
	StatusContacted Status = "contacte"
	StatusConverted Status = "converti"
	StatusArchived  Status = "archive"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusConverted, StatusArchived:
		return true
	}
	return false
}

// Source records through which channels a prospect reached us.
type Source string

const (
	SourceContact   Source = "contact"
	SourceCatalogue Source = "catalogue"
	SourceMixed     Source = "mixed"
)

// InteractionType is the kind of an interaction event.
type InteractionType string

const (
	InteractionContactMessage    InteractionType = "contact_message"
	InteractionCatalogueDownload InteractionType = "catalogue_download"
	InteractionAdminOutreach     InteractionType = "admin_outreach"
)

// source is the Source a public channel contributes. Admin outreach has none.
func (t InteractionType) source() (Source, bool) {
	switch t {
	case InteractionContactMessage:
		return SourceContact, true
	case InteractionCatalogueDownload:
		return SourceCatalogue, true
	}
	return "", false
}

// Prospect is a deduplicated lead keyed by its lowercased email.
type Prospect struct {
	ID                   string    `db:"id"`
	FirstName            string    `db:"first_name"`
	LastName             string    `db:"last_name"`
	Email                string    `db:"email"`
	Source               Source    `db:"source"`
	Status               Status    `db:"status"`
	HasContactMessage    bool      `db:"has_contact_message"`
	HasCatalogueDownload bool      `db:"has_catalogue_download"`
	InteractionCount     int       `db:"interaction_count"`
	LastInteractionDate  time.Time `db:"last_interaction_date"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Interaction is an immutable event appended to a prospect.
type Interaction struct {
	ID         string          `db:"id"`
	ProspectID string          `db:"prospect_id"`
	Type       InteractionType `db:"type"`
	Data       map[string]any  `db:"data"`
	UserAgent  string          `db:"user_agent"`
	IPAddress  string          `db:"ip_address"`
	CreatedAt  time.Time       `db:"created_at"`
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID                   string    `db:"id"`
	FirstName            string    `db:"first_name"`
	LastName             string    `db:"last_name"`
	Email                string    `db:"email"`
	Message              string    `db:"message"`
	InterestedFormations []string  `db:"interested_formations"`
	IsRead               bool      `db:"is_read"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Meta is the transport evidence stored with public interactions.
type Meta struct {
	IP        string
	UserAgent string
}

// ListFilter narrows the admin prospect listing. An empty Status hides
// converted prospects.
type ListFilter struct {
	Status Status
	Source Source
	Search string
	Limit  uint64
	Offset uint64
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// formatFirstName upper-cases the first letter and lower-cases the rest.
func formatFirstName(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func formatLastName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
