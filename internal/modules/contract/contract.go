package contract

import (
	"slices"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
)

// EventUpdated is pushed to the recipient when a contract they can see changes.
const EventUpdated = "contract-updated"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusSigned    Status = "signed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// transitions lists the states reachable from each state. Signed, rejected
// and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusCancelled},
	StatusSent:  {StatusSigned, StatusRejected, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusSigned, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

func (s Status) CanTransition(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// Actor is the authenticated caller of a contract operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == string(user.RoleAdmin) }

type Contract struct {
	ID               string     `db:"id"`
	Title            string     `db:"title"`
	Description      string     `db:"description"`
	LinkedTrainingID *string    `db:"linked_training_id"`
	StartDate        *time.Time `db:"start_date"`
	EndDate          *time.Time `db:"end_date"`
	Amount           float64    `db:"amount"`
	Status           Status     `db:"status"`
	PDFPath          string     `db:"pdf_path"`
	RecipientID      string     `db:"recipient_id"`
	CreatedBy        string     `db:"created_by"`
	SignedAt         *time.Time `db:"signed_at"`
	SignedIP         string     `db:"signed_ip"`
	SignedUserAgent  string     `db:"signed_user_agent"`
	RejectedAt       *time.Time `db:"rejected_at"`
	CancelledAt      *time.Time `db:"cancelled_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Party is the public card of the recipient or the author.
type Party struct {
	ID        string `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
}

// View is a contract with its recipient, author and training title resolved.
type View struct {
	Contract
	Recipient     Party   `db:"recipient"`
	Creator       Party   `db:"creator"`
	TrainingTitle *string `db:"training_title"`
}

type ListFilter struct {
	Status       Status
	RecipientID  string
	ExcludeDraft bool
	Limit        uint64
	Offset       uint64
}

// Input holds the fields of a new contract.
type Input struct {
	Title            string
	Description      string
	LinkedTrainingID string
	RecipientID      string
	StartDate        *time.Time
	EndDate          *time.Time
	Amount           float64
}

// Patch holds the fields of an update. Nil fields are left unchanged, as are
// an empty Title or RecipientID. An empty LinkedTrainingID or a zero date
// clears the value.
type Patch struct {
	Title            *string
	Description      *string
	LinkedTrainingID *string
	RecipientID      *string
	StartDate        *time.Time
	EndDate          *time.Time
	Amount           *float64
}

// Evidence is what the transport captured when the recipient signed.
type Evidence struct {
	IP        string
	UserAgent string
}

type PartyDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

type TrainingRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// DTO is the wire shape of a contract, used by the API and by push events.
type DTO struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	LinkedTraining  *TrainingRef `json:"linkedTraining"`
	StartDate       *time.Time   `json:"startDate"`
	EndDate         *time.Time   `json:"endDate"`
	Amount          float64      `json:"amount"`
	Status          Status       `json:"status"`
	HasPDF          bool         `json:"hasPdf"`
	Recipient       PartyDTO     `json:"recipientUser"`
	CreatedBy       PartyDTO     `json:"createdBy"`
	SignedAt        *time.Time   `json:"signedAt"`
	SignedIP        string       `json:"signedIP,omitempty"`
	SignedUserAgent string       `json:"signedUserAgent,omitempty"`
	RejectedAt      *time.Time   `json:"rejectedAt"`
	CancelledAt     *time.Time   `json:"cancelledAt"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func (p Party) dto() PartyDTO {
	return PartyDTO{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}

func (v *View) DTO() DTO {
	d := DTO{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		StartDate:       v.StartDate,
		EndDate:         v.EndDate,
		Amount:          v.Amount,
		Status:          v.Status,
		HasPDF:          v.PDFPath != "",
		Recipient:       v.Recipient.dto(),
		CreatedBy:       v.Creator.dto(),
		SignedAt:        v.SignedAt,
		SignedIP:        v.SignedIP,
		SignedUserAgent: v.SignedUserAgent,
		RejectedAt:      v.RejectedAt,
		CancelledAt:     v.CancelledAt,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	d.CreatedBy.Email = ""
	if v.LinkedTrainingID != nil {
		d.LinkedTraining = &TrainingRef{ID: *v.LinkedTrainingID}
		if v.TrainingTitle != nil {
			d.LinkedTraining.Title = *v.TrainingTitle
		}
	}
	return d
}
