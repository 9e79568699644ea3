package resource

import (
	"io"
	"slices"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
)

// Audiences are the roles a resource can be offered to.
var Audiences = []user.Role{user.RoleLearner, user.RoleProfessional}

// Actor is the authenticated caller of a resource operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == string(user.RoleAdmin) }

type Resource struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
	PDFPath          string    `db:"pdf_path"`
	OriginalFileName string    `db:"original_file_name"`
	LinkedTrainingID string    `db:"linked_training_id"`
	TargetRoles      []string  `db:"target_roles"`
	CreatedBy        *string   `db:"created_by"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// OfferedTo reports whether role is one of the target roles.
func (r *Resource) OfferedTo(role string) bool {
	return slices.Contains(r.TargetRoles, role)
}

// DownloadName is the file name offered to the browser.
func (r *Resource) DownloadName() string {
	if r.OriginalFileName != "" {
		return r.OriginalFileName
	}
	return r.Title + ".pdf"
}

// View is a resource with its training title and author resolved. The author
// may have been deleted.
type View struct {
	Resource
	TrainingTitle    string  `db:"training_title"`
	CreatorFirstName *string `db:"creator_first_name"`
	CreatorLastName  *string `db:"creator_last_name"`
}

type ListFilter struct {
	TrainingID string
	// TrainingIDs and Role restrict the listing to what a learner may see.
	TrainingIDs []string
	Role        string
	Limit       uint64
	Offset      uint64
}

// Input holds the fields of a new resource.
type Input struct {
	Title            string
	Description      string
	LinkedTrainingID string
	TargetRoles      []string
}

// Patch holds the fields of an update. Nil fields, an empty Title and an
// empty LinkedTrainingID are left unchanged.
type Patch struct {
	Title            *string
	Description      *string
	LinkedTrainingID *string
	TargetRoles      []string
	SetTargetRoles   bool
}

// Upload is a PDF received with its client-side name.
type Upload struct {
	File     io.Reader
	Filename string
}

type TrainingRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type AuthorDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type DTO struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	HasPDF           bool        `json:"hasPdf"`
	OriginalFileName string      `json:"originalFileName"`
	LinkedTraining   TrainingRef `json:"linkedTraining"`
	TargetRoles      []string    `json:"targetRoles"`
	CreatedBy        *AuthorDTO  `json:"createdBy"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (v *View) DTO() DTO {
	d := DTO{
		ID:               v.ID,
		Title:            v.Title,
		Description:      v.Description,
		HasPDF:           v.PDFPath != "",
		OriginalFileName: v.OriginalFileName,
		LinkedTraining:   TrainingRef{ID: v.LinkedTrainingID, Title: v.TrainingTitle},
		TargetRoles:      v.TargetRoles,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
	if d.TargetRoles == nil {
		d.TargetRoles = []string{}
	}
	if v.CreatorFirstName != nil {
		d.CreatedBy = &AuthorDTO{FirstName: *v.CreatorFirstName}
		if v.CreatorLastName != nil {
			d.CreatedBy.LastName = *v.CreatorLastName
		}
	}
	return d
}
