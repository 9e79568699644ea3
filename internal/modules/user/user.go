package user

import (
	"time"
)

// Role is the wire value of a user's role.
type Role string

const (
	RoleAdmin        Role = "administrateur"
	RoleLearner      Role = "apprenant"
	RoleProfessional Role = "professionnel"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLearner, RoleProfessional:
		return true
	}
	return false
}

// Label is the French label used in emails.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "administrateur"
	case RoleProfessional:
		return "professionnel"
	default:
		return "apprenant"
	}
}

// User represents an account of the personal space.
type User struct {
	ID                 string    `db:"id"`
	FirstName          string    `db:"first_name"`
	LastName           string    `db:"last_name"`
	Email              string    `db:"email"`
	PasswordHash       string    `db:"password_hash"`
	Phone              string    `db:"phone"`
	Company            string    `db:"company"`
	Position           string    `db:"position"`
	Address            string    `db:"address"`
	Role               Role      `db:"role"`
	IsActive           bool      `db:"is_active"`
	ActivationCodeUsed *string   `db:"activation_code_used"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// FullName is "First LAST".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ActivationCode is a single-use credential binding an email to a role.
type ActivationCode struct {
	ID          string     `db:"id"`
	Code        string     `db:"code"`
	Role        Role       `db:"role"`
	TargetEmail string     `db:"target_email"`
	IsUsed      bool       `db:"is_used"`
	UsedBy      *string    `db:"used_by"`
	UsedAt      *time.Time `db:"used_at"`
	ExpiresAt   time.Time  `db:"expires_at"`
	Cancelled   bool       `db:"cancelled"`
	CancelledAt *time.Time `db:"cancelled_at"`
	Archived    bool       `db:"archived"`
	CreatedBy   *string    `db:"created_by"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Redeemable reports whether the code may be consumed by email at now.
func (c *ActivationCode) Redeemable(email string, now time.Time) bool {
	return !c.IsUsed && !c.Cancelled && now.Before(c.ExpiresAt) && c.TargetEmail == normalizeEmail(email)
}

// PasswordResetToken stores the hash of a one-hour reset link token.
type PasswordResetToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role   Role
	Search string
	Limit  uint64
	Offset uint64
}
