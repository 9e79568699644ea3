package user

import (
	"context"
	"errors"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "phone", "company",
	"position", "address", "role", "is_active", "activation_code_used", "created_at", "updated_at",
}

// Create inserts a new user record into the database.
func (r *repository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := r.psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Phone, user.Company,
			user.Position, user.Address, user.Role, user.IsActive, user.ActivationCodeUsed, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return ErrEmailExists.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByEmail retrieves a user by their email address.
// It returns ErrNotFound if no user is found.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"email": email})
}

// FindByID retrieves a user by their unique ID.
// It returns ErrNotFound if no user is found.
func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

func (r *repository) findOne(ctx context.Context, where squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &user, nil
}

// Update modifies an existing user's profile, role and status.
func (r *repository) Update(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now()

	query, args, err := r.psql.Update("users").
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("phone", user.Phone).
		Set("company", user.Company).
		Set("position", user.Position).
		Set("address", user.Address).
		Set("role", user.Role).
		Set("is_active", user.IsActive).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, userID string, newPasswordHash string) error {
	query, args, err := r.psql.Update("users").
		Set("password_hash", newPasswordHash).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user. Contracts and messages reference users without
// cascade, so a referenced user yields ErrUserReferenced.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrUserReferenced.WithCause(err)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	where := squirrel.And{}
	if f.Role != "" {
		where = append(where, squirrel.Eq{"role": f.Role})
	}
	if f.Search != "" {
		pattern := database.ContainsPattern(f.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"company": pattern},
		})
	}

	countQuery, countArgs, err := r.psql.Select("count(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.psql.Select(userColumns...).From("users").Where(where).OrderBy("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var users []User
	if err := pgxscan.Select(ctx, r.db, &users, query, args...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListActiveExcept returns active users other than userID, sorted by name.
func (r *repository) ListActiveExcept(ctx context.Context, userID string) ([]User, error) {
	query, args, err := r.psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.NotEq{"id": userID}).
		OrderBy("last_name", "first_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	if err := pgxscan.Select(ctx, r.db, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

// ExistingEmails returns the subset of emails that belong to a user account.
func (r *repository) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	found := make(map[string]bool, len(emails))
	if len(emails) == 0 {
		return found, nil
	}

	query, args, err := r.psql.Select("email").From("users").Where(squirrel.Eq{"email": emails}).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []string
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, e := range rows {
		found[e] = true
	}
	return found, nil
}
