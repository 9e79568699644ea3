package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// errStale reports a guarded write whose row was no longer in the expected state.
var errStale = errors.New("contract state changed")

type Repository interface {
	Create(ctx context.Context, c *Contract) error
	FindByID(ctx context.Context, id string) (*Contract, error)
	FindView(ctx context.Context, id string) (*View, error)
	List(ctx context.Context, f ListFilter) ([]View, int, error)
	// UpdateDraft rewrites the editable fields. It fails with errStale when
	// the contract is no longer a draft.
	UpdateDraft(ctx context.Context, c *Contract) error
	// Transition moves the contract from one status to another and applies
	// the audit columns in set. It fails with errStale when the status is
	// no longer from.
	Transition(ctx context.Context, id string, from, to Status, set map[string]any) error
	DeleteDraft(ctx context.Context, id string) error
	// SignedTrainingIDs lists the trainings linked to contracts the
	// recipient has signed.
	SignedTrainingIDs(ctx context.Context, recipientID string) ([]string, error)
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var contractColumns = []string{
	"id", "title", "description", "linked_training_id", "start_date", "end_date", "amount", "status",
	"pdf_path", "recipient_id", "created_by", "signed_at", "signed_ip", "signed_user_agent",
	"rejected_at", "cancelled_at", "created_at", "updated_at",
}

func viewColumns() []string {
	cols := make([]string, 0, len(contractColumns)+9)
	for _, c := range contractColumns {
		cols = append(cols, "c."+c)
	}
	for _, p := range [][2]string{{"u", "recipient"}, {"a", "creator"}} {
		for _, c := range []string{"id", "first_name", "last_name", "email"} {
			cols = append(cols, fmt.Sprintf(`%s.%s AS "%s.%s"`, p[0], c, p[1], c))
		}
	}
	return append(cols, "t.title AS training_title")
}

func (r *repository) views() squirrel.SelectBuilder {
	return r.psql.Select(viewColumns()...).
		From("contracts c").
		Join("users u ON u.id = c.recipient_id").
		Join("users a ON a.id = c.created_by").
		LeftJoin("trainings t ON t.id = c.linked_training_id")
}

func (r *repository) Create(ctx context.Context, c *Contract) error {
	query, args, err := r.psql.Insert("contracts").
		Columns(contractColumns...).
		Values(c.ID, c.Title, c.Description, c.LinkedTrainingID, c.StartDate, c.EndDate, c.Amount, c.Status,
			c.PDFPath, c.RecipientID, c.CreatedBy, c.SignedAt, c.SignedIP, c.SignedUserAgent,
			c.RejectedAt, c.CancelledAt, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Contract, error) {
	query, args, err := r.psql.Select(contractColumns...).From("contracts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var c Contract
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindView(ctx context.Context, id string) (*View, error) {
	query, args, err := r.views().Where(squirrel.Eq{"c.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v View
	if err := pgxscan.Get(ctx, r.db, &v, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]View, int, error) {
	where := squirrel.And{}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"c.status": f.Status})
	}
	if f.RecipientID != "" {
		where = append(where, squirrel.Eq{"c.recipient_id": f.RecipientID})
	}
	if f.ExcludeDraft {
		where = append(where, squirrel.NotEq{"c.status": StatusDraft})
	}

	countQuery, countArgs, err := r.psql.Select("count(*)").From("contracts c").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.views().Where(where).OrderBy("c.created_at DESC", "c.id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []View
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateDraft(ctx context.Context, c *Contract) error {
	query, args, err := r.psql.Update("contracts").
		Set("title", c.Title).
		Set("description", c.Description).
		Set("linked_training_id", c.LinkedTrainingID).
		Set("recipient_id", c.RecipientID).
		Set("start_date", c.StartDate).
		Set("end_date", c.EndDate).
		Set("amount", c.Amount).
		Set("pdf_path", c.PDFPath).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID, "status": StatusDraft}).
		ToSql()
	if err != nil {
		return err
	}
	return r.guarded(ctx, query, args)
}

func (r *repository) Transition(ctx context.Context, id string, from, to Status, set map[string]any) error {
	query, args, err := r.psql.Update("contracts").
		Set("status", to).
		SetMap(set).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return err
	}
	return r.guarded(ctx, query, args)
}

func (r *repository) DeleteDraft(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("contracts").Where(squirrel.Eq{"id": id, "status": StatusDraft}).ToSql()
	if err != nil {
		return err
	}
	return r.guarded(ctx, query, args)
}

func (r *repository) SignedTrainingIDs(ctx context.Context, recipientID string) ([]string, error) {
	query, args, err := r.psql.Select("DISTINCT linked_training_id").
		From("contracts").
		Where(squirrel.Eq{"recipient_id": recipientID, "status": StatusSigned}).
		Where(squirrel.NotEq{"linked_training_id": nil}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := pgxscan.Select(ctx, r.db, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) guarded(ctx context.Context, query string, args []any) error {
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errStale
	}
	return nil
}
