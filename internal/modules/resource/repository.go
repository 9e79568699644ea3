package resource

import (
	"context"
	"errors"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	Create(ctx context.Context, r *Resource) error
	FindByID(ctx context.Context, id string) (*Resource, error)
	FindView(ctx context.Context, id string) (*View, error)
	List(ctx context.Context, f ListFilter) ([]View, int, error)
	Update(ctx context.Context, r *Resource) error
	Delete(ctx context.Context, id string) error
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

var resourceColumns = []string{
	"id", "title", "description", "pdf_path", "original_file_name", "linked_training_id",
	"target_roles", "created_by", "created_at", "updated_at",
}

func (r *repository) views() squirrel.SelectBuilder {
	cols := make([]string, 0, len(resourceColumns)+3)
	for _, c := range resourceColumns {
		cols = append(cols, "r."+c)
	}
	cols = append(cols, "t.title AS training_title", "u.first_name AS creator_first_name", "u.last_name AS creator_last_name")
	return r.psql.Select(cols...).
		From("resources r").
		Join("trainings t ON t.id = r.linked_training_id").
		LeftJoin("users u ON u.id = r.created_by")
}

func (r *repository) Create(ctx context.Context, res *Resource) error {
	query, args, err := r.psql.Insert("resources").
		Columns(resourceColumns...).
		Values(res.ID, res.Title, res.Description, res.PDFPath, res.OriginalFileName, res.LinkedTrainingID,
			res.TargetRoles, res.CreatedBy, res.CreatedAt, res.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	if database.IsForeignKeyViolation(err) {
		return ErrTrainingNotFound.WithCause(err)
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Resource, error) {
	query, args, err := r.psql.Select(resourceColumns...).From("resources").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var res Resource
	if err := pgxscan.Get(ctx, r.db, &res, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *repository) FindView(ctx context.Context, id string) (*View, error) {
	query, args, err := r.views().Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v View
	if err := pgxscan.Get(ctx, r.db, &v, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]View, int, error) {
	where := squirrel.And{}
	if f.TrainingID != "" {
		where = append(where, squirrel.Eq{"r.linked_training_id": f.TrainingID})
	}
	if f.TrainingIDs != nil {
		where = append(where, squirrel.Eq{"r.linked_training_id": f.TrainingIDs})
	}
	if f.Role != "" {
		where = append(where, squirrel.Expr("? = ANY(r.target_roles)", f.Role))
	}

	countQuery, countArgs, err := r.psql.Select("count(*)").From("resources r").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.views().Where(where).OrderBy("r.created_at DESC", "r.id")
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

func (r *repository) Update(ctx context.Context, res *Resource) error {
	query, args, err := r.psql.Update("resources").
		Set("title", res.Title).
		Set("description", res.Description).
		Set("pdf_path", res.PDFPath).
		Set("original_file_name", res.OriginalFileName).
		Set("linked_training_id", res.LinkedTrainingID).
		Set("target_roles", res.TargetRoles).
		Set("updated_at", res.UpdatedAt).
		Where(squirrel.Eq{"id": res.ID}).
		ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrTrainingNotFound.WithCause(err)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("resources").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}
