package checklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// Create stores c and its items in one transaction.
	Create(ctx context.Context, c *Checklist, items []Item) error
	FindView(ctx context.Context, id string) (*View, error)
	List(ctx context.Context, limit, offset uint64) ([]View, int, error)
	// Replace rewrites the fields of c and swaps its items for items.
	Replace(ctx context.Context, c *Checklist, items []Item) error
	UpdateItem(ctx context.Context, checklistID, itemID string, p ItemPatch, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db   database.Beginner
	psql squirrel.StatementBuilderType
}

func NewRepository(db database.Beginner) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var checklistColumns = []string{
	"id", "title", "description", "linked_user_id", "linked_prospect_id", "created_by", "created_at", "updated_at",
}

var itemColumns = []string{"id", "checklist_id", "position", "text", "is_checked", "notes"}

func (r *repository) views() squirrel.SelectBuilder {
	cols := make([]string, 0, len(checklistColumns)+12)
	for _, c := range checklistColumns {
		cols = append(cols, "c."+c)
	}
	for _, p := range [][2]string{{"lu", "linked_user"}, {"lp", "linked_prospect"}, {"cu", "creator"}} {
		for _, c := range []string{"id", "first_name", "last_name", "email"} {
			cols = append(cols, fmt.Sprintf(`%s.%s AS "%s.%s"`, p[0], c, p[1], c))
		}
	}
	return r.psql.Select(cols...).
		From("checklists c").
		LeftJoin("users lu ON lu.id = c.linked_user_id").
		LeftJoin("prospects lp ON lp.id = c.linked_prospect_id").
		LeftJoin("users cu ON cu.id = c.created_by")
}

func (r *repository) Create(ctx context.Context, c *Checklist, items []Item) error {
	query, args, err := r.psql.Insert("checklists").
		Columns(checklistColumns...).
		Values(c.ID, c.Title, c.Description, c.LinkedUserID, c.LinkedProspectID, c.CreatedBy, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		return r.insertItems(ctx, tx, items)
	})
	if database.IsForeignKeyViolation(err) {
		return ErrLinkNotFound.WithCause(err)
	}
	return err
}

func (r *repository) insertItems(ctx context.Context, tx pgx.Tx, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	q := r.psql.Insert("checklist_items").Columns(itemColumns...)
	for _, it := range items {
		q = q.Values(it.ID, it.ChecklistID, it.Position, it.Text, it.IsChecked, it.Notes)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func (r *repository) FindView(ctx context.Context, id string) (*View, error) {
	query, args, err := r.views().Where(squirrel.Eq{"c.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v View
	if err := pgxscan.Get(ctx, r.db, &v, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChecklistNotFound
		}
		return nil, err
	}
	views := []View{v}
	if err := r.attachItems(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (r *repository) List(ctx context.Context, limit, offset uint64) ([]View, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM checklists").Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.views().OrderBy("c.created_at DESC", "c.id")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []View
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// attachItems loads the items of every view in one query.
func (r *repository) attachItems(ctx context.Context, views []View) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]string, len(views))
	for i := range views {
		ids[i] = views[i].ID
	}
	query, args, err := r.psql.Select(itemColumns...).
		From("checklist_items").
		Where(squirrel.Eq{"checklist_id": ids}).
		OrderBy("checklist_id", "position").
		ToSql()
	if err != nil {
		return err
	}
	var items []Item
	if err := pgxscan.Select(ctx, r.db, &items, query, args...); err != nil {
		return err
	}
	byChecklist := make(map[string][]Item, len(views))
	for _, it := range items {
		byChecklist[it.ChecklistID] = append(byChecklist[it.ChecklistID], it)
	}
	for i := range views {
		views[i].Items = byChecklist[views[i].ID]
	}
	return nil
}

func (r *repository) Replace(ctx context.Context, c *Checklist, items []Item) error {
	update, updateArgs, err := r.psql.Update("checklists").
		Set("title", c.Title).
		Set("description", c.Description).
		Set("linked_user_id", c.LinkedUserID).
		Set("linked_prospect_id", c.LinkedProspectID).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return err
	}
	reset, resetArgs, err := r.psql.Delete("checklist_items").Where(squirrel.Eq{"checklist_id": c.ID}).ToSql()
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, update, updateArgs...)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrChecklistNotFound
		}
		if _, err := tx.Exec(ctx, reset, resetArgs...); err != nil {
			return err
		}
		return r.insertItems(ctx, tx, items)
	})
	if database.IsForeignKeyViolation(err) {
		return ErrLinkNotFound.WithCause(err)
	}
	return err
}

func (r *repository) UpdateItem(ctx context.Context, checklistID, itemID string, p ItemPatch, at time.Time) error {
	set := map[string]any{}
	if p.IsChecked != nil {
		set["is_checked"] = *p.IsChecked
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := r.psql.Update("checklists").
			Set("updated_at", at).
			Where(squirrel.Eq{"id": checklistID}).
			ToSql()
		if err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrChecklistNotFound
		}

		q := r.psql.Update("checklist_items").Where(squirrel.Eq{"id": itemID, "checklist_id": checklistID})
		if len(set) == 0 {
			// Touch the row so a missing item is still reported.
			q = q.Set("id", squirrel.Expr("id"))
		} else {
			q = q.SetMap(set)
		}
		if query, args, err = q.ToSql(); err != nil {
			return err
		}
		if ct, err = tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("checklists").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrChecklistNotFound
	}
	return nil
}
