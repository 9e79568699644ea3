package prospect

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Repository persists the prospect ledger and contact form submissions.
type Repository interface {
	// Upsert creates the prospect for p.Email or folds the new interaction
	// into the existing row in a single statement.
	Upsert(ctx context.Context, p *Prospect) (created bool, err error)
	FindByID(ctx context.Context, id string) (*Prospect, error)
	FindByEmail(ctx context.Context, email string) (*Prospect, error)
	List(ctx context.Context, f ListFilter) ([]Prospect, int, error)
	SetStatus(ctx context.Context, ids []string, status Status) (int64, error)
	// RecordOutreach bumps the counters and moves a new prospect to contacted.
	RecordOutreach(ctx context.Context, id string, at time.Time) (*Prospect, error)

	AppendInteraction(ctx context.Context, in *Interaction) error
	LastInteraction(ctx context.Context, prospectID string, t InteractionType) (*Interaction, error)
	RecentInteractions(ctx context.Context, prospectIDs []string, perProspect int) (map[string][]Interaction, error)
	History(ctx context.Context, prospectID string) ([]Interaction, error)

	CreateContactMessage(ctx context.Context, m *ContactMessage) error
	ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset uint64) ([]ContactMessage, int, error)
	MarkContactMessageRead(ctx context.Context, id string) error
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

var prospectColumns = []string{
	"id", "first_name", "last_name", "email", "source", "status", "has_contact_message",
	"has_catalogue_download", "interaction_count", "last_interaction_date", "created_at", "updated_at",
}

var interactionColumns = []string{"id", "prospect_id", "type", "data", "user_agent", "ip_address", "created_at"}

const upsertSuffix = `ON CONFLICT (email) DO UPDATE SET
	interaction_count = prospects.interaction_count + 1,
	last_interaction_date = EXCLUDED.last_interaction_date,
	has_contact_message = prospects.has_contact_message OR EXCLUDED.has_contact_message,
	has_catalogue_download = prospects.has_catalogue_download OR EXCLUDED.has_catalogue_download,
	source = CASE WHEN prospects.source = EXCLUDED.source THEN prospects.source ELSE 'mixed' END,
	updated_at = EXCLUDED.updated_at
RETURNING id, first_name, last_name, email, source, status, has_contact_message, has_catalogue_download,
	interaction_count, last_interaction_date, created_at, updated_at, (xmax = 0) AS inserted`

func (r *repository) Upsert(ctx context.Context, p *Prospect) (bool, error) {
	query, args, err := r.psql.Insert("prospects").
		Columns(prospectColumns...).
		Values(p.ID, p.FirstName, p.LastName, p.Email, p.Source, StatusNew, p.HasContactMessage,
			p.HasCatalogueDownload, 1, p.LastInteractionDate, p.LastInteractionDate, p.LastInteractionDate).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return false, err
	}

	var row struct {
		Prospect
		Inserted bool `db:"inserted"`
	}
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		return false, err
	}
	*p = row.Prospect
	return row.Inserted, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Prospect, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Prospect, error) {
	return r.findOne(ctx, squirrel.Eq{"email": email})
}

func (r *repository) findOne(ctx context.Context, where squirrel.Sqlizer) (*Prospect, error) {
	query, args, err := r.psql.Select(prospectColumns...).From("prospects").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	var p Prospect
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProspectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Prospect, int, error) {
	where := squirrel.And{}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": f.Status})
	} else {
		where = append(where, squirrel.NotEq{"status": StatusConverted})
	}
	if f.Source != "" {
		where = append(where, squirrel.Eq{"source": f.Source})
	}
	if f.Search != "" {
		pattern := database.ContainsPattern(f.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}

	countQuery, countArgs, err := r.psql.Select("count(*)").From("prospects").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := r.psql.Select(prospectColumns...).From("prospects").Where(where).OrderBy("last_interaction_date DESC", "id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var prospects []Prospect
	if err := pgxscan.Select(ctx, r.db, &prospects, query, args...); err != nil {
		return nil, 0, err
	}
	return prospects, total, nil
}

func (r *repository) SetStatus(ctx context.Context, ids []string, status Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := r.psql.Update("prospects").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *repository) RecordOutreach(ctx context.Context, id string, at time.Time) (*Prospect, error) {
	query, args, err := r.psql.Update("prospects").
		Set("interaction_count", squirrel.Expr("interaction_count + 1")).
		Set("last_interaction_date", at).
		Set("status", squirrel.Expr("CASE WHEN status = ? THEN ? ELSE status END", StatusNew, StatusContacted)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(prospectColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}
	var p Prospect
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProspectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) AppendInteraction(ctx context.Context, in *Interaction) error {
	if in.Data == nil {
		in.Data = map[string]any{}
	}
	query, args, err := r.psql.Insert("interactions").
		Columns(interactionColumns...).
		Values(in.ID, in.ProspectID, in.Type, in.Data, in.UserAgent, in.IPAddress, in.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// LastInteraction returns nil, nil when the prospect has no interaction of type t.
func (r *repository) LastInteraction(ctx context.Context, prospectID string, t InteractionType) (*Interaction, error) {
	query, args, err := r.psql.Select(interactionColumns...).
		From("interactions").
		Where(squirrel.Eq{"prospect_id": prospectID, "type": t}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var in Interaction
	if err := pgxscan.Get(ctx, r.db, &in, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &in, nil
}

func (r *repository) RecentInteractions(ctx context.Context, prospectIDs []string, perProspect int) (map[string][]Interaction, error) {
	out := make(map[string][]Interaction, len(prospectIDs))
	if len(prospectIDs) == 0 {
		return out, nil
	}

	ranked := r.psql.Select(slices.Concat(interactionColumns,
		[]string{"row_number() OVER (PARTITION BY prospect_id ORDER BY created_at DESC) AS rn"})...).
		From("interactions").
		Where(squirrel.Eq{"prospect_id": prospectIDs})
	query, args, err := r.psql.Select(interactionColumns...).
		FromSelect(ranked, "ranked").
		Where(squirrel.LtOrEq{"rn": perProspect}).
		OrderBy("prospect_id", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Interaction
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, in := range rows {
		out[in.ProspectID] = append(out[in.ProspectID], in)
	}
	return out, nil
}

func (r *repository) History(ctx context.Context, prospectID string) ([]Interaction, error) {
	query, args, err := r.psql.Select(interactionColumns...).
		From("interactions").
		Where(squirrel.Eq{"prospect_id": prospectID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []Interaction
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

var contactColumns = []string{
	"id", "first_name", "last_name", "email", "message", "interested_formations", "is_read", "created_at", "updated_at",
}

func (r *repository) CreateContactMessage(ctx context.Context, m *ContactMessage) error {
	if m.InterestedFormations == nil {
		m.InterestedFormations = []string{}
	}
	query, args, err := r.psql.Insert("contact_messages").
		Columns(contactColumns...).
		Values(m.ID, m.FirstName, m.LastName, m.Email, m.Message, m.InterestedFormations, m.IsRead, m.CreatedAt, m.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset uint64) ([]ContactMessage, int, error) {
	where := squirrel.And{}
	if unreadOnly {
		where = append(where, squirrel.Eq{"is_read": false})
	}

	countQuery, countArgs, err := r.psql.Select("count(*)").From("contact_messages").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := r.psql.Select(contactColumns...).
		From("contact_messages").
		Where(where).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	var msgs []ContactMessage
	if err := pgxscan.Select(ctx, r.db, &msgs, query, args...); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *repository) MarkContactMessageRead(ctx context.Context, id string) error {
	query, args, err := r.psql.Update("contact_messages").
		Set("is_read", true).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrContactMessageNotFound
	}
	return nil
}
