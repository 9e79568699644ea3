package training

import (
	"context"
	"errors"
	"time"

	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Repository persists themes, trainings and their membership.
type Repository interface {
	ListThemes(ctx context.Context) ([]Theme, error)
	FindTheme(ctx context.Context, id string) (*Theme, error)
	CreateTheme(ctx context.Context, th *Theme) error
	DeleteTheme(ctx context.Context, id string) error
	CountThemeTrainings(ctx context.Context, themeID string) (int, error)

	ListTrainings(ctx context.Context, visibleOnly bool) ([]Training, error)
	FindTraining(ctx context.Context, id string) (*Training, error)
	CreateTraining(ctx context.Context, t *Training) error
	UpdateTraining(ctx context.Context, t *Training) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	DeleteTraining(ctx context.Context, id string) error
	// AssignTheme moves a training to the end of themeID.
	AssignTheme(ctx context.Context, trainingID, themeID string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a training repository on db.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var trainingColumns = []string{
	"t.id", "t.title", "t.pedagogical_objectives", "t.program", "t.pedagogical_methods",
	"t.audience", "t.prerequisites", "t.evaluation_methods", "t.trainer", "t.number_of_trainees",
	"t.duration", "t.quote", "t.is_visible", "tt.theme_id", "th.title AS theme_title",
	"t.created_at", "t.updated_at",
}

func (r *repository) selectTrainings() squirrel.SelectBuilder {
	return r.psql.Select(trainingColumns...).
		From("trainings t").
		LeftJoin("theme_trainings tt ON tt.training_id = t.id").
		LeftJoin("themes th ON th.id = tt.theme_id")
}

func (r *repository) ListThemes(ctx context.Context) ([]Theme, error) {
	query, args, err := r.psql.Select("id", "title", "type", "created_at").
		From("themes").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var themes []Theme
	if err := pgxscan.Select(ctx, r.db, &themes, query, args...); err != nil {
		return nil, err
	}
	return themes, nil
}

func (r *repository) FindTheme(ctx context.Context, id string) (*Theme, error) {
	query, args, err := r.psql.Select("id", "title", "type", "created_at").
		From("themes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var th Theme
	if err := pgxscan.Get(ctx, r.db, &th, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrThemeNotFound
		}
		return nil, err
	}
	return &th, nil
}

func (r *repository) CreateTheme(ctx context.Context, th *Theme) error {
	th.CreatedAt = time.Now()
	query, args, err := r.psql.Insert("themes").
		Columns("id", "title", "type", "created_at").
		Values(th.ID, th.Title, th.Type, th.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) DeleteTheme(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("themes").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrThemeNotFound
	}
	return nil
}

func (r *repository) CountThemeTrainings(ctx context.Context, themeID string) (int, error) {
	query, args, err := r.psql.Select("count(*)").
		From("theme_trainings").
		Where(squirrel.Eq{"theme_id": themeID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListTrainings orders trainings by theme, then position inside the theme.
func (r *repository) ListTrainings(ctx context.Context, visibleOnly bool) ([]Training, error) {
	q := r.selectTrainings().OrderBy("th.created_at NULLS LAST", "tt.position", "t.created_at")
	if visibleOnly {
		q = q.Where(squirrel.Eq{"t.is_visible": true})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var trainings []Training
	if err := pgxscan.Select(ctx, r.db, &trainings, query, args...); err != nil {
		return nil, err
	}
	return trainings, nil
}

func (r *repository) FindTraining(ctx context.Context, id string) (*Training, error) {
	query, args, err := r.selectTrainings().Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var t Training
	if err := pgxscan.Get(ctx, r.db, &t, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrainingNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) CreateTraining(ctx context.Context, t *Training) error {
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	query, args, err := r.psql.Insert("trainings").
		Columns("id", "title", "pedagogical_objectives", "program", "pedagogical_methods", "audience",
			"prerequisites", "evaluation_methods", "trainer", "number_of_trainees", "duration", "quote",
			"is_visible", "created_at", "updated_at").
		Values(t.ID, t.Title, t.PedagogicalObjectives, t.Program, t.PedagogicalMethods, t.Audience,
			t.Prerequisites, t.EvaluationMethods, t.Trainer, t.NumberOfTrainees, t.Duration, t.Quote,
			t.IsVisible, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) UpdateTraining(ctx context.Context, t *Training) error {
	t.UpdatedAt = time.Now()
	query, args, err := r.psql.Update("trainings").
		Set("title", t.Title).
		Set("pedagogical_objectives", t.PedagogicalObjectives).
		Set("program", t.Program).
		Set("pedagogical_methods", t.PedagogicalMethods).
		Set("audience", t.Audience).
		Set("prerequisites", t.Prerequisites).
		Set("evaluation_methods", t.EvaluationMethods).
		Set("trainer", t.Trainer).
		Set("number_of_trainees", t.NumberOfTrainees).
		Set("duration", t.Duration).
		Set("quote", t.Quote).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}
	return nil
}

func (r *repository) SetVisibility(ctx context.Context, id string, visible bool) error {
	query, args, err := r.psql.Update("trainings").
		Set("is_visible", visible).
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
		return ErrTrainingNotFound
	}
	return nil
}

func (r *repository) DeleteTraining(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("trainings").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrTrainingInUse.WithCause(err)
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}
	return nil
}

func (r *repository) AssignTheme(ctx context.Context, trainingID, themeID string) error {
	query, args, err := r.psql.Delete("theme_trainings").Where(squirrel.Eq{"training_id": trainingID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return err
	}

	next := r.psql.Select("COALESCE(MAX(position) + 1, 0)").
		From("theme_trainings").
		Where(squirrel.Eq{"theme_id": themeID})
	query, args, err = r.psql.Insert("theme_trainings").
		Columns("theme_id", "training_id", "position").
		Values(themeID, trainingID, squirrel.Expr("(?)", next)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrThemeNotFound.WithCause(err)
		}
		return err
	}
	return nil
}
