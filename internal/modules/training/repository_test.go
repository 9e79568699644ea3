package training

import (
	"context"
	"testing"

	"github.com/Jyok1m/ipseis-backend/internal/database/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCatalogue(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	theme := &Theme{ID: uuid.NewString(), Title: "Gériatrie", Type: "soins"}
	require.NoError(t, repo.CreateTheme(ctx, theme))

	first := &Training{ID: uuid.NewString(), IsVisible: true}
	sampleContent("Bientraitance").applyTo(first)
	second := &Training{ID: uuid.NewString(), IsVisible: false}
	sampleContent("Douleur").applyTo(second)
	for _, tr := range []*Training{first, second} {
		require.NoError(t, repo.CreateTraining(ctx, tr))
		require.NoError(t, repo.AssignTheme(ctx, tr.ID, theme.ID))
	}

	all, err := repo.ListTrainings(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, []string{"Comprendre"}, all[0].PedagogicalObjectives)
	assert.Equal(t, "Gériatrie", *all[0].ThemeTitle)

	visible, err := repo.ListTrainings(ctx, true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	n, err := repo.CountThemeTrainings(ctx, theme.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	other := &Theme{ID: uuid.NewString(), Title: "Management", Type: "management"}
	require.NoError(t, repo.CreateTheme(ctx, other))
	require.NoError(t, repo.AssignTheme(ctx, second.ID, other.ID))
	moved, err := repo.FindTraining(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, *moved.ThemeID)

	require.NoError(t, repo.SetVisibility(ctx, second.ID, true))
	require.NoError(t, repo.DeleteTraining(ctx, first.ID))
	_, err = repo.FindTraining(ctx, first.ID)
	assert.ErrorIs(t, err, ErrTrainingNotFound)

	require.NoError(t, repo.DeleteTheme(ctx, theme.ID))
	assert.ErrorIs(t, repo.DeleteTheme(ctx, theme.ID), ErrThemeNotFound)
}

func TestRepositoryDeleteTrainingWithResources(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	tr := &Training{ID: uuid.NewString(), IsVisible: true}
	sampleContent("Bientraitance").applyTo(tr)
	require.NoError(t, repo.CreateTraining(ctx, tr))
	_, err := pool.Exec(ctx,
		`INSERT INTO resources (id, title, linked_training_id, target_roles) VALUES ($1, 'Livret', $2, '{apprenant}')`,
		uuid.NewString(), tr.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteTraining(ctx, tr.ID), ErrTrainingInUse)
	_, err = repo.FindTraining(ctx, tr.ID)
	assert.NoError(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM resources WHERE linked_training_id = $1`, tr.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteTraining(ctx, tr.ID))
}
