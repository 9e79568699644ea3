package resource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, admin, Input{
		Title:            "  Livret d'accueil ",
		Description:      "À lire avant la première séance",
		LinkedTrainingID: trainingID,
		TargetRoles:      []string{"apprenant", "apprenant", " professionnel"},
	}, pdf("livret.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Livret d'accueil", v.Title)
	assert.Equal(t, "livret.pdf", v.OriginalFileName)
	assert.Equal(t, []string{"apprenant", "professionnel"}, v.TargetRoles)
	assert.Equal(t, "Management bienveillant", v.TrainingTitle)
	require.NotNil(t, v.CreatedBy)
	assert.Equal(t, adminID, *v.CreatedBy)
	assert.True(t, v.CreatedAt.Equal(f.now))
	assert.FileExists(t, filepath.Join(f.dir, v.PDFPath))

	d := v.DTO()
	assert.True(t, d.HasPDF)
	require.NotNil(t, d.CreatedBy)
	assert.Equal(t, "Ada", d.CreatedBy.FirstName)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   Input
		pdf  *Upload
		want error
	}{
		{"missing title", Input{LinkedTrainingID: trainingID}, pdf("a.pdf"), ErrTitleRequired},
		{"missing training", Input{Title: "Livret"}, pdf("a.pdf"), ErrTitleRequired},
		{"missing pdf", Input{Title: "Livret", LinkedTrainingID: trainingID}, nil, ErrPDFRequired},
		{"unknown training", Input{Title: "Livret", LinkedTrainingID: missingID}, pdf("a.pdf"), ErrTrainingNotFound},
		{"malformed training", Input{Title: "Livret", LinkedTrainingID: "nope"}, pdf("a.pdf"), ErrTrainingNotFound},
		{"admin audience", Input{Title: "Livret", LinkedTrainingID: trainingID, TargetRoles: []string{"administrateur"}}, pdf("a.pdf"), ErrInvalidAudience},
		{"not a pdf", Input{Title: "Livret", LinkedTrainingID: trainingID}, &Upload{File: strings.NewReader("hello"), Filename: "a.txt"}, ErrInvalidPDF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, admin, tc.in, tc.pdf)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Create(ctx, grace, Input{Title: "Livret", LinkedTrainingID: trainingID}, pdf("a.pdf"))
	assert.ErrorIs(t, err, ErrAdminOnly)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.repo.resources)
}

func TestUpdateReplacesDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, "Livret", trainingID, "apprenant")
	old := v.PDFPath

	title, empty := "Livret 2025", ""
	updated, err := f.svc.Update(ctx, admin, v.ID, Patch{
		Title:            &title,
		LinkedTrainingID: &empty,
		TargetRoles:      []string{"professionnel"},
		SetTargetRoles:   true,
	}, pdf("livret-2025.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Livret 2025", updated.Title)
	assert.Equal(t, trainingID, updated.LinkedTrainingID)
	assert.Equal(t, []string{"professionnel"}, updated.TargetRoles)
	assert.Equal(t, "livret-2025.pdf", updated.OriginalFileName)
	assert.NotEqual(t, old, updated.PDFPath)
	assert.NoFileExists(t, filepath.Join(f.dir, old))
	assert.FileExists(t, filepath.Join(f.dir, updated.PDFPath))

	kept, err := f.svc.Update(ctx, admin, v.ID, Patch{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"professionnel"}, kept.TargetRoles)
	assert.Equal(t, updated.PDFPath, kept.PDFPath)

	other := otherID
	moved, err := f.svc.Update(ctx, admin, v.ID, Patch{LinkedTrainingID: &other}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bientraitance", moved.TrainingTitle)

	missing := missingID
	_, err = f.svc.Update(ctx, admin, v.ID, Patch{LinkedTrainingID: &missing}, nil)
	assert.ErrorIs(t, err, ErrTrainingNotFound)
	_, err = f.svc.Update(ctx, admin, missingID, Patch{Title: &title}, nil)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	_, err = f.svc.Update(ctx, grace, v.ID, Patch{Title: &title}, nil)
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestDeleteRemovesDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, "Livret", trainingID, "apprenant")

	assert.ErrorIs(t, f.svc.Delete(ctx, grace, v.ID), ErrAdminOnly)
	require.NoError(t, f.svc.Delete(ctx, admin, v.ID))
	assert.NoFileExists(t, filepath.Join(f.dir, v.PDFPath))
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, v.ID), ErrResourceNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "Livret", trainingID, "apprenant")
	second := f.create(t, "Fiche", otherID, "professionnel")

	rows, total, err := f.svc.List(ctx, admin, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)

	rows, total, err = f.svc.List(ctx, admin, trainingID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, first.ID, rows[0].ID)

	rows, total, err = f.svc.List(ctx, admin, "not-a-uuid", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)

	_, _, err = f.svc.List(ctx, grace, "", 1, 20)
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestListMineFollowsContractsAndRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learners := f.create(t, "Livret apprenant", trainingID, "apprenant")
	both := f.create(t, "Charte", trainingID, "apprenant", "professionnel")
	f.create(t, "Fiche autre formation", otherID, "apprenant")

	rows, err := f.svc.ListMine(ctx, grace)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, both.ID, rows[0].ID)
	assert.Equal(t, learners.ID, rows[1].ID)

	rows, err = f.svc.ListMine(ctx, alan)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, both.ID, rows[0].ID)

	rows, err = f.svc.ListMine(ctx, Actor{UserID: missingID, Role: "apprenant"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestDocumentAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learners := f.create(t, "Livret", trainingID, "apprenant")
	elsewhere := f.create(t, "Fiche", otherID, "apprenant", "professionnel")

	rc, res, err := f.svc.Document(ctx, grace, learners.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(data))
	assert.Equal(t, "support.pdf", res.DownloadName())

	_, _, err = f.svc.Document(ctx, alan, learners.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, _, err = f.svc.Document(ctx, grace, elsewhere.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, _, err = f.svc.Document(ctx, grace, missingID)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	rc, _, err = f.svc.Document(ctx, admin, elsewhere.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, os.Remove(filepath.Join(f.dir, learners.PDFPath)))
	_, _, err = f.svc.Document(ctx, grace, learners.ID)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "livret.pdf", (&Resource{Title: "Livret", OriginalFileName: "livret.pdf"}).DownloadName())
	assert.Equal(t, "Livret.pdf", (&Resource{Title: "Livret"}).DownloadName())
}
