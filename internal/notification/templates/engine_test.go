package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadParsesEmbeddedTemplates(t *testing.T) {
	require.NoError(t, NewEngine(Config{}, nil).Preload())
}

func TestRenderJoinsFormationsInText(t *testing.T) {
	e := NewEngine(Config{}, nil)
	out, err := Render(context.Background(), e, ContactAdmin, ContactAdminData{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Message: "Bonjour", InterestedFormations: []string{"Douleur", "Bientraitance"},
	})
	require.NoError(t, err)
	assert.Contains(t, out.EmailText, "Formations d'intérêt : Douleur, Bientraitance")
	assert.Contains(t, out.EmailHTML, "<li>Bientraitance</li>")
}

func TestDirOverridesAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.password_reset.tmpl")
	write := func(subject string) {
		body := `{{define "subject"}}` + subject + `{{end}}{{define "email_text"}}{{.ResetURL}}{{end}}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	data := PasswordResetData{FirstName: "Ada", ResetURL: "https://x/reset"}

	write("first")
	e := NewEngine(Config{Dir: dir, Reload: true}, nil)
	out, err := Render(context.Background(), e, PasswordReset, data)
	require.NoError(t, err)
	assert.Equal(t, "first", out.Subject)
	assert.Equal(t, "https://x/reset", out.EmailText)
	assert.Empty(t, out.EmailHTML)

	write("second")
	out, err = Render(context.Background(), e, PasswordReset, data)
	require.NoError(t, err)
	assert.Equal(t, "second", out.Subject)
}

func TestRenderFailsOnMissingTemplate(t *testing.T) {
	e := NewEngine(Config{Dir: t.TempDir()}, nil)
	_, err := Render(context.Background(), e, PasswordReset, PasswordResetData{})
	assert.Error(t, err)
}
