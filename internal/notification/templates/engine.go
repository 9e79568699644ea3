// Package templates renders the transactional emails. Every file under files/
// is named <id>.tmpl and defines the blocks "subject", "email_text" and
// "email_html".
package templates

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	texttmpl "text/template"
)

// Config controls where templates are read from.
type Config struct {
	// Dir, when set, replaces the embedded files with <Dir>/<id>.tmpl.
	Dir string
	// Reload reparses templates on every render. It only applies with Dir.
	Reload bool
}

// Rendered holds the executed blocks of one template.
type Rendered struct {
	Subject   string
	EmailHTML string
	EmailText string
}

// Handle names a template and pins the type of the data it expects.
type Handle[T any] struct {
	id string
}

func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }

var funcs = map[string]any{
	"join": strings.Join,
}

// Engine parses templates on first use and keeps them.
type Engine struct {
	src    fs.FS
	reload bool
	log    *slog.Logger

	mu   sync.Mutex
	sets map[string]*set
}

// set is one template file parsed twice: the subject and text blocks
// without escaping, the html block with contextual escaping.
type set struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	src, err := fs.Sub(EmbeddedFS, "files")
	if err != nil {
		panic(err)
	}
	if cfg.Dir != "" {
		src = os.DirFS(cfg.Dir)
	}
	log.Debug("email template engine ready", "dir", cfg.Dir, "reload", cfg.Reload)
	return &Engine{
		src:    src,
		reload: cfg.Dir != "" && cfg.Reload,
		log:    log,
		sets:   make(map[string]*set),
	}
}

// Preload parses every template file so a broken template fails at startup
// rather than on the first email.
func (e *Engine) Preload() error {
	names, err := fs.Glob(e.src, "*.tmpl")
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := e.lookup(strings.TrimSuffix(name, ".tmpl")); err != nil {
			return err
		}
	}
	e.log.Debug("email templates preloaded", "count", len(names))
	return nil
}

// Render executes the template h names with data.
func Render[T any](_ context.Context, e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.render(h.id, data)
}

func (e *Engine) render(id string, data any) (Rendered, error) {
	s, err := e.lookup(id)
	if err != nil {
		return Rendered{}, err
	}

	var out Rendered
	var buf bytes.Buffer
	if s.text.Lookup("subject") != nil {
		if err := s.text.ExecuteTemplate(&buf, "subject", data); err != nil {
			return Rendered{}, fmt.Errorf("render subject: %w", err)
		}
		out.Subject = strings.TrimSpace(buf.String())
		buf.Reset()
	}
	if s.text.Lookup("email_text") != nil {
		if err := s.text.ExecuteTemplate(&buf, "email_text", data); err != nil {
			return Rendered{}, fmt.Errorf("render email_text: %w", err)
		}
		out.EmailText = strings.TrimSpace(buf.String())
		buf.Reset()
	}
	if s.html.Lookup("email_html") != nil {
		if err := s.html.ExecuteTemplate(&buf, "email_html", data); err != nil {
			return Rendered{}, fmt.Errorf("render email_html: %w", err)
		}
		out.EmailHTML = buf.String()
	}
	return out, nil
}

func (e *Engine) lookup(id string) (*set, error) {
	if e.reload {
		return e.parse(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sets[id]; ok {
		return s, nil
	}
	s, err := e.parse(id)
	if err != nil {
		return nil, err
	}
	e.sets[id] = s
	return s, nil
}

func (e *Engine) parse(id string) (*set, error) {
	b, err := fs.ReadFile(e.src, id+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", id, err)
	}
	text, err := texttmpl.New(id).Funcs(funcs).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", id, err)
	}
	html, err := htmltmpl.New(id).Funcs(funcs).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", id, err)
	}
	return &set{text: text, html: html}, nil
}
