// Package storage keeps uploaded PDF documents on local disk.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

// MaxPDFSize is the largest document accepted by Save.
const MaxPDFSize = 10 << 20

var (
	ErrNotPDF   = errors.New("file is not a PDF document")
	ErrTooLarge = errors.New("file exceeds the 10MB limit")
	ErrNotFound = errors.New("file not found")
)

// Store is a directory of PDF documents addressed by generated names.
type Store struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SavePDF writes r under a fresh ULID-based name after checking its content is
// a PDF. It returns the stored name, which is what callers persist.
func (s *Store) SavePDF(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, 3072)
	head, err := br.Peek(3072)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if !mimetype.Detect(head).Is("application/pdf") {
		return "", ErrNotPDF
	}

	name := "doc-" + strings.ToLower(ulid.Make().String()) + ".pdf"
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(br, MaxPDFSize+1))
	closeErr := f.Close()
	if err == nil && n > MaxPDFSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}
	return name, nil
}

// Open returns a reader for a stored document. The caller closes it.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes a stored document. A missing file is not an error.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, name), nil
}
