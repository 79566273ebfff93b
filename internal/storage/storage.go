package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidPath  = errors.New("invalid blob path")
)

// BlobStore persists uploaded files under slash separated keys
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps blobs on the local filesystem below root
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Save writes to a temp file and renames it into place
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("failed to move blob into place: %w", err)
	}
	return n, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

// Delete removes a blob; a missing blob is not an error
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// SanitizeFilename keeps letters, digits, dot, dash and underscore
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	safe := strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if safe == "" {
		return "file"
	}
	if len(safe) > 80 {
		safe = safe[len(safe)-80:]
	}
	return safe
}

// GenerateUniqueFilename builds <folder>/<yyyymmdd>_<uuid>_<name><ext>
func GenerateUniqueFilename(folder, originalFilename, ext string) string {
	name := SanitizeFilename(strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename)))
	return fmt.Sprintf("%s/%s_%s_%s%s", folder, time.Now().UTC().Format("20060102"), uuid.New().String(), name, ext)
}
