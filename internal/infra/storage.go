package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/replika-labs/wms-01-sub000/internal/config"
)

// Storage persists uploaded files (product photos, progress report photos).
// Save returns the storage-relative path to keep in the database and the
// public URL clients use to fetch the file.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (storedPath, url string, err error)
	Delete(ctx context.Context, storedPath string) error
}

// NewStorage picks the backend configured by STORAGE_DRIVER.
func NewStorage(cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL)
	case "sftp":
		return NewSFTPStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// LocalStorage writes files below a directory served by the router under baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the root directory on disk.
func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	rel, err := cleanName(name)
	if err != nil {
		return "", "", err
	}
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", fmt.Errorf("storage: mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", "", fmt.Errorf("storage: create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", "", fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("storage: close: %w", err)
	}
	return rel, s.baseURL + "/" + rel, nil
}

func (s *LocalStorage) Delete(_ context.Context, storedPath string) error {
	rel, err := cleanName(storedPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cleanName rejects absolute paths and anything escaping the storage root.
func cleanName(name string) (string, error) {
	rel := path.Clean("/" + filepath.ToSlash(name))[1:]
	if rel == "" || rel == "." {
		return "", fmt.Errorf("storage: invalid name %q", name)
	}
	return rel, nil
}
