// Package storage persists uploaded gallery images and published sitemap
// files, either on the local filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Backend stores objects under slash-separated keys.
type Backend interface {
	// Put writes data under key and returns the public URL of the object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the public URL of key without touching the backend.
	URL(key string) string
}

// Config contains filesystem storage configuration.
type Config struct {
	BasePath  string // Directory objects are written under
	PublicURL string // URL prefix the directory is served from, e.g. "/public"
}

// DefaultConfig returns default filesystem storage configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:  "public",
		PublicURL: "/public",
	}
}

// FS stores objects on the local filesystem.
type FS struct {
	config Config
}

// New creates the base directory and returns a filesystem backend.
func New(config Config) (*FS, error) {
	if config.BasePath == "" {
		config.BasePath = DefaultConfig().BasePath
	}
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FS{config: config}, nil
}

func (s *FS) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	full, err := s.fullPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *FS) Delete(ctx context.Context, key string) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *FS) Exists(ctx context.Context, key string) (bool, error) {
	full, err := s.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FS) URL(key string) string {
	return joinURL(s.config.PublicURL, key)
}

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

func (s *FS) fullPath(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.config.BasePath, filepath.FromSlash(clean)), nil
}

// CleanKey normalizes key and rejects empty or parent-relative keys.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	clean := path.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

func joinURL(prefix, key string) string {
	if prefix == "" {
		return "/" + strings.TrimPrefix(key, "/")
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

// ContentTypeFor guesses a content type from the key's extension.
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
