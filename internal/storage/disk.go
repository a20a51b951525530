// Package storage is the file-storage collaborator behind /upload. The
// chat engine only ever sees the descriptor this package returns.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"realtime-chat/internal/models"

	"github.com/google/uuid"
)

// DiskStore saves uploads under a local directory and serves them back by
// URL path. Stored names are uuid-prefixed so two uploads of "cat.png"
// never collide.
type DiskStore struct {
	dir     string
	urlBase string
}

func NewDiskStore(dir, urlBase string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir, urlBase: urlBase}, nil
}

// Dir returns the directory uploads are written to.
func (s *DiskStore) Dir() string { return s.dir }

// Save writes one multipart file to disk and returns its descriptor.
func (s *DiskStore) Save(file multipart.File, header *multipart.FileHeader) (*models.FileInfo, error) {
	name := filepath.Base(header.Filename)
	stored := uuid.NewString() + "-" + name

	dst, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &models.FileInfo{
		URL:  s.urlBase + stored,
		Name: name,
		Type: header.Header.Get("Content-Type"),
	}, nil
}
