package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/training"
)

// FileModelStore persists model artifacts on the local filesystem. Writes go
// through a temp file and rename so a crash mid-write never corrupts the
// current artifact.
type FileModelStore struct {
	path string
}

func NewFileModelStore(path string) *FileModelStore {
	return &FileModelStore{path: path}
}

func (s *FileModelStore) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "model-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

func (s *FileModelStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, training.ErrNoArtifact
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return data, nil
}

// Backup copies the current artifact to a timestamped sibling file.
func (s *FileModelStore) Backup(ctx context.Context) (string, error) {
	data, err := s.Load(ctx)
	if err != nil {
		return "", err
	}

	backupPath := fmt.Sprintf("%s.%s.bak", s.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return backupPath, nil
}

func (s *FileModelStore) Info(_ context.Context) (training.ArtifactInfo, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return training.ArtifactInfo{Exists: false, Path: s.path}, nil
		}
		return training.ArtifactInfo{}, fmt.Errorf("stating artifact: %w", err)
	}
	return training.ArtifactInfo{
		Exists:     true,
		Path:       s.path,
		SizeBytes:  fi.Size(),
		ModifiedAt: fi.ModTime(),
	}, nil
}
