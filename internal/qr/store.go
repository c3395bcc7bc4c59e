package qr

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sk-sanagustin/yep-id/internal/models"
)

// Store keeps rendered participant codes on disk as <dir>/<participant id>.png.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Path(participantID string) string {
	return filepath.Join(s.dir, filepath.Base(participantID)+".png")
}

// Save renders p's code and writes it to disk, replacing any older image.
func (s *Store) Save(p models.Participant) ([]byte, error) {
	png, err := ParticipantPNG(p)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.Path(p.ID), png, 0o644); err != nil {
		return nil, err
	}
	return png, nil
}

// Ensure returns the stored image for p, generating it first when missing.
func (s *Store) Ensure(p models.Participant) ([]byte, error) {
	png, err := os.ReadFile(s.Path(p.ID))
	if err == nil {
		return png, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s.Save(p)
}
