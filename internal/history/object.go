package history

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ObjectBackend reads and writes a single named object in remote storage.
// ReadObject returns ErrNotFound when the object does not exist yet.
type ObjectBackend interface {
	ReadObject(ctx context.Context, name string) ([]byte, error)
	WriteObject(ctx context.Context, name string, data []byte) error
}

// ObjectStore persists history as one named YAML object in a remote
// backend (Google Drive in production). The backend choice is invisible
// to callers; only the Store contract matters.
type ObjectStore struct {
	backend ObjectBackend
	name    string
}

func NewObjectStore(backend ObjectBackend, name string) (*ObjectStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("object backend is required")
	}
	if name == "" {
		return nil, fmt.Errorf("history object name is required")
	}
	return &ObjectStore{backend: backend, name: name}, nil
}

func (s *ObjectStore) Load(ctx context.Context) (History, error) {
	data, err := s.backend.ReadObject(ctx, s.name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return History{}, nil
		}
		return nil, fmt.Errorf("read history object %s: %w", s.name, err)
	}
	var h History
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse history object %s: %w", s.name, err)
	}
	if h == nil {
		h = History{}
	}
	return h, nil
}

func (s *ObjectStore) Save(ctx context.Context, h History) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.WriteObject(ctx, s.name, data); err != nil {
		return fmt.Errorf("write history object %s: %w", s.name, err)
	}
	return nil
}
