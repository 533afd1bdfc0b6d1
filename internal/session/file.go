package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v2"
)

// Ensure FileStore implements ReadWriter interface.
var _ ReadWriter = (*FileStore)(nil)

// YAML file backed session, readable by every process of the operator
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}

	return values, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	_, span := tracer.Start(ctx, "FileStore.Get", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load session file")
		return "", err
	}

	value, ok := values[key]
	if !ok || value == "" {
		span.SetStatus(codes.Ok, "key not found")
		return "", ErrNotFound
	}

	span.SetStatus(codes.Ok, "found key")
	return value, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	_, span := tracer.Start(ctx, "FileStore.Set", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load session file")
		return err
	}
	values[key] = value

	raw, err := yaml.Marshal(values)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal session")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session directory")
		return err
	}

	// credentials live here
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write session file")
		return err
	}

	span.SetStatus(codes.Ok, "stored key")
	return nil
}
