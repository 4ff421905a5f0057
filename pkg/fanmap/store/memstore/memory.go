package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
)

// Store is an in-memory implementation of store.Store for tests.
// Bundles go through the same codec as the persistent stores.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]store.Artifact
	history   map[string]store.BundleInfo
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		artifacts: make(map[string]store.Artifact),
		history:   make(map[string]store.BundleInfo),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveBundle replaces the current artifacts.
func (s *Store) SaveBundle(ctx context.Context, b *model.Bundle) error {
	arts, err := store.EncodeBundle(b)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range arts {
		s.artifacts[a.Name] = a
	}
	s.history[b.ID] = store.Info(b)
	return nil
}

// PutArtifact overwrites a single artifact. It exists so callers can
// simulate partially written or mixed bundles.
func (s *Store) PutArtifact(a store.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.Name] = a
}

// DeleteArtifact removes a single artifact.
func (s *Store) DeleteArtifact(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, name)
}

// LoadBundle decodes the current artifacts.
func (s *Store) LoadBundle(ctx context.Context) (*model.Bundle, error) {
	s.mu.RLock()
	arts := make(map[string]store.Artifact, len(s.artifacts))
	for k, v := range s.artifacts {
		arts[k] = v
	}
	s.mu.RUnlock()

	if len(arts) == 0 {
		return nil, fmt.Errorf("no trained bundle: %w", internalerr.ErrMissingArtifact)
	}
	return store.DecodeBundle(arts)
}

// ListBundles returns saved runs, newest first.
func (s *Store) ListBundles(ctx context.Context, limit int) ([]store.BundleInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.artifacts[model.ArtifactModel].BundleID
	out := make([]store.BundleInfo, 0, len(s.history))
	for _, info := range s.history {
		info.Current = info.ID == current
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
