package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
)

// Ext is the file extension of a serialised artifact.
const Ext = ".msgpack"

// Store keeps one file per artifact in a directory.
type Store struct {
	dir string
}

// Open prepares dir for use, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file holding the named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveBundle writes every artifact to a temp file first and renames them
// into place only once all three are on disk.
func (s *Store) SaveBundle(ctx context.Context, b *model.Bundle) error {
	arts, err := store.EncodeBundle(b)
	if err != nil {
		return err
	}

	tmps := make([]string, 0, len(arts))
	defer func() {
		for _, t := range tmps {
			os.Remove(t)
		}
	}()
	for _, a := range arts {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.CreateTemp(s.dir, "."+a.Name+"-*")
		if err != nil {
			return err
		}
		tmps = append(tmps, f.Name())
		if _, err := f.Write(a.Payload); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", a.Name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", a.Name, err)
		}
	}
	for i, a := range arts {
		if err := os.Rename(tmps[i], s.Path(a.Name)); err != nil {
			return fmt.Errorf("install %s: %w", a.Name, err)
		}
	}
	tmps = nil
	return nil
}

// LoadBundle reads the three artifact files. Absent files surface as
// ErrMissingArtifact from the decoder.
func (s *Store) LoadBundle(ctx context.Context) (*model.Bundle, error) {
	arts := make(map[string]store.Artifact)
	for _, name := range model.ArtifactNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(s.Path(name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		arts[name] = store.Artifact{Name: name, Payload: data}
	}
	if len(arts) == 0 {
		return nil, fmt.Errorf("no trained bundle in %s: %w", s.dir, internalerr.ErrMissingArtifact)
	}
	return store.DecodeBundle(arts)
}

// ListBundles reports the current bundle only; a directory holds no history.
// An incomplete or mixed directory lists nothing.
func (s *Store) ListBundles(ctx context.Context, limit int) ([]store.BundleInfo, error) {
	b, err := s.LoadBundle(ctx)
	if errors.Is(err, internalerr.ErrMissingArtifact) || errors.Is(err, internalerr.ErrBundleMismatch) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info := store.Info(b)
	info.Current = true
	return []store.BundleInfo{info}, nil
}

// Files lists the artifact files present in the directory.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
