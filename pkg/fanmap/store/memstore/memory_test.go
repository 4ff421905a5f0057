package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
	"github.com/cognicore/fanmap/pkg/fanmap/store/storetest"
)

var _ store.Store = (*Store)(nil)

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestMixedArtifactsRefused(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

	old := New()
	if err := old.SaveBundle(ctx, storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	s := New()
	if err := s.SaveBundle(ctx, storetest.Bundle(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	// Simulate a crash between writes: encoder from the older run.
	s.PutArtifact(old.artifacts[model.ArtifactEncoder])
	if _, err := s.LoadBundle(ctx); !errors.Is(err, internalerr.ErrBundleMismatch) {
		t.Fatalf("expected bundle mismatch, got %v", err)
	}
}

func TestMissingArtifactRefused(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SaveBundle(ctx, storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", time.Now())); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	s.DeleteArtifact(model.ArtifactTopFeatures)
	if _, err := s.LoadBundle(ctx); !errors.Is(err, internalerr.ErrMissingArtifact) {
		t.Fatalf("expected missing artifact, got %v", err)
	}
}

func TestListBundlesHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"01HXAAAAAAAAAAAAAAAAAAAAAA", "01HXBBBBBBBBBBBBBBBBBBBBBB", "01HXCCCCCCCCCCCCCCCCCCCCCC"} {
		if err := s.SaveBundle(ctx, storetest.Bundle(t, id, t0)); err != nil {
			t.Fatalf("SaveBundle: %v", err)
		}
	}

	infos, err := s.ListBundles(ctx, 2)
	if err != nil {
		t.Fatalf("ListBundles: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}
	if infos[0].ID != "01HXCCCCCCCCCCCCCCCCCCCCCC" || !infos[0].Current {
		t.Errorf("newest bundle should be first and current: %+v", infos[0])
	}
	if infos[1].Current {
		t.Error("older bundle should not be current")
	}
}
