package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
	"github.com/cognicore/fanmap/pkg/fanmap/store/storetest"
)

var _ store.Store = (*Store)(nil)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestFileStoreBehaviour(t *testing.T) {
	storetest.Run(t, openTemp)
}

func TestFileStoreWritesNamedFiles(t *testing.T) {
	st := openTemp(t).(*Store)
	b := storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", time.Now())
	if err := st.SaveBundle(context.Background(), b); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	files, err := st.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"encoder.msgpack", "kmeans_model.msgpack", "top_features.msgpack"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}

	entries, _ := os.ReadDir(st.Dir())
	if len(entries) != len(want) {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileStoreRefusesMixedArtifacts(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	st := openTemp(t).(*Store)

	if err := st.SaveBundle(ctx, storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	stale, err := os.ReadFile(st.Path(model.ArtifactModel))
	if err != nil {
		t.Fatalf("read model: %v", err)
	}
	if err := st.SaveBundle(ctx, storetest.Bundle(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if err := os.WriteFile(st.Path(model.ArtifactModel), stale, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	if _, err := st.LoadBundle(ctx); !errors.Is(err, internalerr.ErrBundleMismatch) {
		t.Fatalf("expected bundle mismatch, got %v", err)
	}
	infos, err := st.ListBundles(ctx, 5)
	if err != nil || len(infos) != 0 {
		t.Errorf("mixed directory should list nothing, got %v %v", infos, err)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t).(*Store)
	if err := st.SaveBundle(ctx, storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", time.Now())); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if err := os.Remove(st.Path(model.ArtifactTopFeatures)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := st.LoadBundle(ctx); !errors.Is(err, internalerr.ErrMissingArtifact) {
		t.Fatalf("expected missing artifact, got %v", err)
	}
	infos, err := st.ListBundles(ctx, 5)
	if err != nil || len(infos) != 0 {
		t.Errorf("broken directory should list nothing, got %v %v", infos, err)
	}
}
