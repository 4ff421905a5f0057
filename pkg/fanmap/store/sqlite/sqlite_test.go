package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
	"github.com/cognicore/fanmap/pkg/fanmap/store/storetest"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "fanmap.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return st
}

func TestSQLiteStoreBehaviour(t *testing.T) {
	storetest.Run(t, openTemp)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fanmap.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	b := storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC))
	if err := st.SaveBundle(ctx, b); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, err := st.LoadBundle(ctx)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("ID = %s, want %s", got.ID, b.ID)
	}
	if !got.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, b.CreatedAt)
	}
}

func TestSQLiteRefusesMixedArtifacts(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	st := openTemp(t).(*sqliteStore)
	defer st.Close()

	if err := st.SaveBundle(ctx, storetest.Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	var stale []byte
	if err := st.db.QueryRowContext(ctx, `SELECT payload FROM artifacts WHERE name=?`, model.ArtifactEncoder).Scan(&stale); err != nil {
		t.Fatalf("read encoder: %v", err)
	}
	if err := st.SaveBundle(ctx, storetest.Bundle(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", t0)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	// Put the older encoder back behind the store's back.
	if _, err := st.db.ExecContext(ctx, `UPDATE artifacts SET payload=? WHERE name=?`, stale, model.ArtifactEncoder); err != nil {
		t.Fatalf("overwrite encoder: %v", err)
	}
	if _, err := st.LoadBundle(ctx); !errors.Is(err, internalerr.ErrBundleMismatch) {
		t.Fatalf("expected bundle mismatch, got %v", err)
	}

	if _, err := st.db.ExecContext(ctx, `DELETE FROM artifacts WHERE name=?`, model.ArtifactEncoder); err != nil {
		t.Fatalf("delete encoder: %v", err)
	}
	if _, err := st.LoadBundle(ctx); !errors.Is(err, internalerr.ErrMissingArtifact) {
		t.Fatalf("expected missing artifact, got %v", err)
	}
}

func TestSQLiteHistory(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	defer st.Close()

	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	ids := []string{"01HXAAAAAAAAAAAAAAAAAAAAAA", "01HXBBBBBBBBBBBBBBBBBBBBBB", "01HXCCCCCCCCCCCCCCCCCCCCCC"}
	for i, id := range ids {
		if err := st.SaveBundle(ctx, storetest.Bundle(t, id, t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveBundle: %v", err)
		}
	}

	infos, err := st.ListBundles(ctx, 0)
	if err != nil {
		t.Fatalf("ListBundles: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(infos))
	}
	for i, info := range infos {
		if want := ids[len(ids)-1-i]; info.ID != want {
			t.Errorf("entry %d = %s, want %s", i, info.ID, want)
		}
		if info.Current != (i == 0) {
			t.Errorf("entry %d current = %v", i, info.Current)
		}
	}
	if !infos[2].CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", infos[2].CreatedAt, t0)
	}
}
