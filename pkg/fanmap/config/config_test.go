package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fanmap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Clustering.KMin != 3 || cfg.Clustering.KMax != 9 {
		t.Errorf("k range = [%d,%d], want [3,9]", cfg.Clustering.KMin, cfg.Clustering.KMax)
	}
	if cfg.Clustering.Features != 8 {
		t.Errorf("features = %d, want 8", cfg.Clustering.Features)
	}
	if cfg.Galaxy.MinJaccard != 0.10 || cfg.Galaxy.MaxEdges != 1500 {
		t.Errorf("galaxy defaults = %+v", cfg.Galaxy)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
clustering:
  k_max: 6
  features: 10
store:
  driver: file
  path: ./models
galaxy:
  include_types: [planet, robot]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clustering.KMax != 6 || cfg.Clustering.Features != 10 {
		t.Errorf("overrides not applied: %+v", cfg.Clustering)
	}
	if cfg.Clustering.KMin != 3 {
		t.Errorf("unset k_min should keep default, got %d", cfg.Clustering.KMin)
	}
	if cfg.Clustering.Target != "fav_film" {
		t.Errorf("unset target should keep default, got %q", cfg.Clustering.Target)
	}
	if cfg.Store.Driver != DriverFile || cfg.Store.Path != "./models" {
		t.Errorf("store = %+v", cfg.Store)
	}

	g := cfg.GalaxyOptions()
	if len(g.IncludeTypes) != 2 || g.IncludeTypes[0] != "planet" {
		t.Errorf("include types = %v", g.IncludeTypes)
	}
	if g.MinPairCount != 12 {
		t.Errorf("unset min_pair_count should keep default, got %d", g.MinPairCount)
	}

	opts := cfg.TrainOptions()
	if opts.KMax != 6 || opts.NFeatures != 10 || len(opts.Attributes) != 6 {
		t.Errorf("train options = %+v", opts)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Clustering.KMin = 1
	cfg.Clustering.Target = ""
	cfg.Store.Driver = "redis"
	cfg.Galaxy.MinJaccard = 1.5

	err := cfg.Validate()
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	msg := err.Error()
	for _, field := range []string{"KMin", "Target", "Driver", "MinJaccard"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error should mention %s: %s", field, msg)
		}
	}
}

func TestValidateKRange(t *testing.T) {
	cfg := Default()
	cfg.Clustering.KMin, cfg.Clustering.KMax = 6, 4
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("k_max below k_min should be rejected, got %v", err)
	}
}

func TestValidateMemoryStoreNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Store = Store{Driver: DriverMemory}
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory store without path should validate: %v", err)
	}
	cfg.Store = Store{Driver: DriverSQLite}
	if err := cfg.Validate(); err == nil {
		t.Error("sqlite store without path should be rejected")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/fanmap.yaml"); err == nil {
		t.Error("Should error on nonexistent file")
	}

	path := writeConfig(t, "clustering: [not, a, map]\n")
	if _, err := Load(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("malformed YAML should be invalid config, got %v", err)
	}

	path = writeConfig(t, "dataset:\n  url: not a url\n")
	if _, err := Load(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("bad url should be invalid config, got %v", err)
	}
}
