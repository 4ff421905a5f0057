package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/fanmap/pkg/fanmap/galaxy"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/selection"
	"github.com/cognicore/fanmap/pkg/fanmap/tree"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Config is the top-level configuration file.
type Config struct {
	Dataset    Dataset    `yaml:"dataset"`
	Clustering Clustering `yaml:"clustering"`
	Store      Store      `yaml:"store"`
	Galaxy     Galaxy     `yaml:"galaxy"`
}

// Dataset says where survey responses come from. URL is only consulted
// when Path does not exist.
type Dataset struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url" validate:"omitempty,url"`
}

// Clustering holds the training parameters.
type Clustering struct {
	Attributes []string `yaml:"attributes" validate:"min=1,dive,required"`
	Target     string   `yaml:"target" validate:"required"`
	Features   int      `yaml:"features" validate:"min=1"`
	KMin       int      `yaml:"k_min" validate:"min=2"`
	KMax       int      `yaml:"k_max" validate:"gtefield=KMin"`
	Seed       int64    `yaml:"seed"`
	MaxDepth   int      `yaml:"max_depth" validate:"min=1"`
}

// Store selects the artifact backend.
type Store struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite file memory"`
	Path   string `yaml:"path" validate:"required_unless=Driver memory"`
}

// Galaxy holds the co-occurrence graph thresholds.
type Galaxy struct {
	IncludeTypes         []string `yaml:"include_types"`
	MinItemFrequency     int64    `yaml:"min_item_frequency" validate:"min=0"`
	MinPairCount         int64    `yaml:"min_pair_count" validate:"min=0"`
	MinJaccard           float64  `yaml:"min_jaccard" validate:"min=0,max=1"`
	MaxEdges             int      `yaml:"max_edges" validate:"min=-1"`
	NeighborK            int      `yaml:"neighbor_k" validate:"min=1"`
	NeighborMinPairCount int64    `yaml:"neighbor_min_pair_count" validate:"min=0"`
}

// Default returns the stock quiz setup.
func Default() Config {
	g := galaxy.DefaultOptions()
	return Config{
		Dataset: Dataset{Path: "data/starwars.csv"},
		Clustering: Clustering{
			Attributes: append([]string(nil), model.DefaultAttributes...),
			Target:     model.DefaultTarget,
			Features:   selection.DefaultFeatures,
			KMin:       model.DefaultKMin,
			KMax:       model.DefaultKMax,
			Seed:       42,
			MaxDepth:   tree.DefaultMaxDepth,
		},
		Store: Store{Driver: DriverSQLite, Path: "models/fanmap.db"},
		Galaxy: Galaxy{
			IncludeTypes:         g.IncludeTypes,
			MinItemFrequency:     g.MinItemFrequency,
			MinPairCount:         g.MinPairCount,
			MinJaccard:           g.MinJaccard,
			MaxEdges:             g.MaxEdges,
			NeighborK:            galaxy.DefaultNeighborK,
			NeighborMinPairCount: galaxy.DefaultNeighborMinPairCount,
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, internalerr.ErrInvalidConfig)
	}
	var merr *multierror.Error
	for _, fe := range verrs {
		merr = multierror.Append(merr, fmt.Errorf("%s: failed %q (%v): %w",
			fe.Namespace(), fe.Tag(), fe.Value(), internalerr.ErrInvalidConfig))
	}
	return merr.ErrorOrNil()
}

// TrainOptions maps the clustering section onto training options.
func (c Config) TrainOptions() model.Options {
	return model.Options{
		Attributes: append([]string(nil), c.Clustering.Attributes...),
		Target:     c.Clustering.Target,
		NFeatures:  c.Clustering.Features,
		KMin:       c.Clustering.KMin,
		KMax:       c.Clustering.KMax,
		Seed:       c.Clustering.Seed,
		MaxDepth:   c.Clustering.MaxDepth,
	}
}

// GalaxyOptions maps the galaxy section onto graph thresholds.
func (c Config) GalaxyOptions() galaxy.Options {
	return galaxy.Options{
		IncludeTypes:     append([]string(nil), c.Galaxy.IncludeTypes...),
		MinItemFrequency: c.Galaxy.MinItemFrequency,
		MinPairCount:     c.Galaxy.MinPairCount,
		MinJaccard:       c.Galaxy.MinJaccard,
		MaxEdges:         c.Galaxy.MaxEdges,
	}
}

// NeighborOptions maps the neighbour explorer settings.
func (c Config) NeighborOptions() galaxy.NeighborOptions {
	return galaxy.NeighborOptions{
		K:            c.Galaxy.NeighborK,
		MinPairCount: c.Galaxy.NeighborMinPairCount,
	}
}
