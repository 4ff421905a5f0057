package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cognicore/fanmap/internal/dataset"
	"github.com/cognicore/fanmap/pkg/fanmap"
	"github.com/cognicore/fanmap/pkg/fanmap/config"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
	"github.com/cognicore/fanmap/pkg/fanmap/store/filestore"
	"github.com/cognicore/fanmap/pkg/fanmap/store/memstore"
	"github.com/cognicore/fanmap/pkg/fanmap/store/sqlite"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fanmap",
		Usage: "cluster survey respondents by taste and map co-occurring favourites",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"FANMAP_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "survey CSV or JSONL file (overrides dataset.path)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "fallback download URL when the data file is missing",
			},
			&cli.StringFlag{
				Name:  "store-driver",
				Usage: "artifact store: sqlite, file or memory",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "database file or artifact directory",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "panic, fatal, error, warn, info, debug or trace",
			},
		},
		Before: func(c *cli.Context) error {
			lvl, err := logrus.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			logrus.SetOutput(os.Stderr)
			return nil
		},
		Commands: commands(),
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if v := c.String("data"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := c.String("url"); v != "" {
		cfg.Dataset.URL = v
	}
	if v := c.String("store-driver"); v != "" {
		cfg.Store.Driver = v
	}
	if v := c.String("store-path"); v != "" {
		cfg.Store.Path = v
	}
	return cfg, cfg.Validate()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverFile:
		return filestore.Open(cfg.Store.Path)
	case config.DriverMemory:
		return memstore.New(), nil
	default:
		if dir := filepath.Dir(cfg.Store.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.OpenSQLite(ctx, cfg.Store.Path)
	}
}

// openEngine wires config, store and logger together.
func openEngine(c *cli.Context) (*fanmap.Engine, config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cfg, err
	}
	st, err := openStore(c.Context, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("open store: %w", err)
	}
	eng, err := fanmap.New(fanmap.Options{Store: st, Config: &cfg, Logger: logrus.StandardLogger()})
	if err != nil {
		st.Close()
		return nil, cfg, err
	}
	return eng, cfg, nil
}

func loadData(c *cli.Context, cfg config.Config) (*record.Dataset, error) {
	ds, err := dataset.NewLoader(logrus.StandardLogger()).Load(c.Context, cfg.Dataset.Path, cfg.Dataset.URL)
	if err != nil {
		return nil, err
	}
	logrus.WithField("rows", ds.Len()).Debug("dataset loaded")
	return ds, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
