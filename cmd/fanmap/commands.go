package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/cognicore/fanmap/internal/dataset"
	"github.com/cognicore/fanmap/pkg/fanmap/galaxy"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "train",
			Usage:  "select top features, sweep k and store the best clustering",
			Action: trainAction,
		},
		{
			Name:      "predict",
			Usage:     "assign one respondent to a cluster",
			ArgsUsage: "attribute=value ...",
			Action:    predictAction,
		},
		{
			Name:   "analyze",
			Usage:  "summarise every cluster over the dataset",
			Action: analyzeAction,
		},
		{
			Name:  "galaxy",
			Usage: "build the co-occurrence graph of favourite items",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "types", Usage: "item types to include"},
				&cli.Int64Flag{Name: "min-freq", Value: -1, Usage: "minimum item frequency"},
				&cli.Int64Flag{Name: "min-pair", Value: -1, Usage: "minimum pair count"},
				&cli.Float64Flag{Name: "min-jaccard", Value: -1, Usage: "minimum Jaccard similarity"},
				&cli.IntFlag{Name: "max-edges", Value: -2, Usage: "maximum edges, -1 for no limit"},
				&cli.IntFlag{Name: "cluster", Value: -1, Usage: "restrict to respondents of one cluster"},
				&cli.StringFlag{Name: "html", Usage: "write an interactive page to this file instead of JSON"},
			},
			Action: galaxyAction,
		},
		{
			Name:      "neighbors",
			Usage:     "list the items that co-occur most with one item",
			ArgsUsage: "label",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "k", Usage: "number of neighbours"},
				&cli.Int64Flag{Name: "min-pair", Value: -1, Usage: "minimum pair count"},
			},
			Action: neighborsAction,
		},
		{
			Name:   "status",
			Usage:  "show the current bundle and training history",
			Action: statusAction,
		},
		{
			Name:  "sample",
			Usage: "write a synthetic survey CSV",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "n", Value: 400, Usage: "number of respondents"},
				&cli.Int64Flag{Name: "seed", Value: 42, Usage: "random seed"},
				&cli.StringFlag{Name: "out", Usage: "output file, stdout when empty"},
			},
			Action: sampleAction,
		},
	}
}

func trainAction(c *cli.Context) error {
	eng, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	ds, err := loadData(c, cfg)
	if err != nil {
		return err
	}
	b, err := eng.Train(c.Context, ds)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"bundle_id":    b.ID,
		"k":            b.K(),
		"silhouette":   b.Silhouette,
		"top_features": b.TopFeatures,
		"sweep":        b.Sweep,
	})
}

func predictAction(c *cli.Context) error {
	prefs, err := parsePrefs(c.Args().Slice())
	if err != nil {
		return err
	}
	eng, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	p, err := eng.Predict(c.Context, prefs)
	if err != nil {
		return err
	}
	return printJSON(c, p)
}

func parsePrefs(args []string) (map[string]string, error) {
	prefs := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("preference %q is not attribute=value: %w", a, internalerr.ErrInvalidInput)
		}
		prefs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return prefs, nil
}

func analyzeAction(c *cli.Context) error {
	eng, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	ds, err := loadData(c, cfg)
	if err != nil {
		return err
	}
	report, err := eng.Analyze(c.Context, ds)
	if err != nil {
		return err
	}
	return printJSON(c, report)
}

func galaxyAction(c *cli.Context) error {
	eng, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	ds, err := loadData(c, cfg)
	if err != nil {
		return err
	}

	opts := cfg.GalaxyOptions()
	if types := c.StringSlice("types"); len(types) > 0 {
		opts.IncludeTypes = types
	}
	if v := c.Int64("min-freq"); v >= 0 {
		opts.MinItemFrequency = v
	}
	if v := c.Int64("min-pair"); v >= 0 {
		opts.MinPairCount = v
	}
	if v := c.Float64("min-jaccard"); v >= 0 {
		opts.MinJaccard = v
	}
	if v := c.Int("max-edges"); v >= -1 {
		opts.MaxEdges = v
	}

	var view galaxy.View
	if cluster := c.Int("cluster"); cluster >= 0 {
		view, err = eng.ClusterGalaxy(c.Context, ds, cluster, opts)
		if err != nil {
			return err
		}
	} else {
		view = eng.Galaxy(ds, opts)
	}

	if path := c.String("html"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := galaxy.RenderHTML(f, view, galaxy.DefaultRenderOptions()); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return printJSON(c, view)
}

func neighborsAction(c *cli.Context) error {
	label := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("neighbors: label required: %w", internalerr.ErrInvalidInput)
	}
	eng, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	ds, err := loadData(c, cfg)
	if err != nil {
		return err
	}
	opts := cfg.NeighborOptions()
	if k := c.Int("k"); k > 0 {
		opts.K = k
	}
	if v := c.Int64("min-pair"); v >= 0 {
		opts.MinPairCount = v
	}
	item, neighbors := eng.Neighbors(ds, label, opts)
	if item == "" {
		return fmt.Errorf("no item matches %q: %w", label, internalerr.ErrInvalidInput)
	}
	return printJSON(c, map[string]any{"item": item, "neighbors": neighbors})
}

func statusAction(c *cli.Context) error {
	eng, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	st, err := eng.Status(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, st)
}

func sampleAction(c *cli.Context) error {
	ds := dataset.Sample(c.Int("n"), c.Int64("seed"))
	path := c.String("out")
	if path == "" {
		return dataset.WriteCSV(c.App.Writer, ds)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
