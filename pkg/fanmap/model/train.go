package model

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
	"github.com/cognicore/fanmap/pkg/fanmap/selection"
	"github.com/cognicore/fanmap/pkg/fanmap/tree"
)

// Survey attributes used by the quiz.
var (
	DefaultAttributes = []string{"fav_heroe", "fav_villain", "fav_soundtrack", "fav_spaceship", "fav_planet", "fav_robot"}
	DefaultTarget     = "fav_film"
)

// Sweep bounds for the number of clusters, inclusive.
const (
	DefaultKMin = 3
	DefaultKMax = 9
)

// Options configures Train.
type Options struct {
	Attributes []string
	Target     string
	NFeatures  int
	KMin       int
	KMax       int
	Seed       int64
	MaxDepth   int
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// DefaultOptions returns the quiz training setup.
func DefaultOptions() Options {
	return Options{
		Attributes: append([]string(nil), DefaultAttributes...),
		Target:     DefaultTarget,
		NFeatures:  selection.DefaultFeatures,
		KMin:       DefaultKMin,
		KMax:       DefaultKMax,
		Seed:       kmeans.DefaultSeed,
		MaxDepth:   tree.DefaultMaxDepth,
	}
}

func (o *Options) withDefaults() {
	d := DefaultOptions()
	if len(o.Attributes) == 0 {
		o.Attributes = d.Attributes
	}
	if o.Target == "" {
		o.Target = d.Target
	}
	if o.NFeatures <= 0 {
		o.NFeatures = d.NFeatures
	}
	if o.KMin <= 0 {
		o.KMin = d.KMin
	}
	if o.KMax <= 0 {
		o.KMax = d.KMax
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Train selects the top features, then fits k-means for every k in
// [KMin, KMax] on the L2 normalised feature rows and keeps the model with
// the highest cosine silhouette. Equal scores keep the smaller k.
func Train(ds *record.Dataset, opts Options) (*Bundle, error) {
	opts.withDefaults()
	log := opts.Logger

	if ds.Len() == 0 {
		return nil, fmt.Errorf("train: %w", internalerr.ErrMissingData)
	}
	if opts.KMin > opts.KMax {
		return nil, fmt.Errorf("train: k range [%d,%d]: %w", opts.KMin, opts.KMax, internalerr.ErrInvalidInput)
	}

	log.WithFields(logrus.Fields{"rows": ds.Len(), "features": opts.NFeatures, "target": opts.Target}).
		Info("selecting top features")
	sel, err := selection.TopFeatures(ds, opts.Attributes, opts.Target, selection.Options{
		N:        opts.NFeatures,
		MaxDepth: opts.MaxDepth,
		Seed:     opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	log.WithField("top_features", sel.Features).Debug("top features selected")

	x, err := features(sel.Encoder, sel.Features, ds)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	var (
		best      *kmeans.Model
		bestScore float64
		sweep     []KScore
	)
	for k := opts.KMin; k <= opts.KMax; k++ {
		res, err := kmeans.Fit(x, k, kmeans.Options{Seed: opts.Seed})
		if err != nil {
			log.WithError(err).WithField("k", k).Warn("skipping k")
			sweep = append(sweep, KScore{K: k, Err: err.Error()})
			continue
		}
		score, err := kmeans.Silhouette(x, res.Labels, kmeans.CosineDistance)
		if err != nil {
			log.WithError(err).WithField("k", k).Warn("skipping k")
			sweep = append(sweep, KScore{K: k, Inertia: res.Inertia, Err: err.Error()})
			continue
		}
		sweep = append(sweep, KScore{K: k, Silhouette: score, Inertia: res.Inertia})
		log.WithFields(logrus.Fields{"k": k, "silhouette": score}).Debug("fitted")

		// Strict comparison: ties keep the lower k.
		if best == nil || score > bestScore {
			best, bestScore = res.Model, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("train: no k in [%d,%d] produced a valid clustering of %d rows: %w",
			opts.KMin, opts.KMax, ds.Len(), internalerr.ErrInvalidInput)
	}

	now := opts.Now()
	b := &Bundle{
		ID:          NewID(now),
		CreatedAt:   now,
		Target:      opts.Target,
		Encoder:     sel.Encoder,
		TopFeatures: sel.Features,
		Model:       best,
		Silhouette:  bestScore,
		Sweep:       sweep,
	}
	log.WithFields(logrus.Fields{"bundle": b.ID, "k": b.K(), "silhouette": bestScore}).Info("best clustering found")
	return b, nil
}

// Features encodes ds with the bundle's encoder, keeps the top feature
// columns and L2 normalises each row.
func Features(b *Bundle, ds *record.Dataset) (*mat.Dense, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return features(b.Encoder, b.TopFeatures, ds)
}

func features(enc *encoding.OneHot, top []string, ds *record.Dataset) (*mat.Dense, error) {
	cols, err := enc.Index(top)
	if err != nil {
		return nil, err
	}
	full, err := enc.Transform(ds)
	if err != nil {
		return nil, err
	}
	x := encoding.Select(full, cols)
	kmeans.Normalize(x)
	return x, nil
}
