package selection

import (
	"fmt"
	"sort"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
	"github.com/cognicore/fanmap/pkg/fanmap/tree"
)

// DefaultFeatures is the number of one-hot columns kept for clustering.
const DefaultFeatures = 8

// Options configures TopFeatures.
type Options struct {
	N        int
	MaxDepth int
	Seed     int64
}

// DefaultOptions mirrors the training defaults: 8 features, depth 5, seed 42.
func DefaultOptions() Options {
	return Options{N: DefaultFeatures, MaxDepth: tree.DefaultMaxDepth, Seed: tree.DefaultSeed}
}

// Ranked is one encoded column with its importance.
type Ranked struct {
	Feature    string
	Importance float64
}

// Result holds the selected features and the encoder that produced them.
type Result struct {
	Features []string
	Ranking  []Ranked // every column, best first
	Encoder  *encoding.OneHot
}

// TopFeatures ranks the one-hot columns of candidates by how well a
// depth-bounded decision tree uses them to predict target.
func TopFeatures(ds *record.Dataset, candidates []string, target string, opts Options) (Result, error) {
	if ds.Len() == 0 {
		return Result{}, fmt.Errorf("select features: %w", internalerr.ErrMissingData)
	}
	if err := ds.HasColumns(append(append([]string{}, candidates...), target)...); err != nil {
		return Result{}, fmt.Errorf("select features: %w", err)
	}
	if opts.N <= 0 {
		opts.N = DefaultFeatures
	}

	enc, err := encoding.Fit(ds, candidates)
	if err != nil {
		return Result{}, err
	}
	x, err := enc.Transform(ds)
	if err != nil {
		return Result{}, err
	}

	clf := tree.New(tree.Options{MaxDepth: opts.MaxDepth, Seed: opts.Seed})
	if err := clf.Fit(x, ds.Column(target)); err != nil {
		return Result{}, fmt.Errorf("select features: %w", err)
	}

	names := enc.FeatureNames()
	imp := clf.FeatureImportances()
	ranking := make([]Ranked, len(names))
	for i, n := range names {
		ranking[i] = Ranked{Feature: n, Importance: imp[i]}
	}
	// Stable: equal importances keep encoder column order.
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Importance > ranking[j].Importance
	})

	n := opts.N
	if n > len(ranking) {
		n = len(ranking)
	}
	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = ranking[i].Feature
	}

	return Result{Features: top, Ranking: ranking, Encoder: enc}, nil
}
