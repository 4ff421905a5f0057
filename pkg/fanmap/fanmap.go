package fanmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/cognicore/fanmap/pkg/fanmap/config"
	"github.com/cognicore/fanmap/pkg/fanmap/cooccur"
	"github.com/cognicore/fanmap/pkg/fanmap/galaxy"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/profile"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
)

// DefaultCacheSize is the number of co-occurrence indexes kept in memory.
const DefaultCacheSize = 8

// Engine is the main fan profiling facade. The bundle is read from the
// store on every call; an Engine holds no model state of its own.
type Engine struct {
	store   store.Store
	cfg     config.Config
	log     logrus.FieldLogger
	indexes *lru.Cache[uint64, *cooccur.Counter]
}

// Options configures an Engine
type Options struct {
	Store     store.Store
	Config    *config.Config
	Logger    logrus.FieldLogger
	CacheSize int
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("fanmap: store required: %w", internalerr.ErrInvalidConfig)
	}
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[uint64, *cooccur.Counter](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:   opts.Store,
		cfg:     cfg,
		log:     opts.Logger,
		indexes: cache,
	}, nil
}

// Close cleanly shuts down the engine and its store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Train fits a new bundle on ds and makes it the current one.
func (e *Engine) Train(ctx context.Context, ds *record.Dataset) (*model.Bundle, error) {
	opts := e.cfg.TrainOptions()
	opts.Logger = e.log
	b, err := model.Train(ds, opts)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveBundle(ctx, b); err != nil {
		return nil, fmt.Errorf("save bundle %s: %w", b.ID, err)
	}
	e.log.WithFields(logrus.Fields{"bundle": b.ID, "k": b.K()}).Info("bundle saved")
	return b, nil
}

// Bundle loads the current bundle.
func (e *Engine) Bundle(ctx context.Context) (*model.Bundle, error) {
	return e.store.LoadBundle(ctx)
}

// Prediction is the cluster assigned to one respondent.
type Prediction struct {
	Cluster  int      `json:"cluster"`
	BundleID string   `json:"bundle_id"`
	Unknown  []string `json:"unknown,omitempty"`
	Ignored  []string `json:"ignored,omitempty"`
}

// Predict assigns a single respondent's preferences to a cluster of the
// current bundle. Values unseen during training are reported in Unknown;
// keys that are not bundle attributes are reported in Ignored.
func (e *Engine) Predict(ctx context.Context, prefs map[string]string) (Prediction, error) {
	b, err := e.Bundle(ctx)
	if err != nil {
		return Prediction{}, err
	}
	cluster, err := model.Predict(b, prefs)
	if err != nil {
		return Prediction{}, err
	}
	unknown := model.Unknown(b, prefs)
	if len(unknown) > 0 {
		e.log.WithFields(logrus.Fields{"bundle": b.ID, "attributes": unknown}).
			Warn("answers not seen during training were ignored")
	}
	ignored := model.Unrecognized(b, prefs)
	if len(ignored) > 0 {
		e.log.WithFields(logrus.Fields{"bundle": b.ID, "keys": ignored}).
			Warn("preferences that are not model attributes were ignored")
	}
	return Prediction{Cluster: cluster, BundleID: b.ID, Unknown: unknown, Ignored: ignored}, nil
}

// Analyze summarises every cluster of the current bundle over ds.
func (e *Engine) Analyze(ctx context.Context, ds *record.Dataset) (profile.Report, error) {
	b, err := e.Bundle(ctx)
	if err != nil {
		return profile.Report{}, err
	}
	return profile.Analyze(b, ds)
}

// Index returns the co-occurrence counts of ds, reusing a cached index when
// the same data was counted before.
func (e *Engine) Index(ds *record.Dataset) *cooccur.Counter {
	key := Fingerprint(ds)
	if idx, ok := e.indexes.Get(key); ok {
		return idx
	}
	idx := cooccur.Build(ds)
	e.indexes.Add(key, idx)
	e.log.WithFields(logrus.Fields{
		"rows":  idx.TotalRecords(),
		"items": idx.UniqueItems(),
		"pairs": idx.UniquePairs(),
	}).Debug("co-occurrence index built")
	return idx
}

// Galaxy builds the co-occurrence graph of ds.
func (e *Engine) Galaxy(ds *record.Dataset, opts galaxy.Options) galaxy.View {
	return galaxy.Build(e.Index(ds), opts)
}

// Neighbors lists the strongest partners of the item matching label.
func (e *Engine) Neighbors(ds *record.Dataset, label string, opts galaxy.NeighborOptions) (string, []galaxy.Neighbor) {
	return galaxy.Neighbors(e.Index(ds), label, opts)
}

// ClusterGalaxy builds the graph over the respondents of one cluster only.
func (e *Engine) ClusterGalaxy(ctx context.Context, ds *record.Dataset, cluster int, opts galaxy.Options) (galaxy.View, error) {
	b, err := e.Bundle(ctx)
	if err != nil {
		return galaxy.View{}, err
	}
	if cluster < 0 || cluster >= b.K() {
		return galaxy.View{}, fmt.Errorf("cluster %d outside [0,%d): %w", cluster, b.K(), internalerr.ErrInvalidInput)
	}
	labels, err := model.Assign(b, ds)
	if err != nil {
		return galaxy.View{}, err
	}
	var rows []int
	for i, l := range labels {
		if l == cluster {
			rows = append(rows, i)
		}
	}
	return e.Galaxy(ds.Subset(rows), opts), nil
}

// Status describes the stored bundles.
type Status struct {
	Trained bool               `json:"trained"`
	Current *store.BundleInfo  `json:"current,omitempty"`
	Error   string             `json:"error,omitempty"`
	History []store.BundleInfo `json:"history"`
}

// Status reports whether a usable bundle exists. A broken bundle is not an
// error here; it is described in Status.Error.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	history, err := e.store.ListBundles(ctx, 10)
	if err != nil {
		return Status{}, err
	}
	st := Status{History: history}
	if st.History == nil {
		st.History = []store.BundleInfo{}
	}

	b, err := e.Bundle(ctx)
	switch {
	case err == nil:
		info := store.Info(b)
		info.Current = true
		st.Trained = true
		st.Current = &info
	case errors.Is(err, internalerr.ErrMissingArtifact), errors.Is(err, internalerr.ErrBundleMismatch):
		st.Error = err.Error()
	default:
		return Status{}, err
	}
	return st, nil
}

// Fingerprint hashes the header and every cell of ds in order.
func Fingerprint(ds *record.Dataset) uint64 {
	h := xxhash.New()
	header := ds.Header()
	for _, c := range header {
		h.WriteString(c)
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
	for _, r := range ds.Rows() {
		for _, c := range header {
			v, _ := r.Raw(c)
			h.WriteString(v)
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return h.Sum64()
}
