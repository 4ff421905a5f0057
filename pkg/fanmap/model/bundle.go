package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
)

// Well-known artifact names of a persisted bundle.
const (
	ArtifactModel       = "kmeans_model"
	ArtifactEncoder     = "encoder"
	ArtifactTopFeatures = "top_features"
)

// ArtifactNames lists the three artifacts every bundle consists of.
var ArtifactNames = []string{ArtifactModel, ArtifactEncoder, ArtifactTopFeatures}

// KScore is the outcome of one k in the silhouette sweep.
type KScore struct {
	K          int
	Silhouette float64
	Inertia    float64
	Err        string `msgpack:",omitempty"`
}

// Bundle is the output of one training run: encoder, selected features and
// centroids, plus run metadata. A bundle is never modified after Train;
// retraining produces a new one with a new ID.
type Bundle struct {
	ID          string
	CreatedAt   time.Time
	Target      string
	Encoder     *encoding.OneHot
	TopFeatures []string
	Model       *kmeans.Model
	Silhouette  float64
	Sweep       []KScore
}

// NewID returns a fresh, time ordered bundle identifier.
func NewID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// K returns the number of clusters of the bundle's model.
func (b *Bundle) K() int {
	if b == nil || b.Model == nil {
		return 0
	}
	return b.Model.K()
}

// Attributes returns the raw attributes the encoder consumes.
func (b *Bundle) Attributes() []string {
	if b == nil || b.Encoder == nil {
		return nil
	}
	return b.Encoder.Attributes()
}

// Validate refuses bundles with any of the three artifacts missing or
// artifacts that do not fit together.
func (b *Bundle) Validate() error {
	if b == nil {
		return fmt.Errorf("bundle: %w", internalerr.ErrMissingArtifact)
	}
	switch {
	case b.Model == nil:
		return fmt.Errorf("bundle %s: %s: %w", b.ID, ArtifactModel, internalerr.ErrMissingArtifact)
	case b.Encoder == nil:
		return fmt.Errorf("bundle %s: %s: %w", b.ID, ArtifactEncoder, internalerr.ErrMissingArtifact)
	case len(b.TopFeatures) == 0:
		return fmt.Errorf("bundle %s: %s: %w", b.ID, ArtifactTopFeatures, internalerr.ErrMissingArtifact)
	}
	if b.Model.Dims() != len(b.TopFeatures) {
		return fmt.Errorf("bundle %s: model has %d dims for %d features: %w",
			b.ID, b.Model.Dims(), len(b.TopFeatures), internalerr.ErrBundleMismatch)
	}
	if _, err := b.Encoder.Index(b.TopFeatures); err != nil {
		return fmt.Errorf("bundle %s: %w", b.ID, err)
	}
	return nil
}
