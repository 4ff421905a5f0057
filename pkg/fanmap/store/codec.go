package store

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
)

// Artifact is one named, serialised piece of a bundle.
type Artifact struct {
	Name     string
	BundleID string
	Payload  []byte
}

type modelPayload struct {
	BundleID   string         `msgpack:"bundle_id"`
	CreatedAt  time.Time      `msgpack:"created_at"`
	Target     string         `msgpack:"target"`
	Centroids  [][]float64    `msgpack:"centroids"`
	Silhouette float64        `msgpack:"silhouette"`
	Sweep      []model.KScore `msgpack:"sweep"`
}

type encoderPayload struct {
	BundleID   string     `msgpack:"bundle_id"`
	Attributes []string   `msgpack:"attributes"`
	Categories [][]string `msgpack:"categories"`
}

type featuresPayload struct {
	BundleID string   `msgpack:"bundle_id"`
	Features []string `msgpack:"features"`
}

// EncodeBundle serialises the three artifacts of b.
func EncodeBundle(b *model.Bundle) ([]Artifact, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	m, err := msgpack.Marshal(modelPayload{
		BundleID:   b.ID,
		CreatedAt:  b.CreatedAt.UTC(),
		Target:     b.Target,
		Centroids:  b.Model.Centroids,
		Silhouette: b.Silhouette,
		Sweep:      b.Sweep,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", model.ArtifactModel, err)
	}
	e, err := msgpack.Marshal(encoderPayload{
		BundleID:   b.ID,
		Attributes: b.Encoder.Attributes(),
		Categories: b.Encoder.Categories(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", model.ArtifactEncoder, err)
	}
	f, err := msgpack.Marshal(featuresPayload{BundleID: b.ID, Features: b.TopFeatures})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", model.ArtifactTopFeatures, err)
	}

	return []Artifact{
		{Name: model.ArtifactModel, BundleID: b.ID, Payload: m},
		{Name: model.ArtifactEncoder, BundleID: b.ID, Payload: e},
		{Name: model.ArtifactTopFeatures, BundleID: b.ID, Payload: f},
	}, nil
}

// DecodeBundle rebuilds a bundle from its artifacts, keyed by name. Every
// artifact must be present and all must come from the same training run.
func DecodeBundle(arts map[string]Artifact) (*model.Bundle, error) {
	var missing *multierror.Error
	for _, name := range model.ArtifactNames {
		if _, ok := arts[name]; !ok {
			missing = multierror.Append(missing, fmt.Errorf("%s: %w", name, internalerr.ErrMissingArtifact))
		}
	}
	if err := missing.ErrorOrNil(); err != nil {
		return nil, err
	}

	var mp modelPayload
	if err := msgpack.Unmarshal(arts[model.ArtifactModel].Payload, &mp); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", model.ArtifactModel, err, internalerr.ErrMissingArtifact)
	}
	var ep encoderPayload
	if err := msgpack.Unmarshal(arts[model.ArtifactEncoder].Payload, &ep); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", model.ArtifactEncoder, err, internalerr.ErrMissingArtifact)
	}
	var fp featuresPayload
	if err := msgpack.Unmarshal(arts[model.ArtifactTopFeatures].Payload, &fp); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", model.ArtifactTopFeatures, err, internalerr.ErrMissingArtifact)
	}

	if mp.BundleID != ep.BundleID || mp.BundleID != fp.BundleID {
		return nil, fmt.Errorf("model %s, encoder %s, features %s: %w",
			mp.BundleID, ep.BundleID, fp.BundleID, internalerr.ErrBundleMismatch)
	}

	km, err := kmeans.FromCentroids(mp.Centroids)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", model.ArtifactModel, err, internalerr.ErrMissingArtifact)
	}
	enc, err := encoding.FromCategories(ep.Attributes, ep.Categories)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", model.ArtifactEncoder, err, internalerr.ErrMissingArtifact)
	}

	b := &model.Bundle{
		ID:          mp.BundleID,
		CreatedAt:   mp.CreatedAt,
		Target:      mp.Target,
		Encoder:     enc,
		TopFeatures: fp.Features,
		Model:       km,
		Silhouette:  mp.Silhouette,
		Sweep:       mp.Sweep,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
