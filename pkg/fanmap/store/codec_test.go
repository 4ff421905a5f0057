package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
)

func testBundle(t *testing.T, id string) *model.Bundle {
	t.Helper()
	enc, err := encoding.FromCategories([]string{"fav_planet"}, [][]string{{"Hoth", "Naboo", "Tatooine"}})
	require.NoError(t, err)
	km, err := kmeans.FromCentroids([][]float64{{1, 0}, {0, 1}, {0.6, 0.8}})
	require.NoError(t, err)
	return &model.Bundle{
		ID:          id,
		CreatedAt:   time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC),
		Target:      "fav_film",
		Encoder:     enc,
		TopFeatures: []string{"fav_planet=Tatooine", "fav_planet=Hoth"},
		Model:       km,
		Silhouette:  0.42,
		Sweep:       []model.KScore{{K: 3, Silhouette: 0.42, Inertia: 1.5}},
	}
}

func byName(arts []Artifact) map[string]Artifact {
	out := make(map[string]Artifact, len(arts))
	for _, a := range arts {
		out[a.Name] = a
	}
	return out
}

func TestBundleRoundTrip(t *testing.T) {
	b := testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA")
	arts, err := EncodeBundle(b)
	require.NoError(t, err)
	require.Len(t, arts, 3)

	got, err := DecodeBundle(byName(arts))
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, b.TopFeatures, got.TopFeatures)
	assert.Equal(t, b.Model.Centroids, got.Model.Centroids)
	assert.Equal(t, b.Encoder.FeatureNames(), got.Encoder.FeatureNames())
	assert.Equal(t, b.Sweep, got.Sweep)
}

func TestDecodeMissingArtifact(t *testing.T) {
	arts, err := EncodeBundle(testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)
	m := byName(arts)
	delete(m, model.ArtifactEncoder)

	_, err = DecodeBundle(m)
	assert.ErrorIs(t, err, internalerr.ErrMissingArtifact)
	assert.Contains(t, err.Error(), model.ArtifactEncoder)
}

func TestDecodeMixedRuns(t *testing.T) {
	first, err := EncodeBundle(testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)
	second, err := EncodeBundle(testBundle(t, "01HXBBBBBBBBBBBBBBBBBBBBBB"))
	require.NoError(t, err)

	m := byName(first)
	m[model.ArtifactTopFeatures] = byName(second)[model.ArtifactTopFeatures]

	_, err = DecodeBundle(m)
	assert.ErrorIs(t, err, internalerr.ErrBundleMismatch)
}

func TestDecodeCorruptPayload(t *testing.T) {
	arts, err := EncodeBundle(testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)
	m := byName(arts)
	m[model.ArtifactModel] = Artifact{Name: model.ArtifactModel, Payload: []byte{0xc1}}

	_, err = DecodeBundle(m)
	assert.ErrorIs(t, err, internalerr.ErrMissingArtifact)
}

func TestPayloadCarriesBundleID(t *testing.T) {
	arts, err := EncodeBundle(testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)
	for _, a := range arts {
		var probe struct {
			BundleID string `msgpack:"bundle_id"`
		}
		require.NoError(t, msgpack.Unmarshal(a.Payload, &probe))
		assert.Equal(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", probe.BundleID, a.Name)
	}
}

func TestEncodeRefusesIncompleteBundle(t *testing.T) {
	b := testBundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA")
	b.Model = nil
	_, err := EncodeBundle(b)
	assert.ErrorIs(t, err, internalerr.ErrMissingArtifact)
}
