// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/store"
)

// Bundle returns a small valid bundle with the given id.
func Bundle(t testing.TB, id string, created time.Time) *model.Bundle {
	t.Helper()
	enc, err := encoding.FromCategories(
		[]string{"fav_planet", "fav_robot"},
		[][]string{{"Hoth", "Tatooine"}, {"BB-8", "R2-D2"}},
	)
	require.NoError(t, err)
	km, err := kmeans.FromCentroids([][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	require.NoError(t, err)
	return &model.Bundle{
		ID:          id,
		CreatedAt:   created,
		Target:      model.DefaultTarget,
		Encoder:     enc,
		TopFeatures: []string{"fav_planet=Hoth", "fav_robot=R2-D2", "fav_planet=Tatooine"},
		Model:       km,
		Silhouette:  0.5,
	}
}

// Run exercises the behaviour every store must share. open is called once
// per subtest and must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		_, err := st.LoadBundle(ctx)
		assert.ErrorIs(t, err, internalerr.ErrMissingArtifact)
	})

	t.Run("save and load", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		b := Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)
		require.NoError(t, st.SaveBundle(ctx, b))

		got, err := st.LoadBundle(ctx)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, b.TopFeatures, got.TopFeatures)
		assert.Equal(t, b.Model.Centroids, got.Model.Centroids)
		assert.Equal(t, b.Encoder.Categories(), got.Encoder.Categories())
	})

	t.Run("last writer wins", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		require.NoError(t, st.SaveBundle(ctx, Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)))
		require.NoError(t, st.SaveBundle(ctx, Bundle(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", t0.Add(time.Hour))))

		got, err := st.LoadBundle(ctx)
		require.NoError(t, err)
		assert.Equal(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", got.ID)

		infos, err := st.ListBundles(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, infos)
		assert.Equal(t, "01HXBBBBBBBBBBBBBBBBBBBBBB", infos[0].ID)
		assert.True(t, infos[0].Current)
		assert.Equal(t, 3, infos[0].K)
		assert.Equal(t, 3, infos[0].Features)
	})

	t.Run("refuses incomplete bundle", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		b := Bundle(t, "01HXAAAAAAAAAAAAAAAAAAAAAA", t0)
		b.TopFeatures = nil
		assert.ErrorIs(t, st.SaveBundle(ctx, b), internalerr.ErrMissingArtifact)
	})
}
