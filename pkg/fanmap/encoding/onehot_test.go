package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

func survey() *record.Dataset {
	rows := []map[string]string{
		{"fav_planet": "Tatooine", "fav_robot": "R2-D2"},
		{"fav_planet": "Hoth", "fav_robot": "C-3PO"},
		{"fav_planet": "Tatooine", "fav_robot": ""},
	}
	recs := make([]record.Record, len(rows))
	for i, r := range rows {
		recs[i] = record.NewRecord(r)
	}
	return record.New([]string{"fav_planet", "fav_robot"}, recs)
}

func TestFitSortedCategories(t *testing.T) {
	enc, err := Fit(survey(), []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"Hoth", "Tatooine"}, {"C-3PO", "None", "R2-D2"}}, enc.Categories())
	assert.Equal(t, 5, enc.Width())
	assert.Equal(t, []string{
		"fav_planet=Hoth", "fav_planet=Tatooine",
		"fav_robot=C-3PO", "fav_robot=None", "fav_robot=R2-D2",
	}, enc.FeatureNames())
}

func TestTransformOneHotPerAttribute(t *testing.T) {
	ds := survey()
	enc, err := Fit(ds, []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)

	x, err := enc.Transform(ds)
	require.NoError(t, err)
	r, c := x.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 5, c)

	assert.Equal(t, []float64{0, 1, 0, 0, 1}, x.RawRowView(0))
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, x.RawRowView(1))
	assert.Equal(t, []float64{0, 1, 0, 1, 0}, x.RawRowView(2))
}

func TestTransformRecordIgnoresUnknown(t *testing.T) {
	enc, err := Fit(survey(), []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)

	rec := record.NewRecord(map[string]string{"fav_planet": "Dagobah", "fav_robot": "R2-D2"})
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, enc.TransformRecord(rec))
	assert.Equal(t, []string{"fav_planet"}, enc.UnknownAttributes(rec))

	// A missing attribute is the sentinel, which was seen for fav_robot.
	rec = record.NewRecord(map[string]string{"fav_planet": "Hoth"})
	assert.Equal(t, []float64{1, 0, 0, 1, 0}, enc.TransformRecord(rec))
	assert.Empty(t, enc.UnknownAttributes(rec))
}

func TestIndexByName(t *testing.T) {
	enc, err := Fit(survey(), []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)

	idx, err := enc.Index([]string{"fav_robot=R2-D2", "fav_planet=Hoth"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0}, idx)

	_, err = enc.Index([]string{"fav_planet=Dagobah"})
	assert.ErrorIs(t, err, internalerr.ErrSchemaMismatch)
}

func TestFromCategoriesRoundTrip(t *testing.T) {
	enc, err := Fit(survey(), []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)

	again, err := FromCategories(enc.Attributes(), enc.Categories())
	require.NoError(t, err)
	assert.Equal(t, enc.FeatureNames(), again.FeatureNames())

	_, err = FromCategories([]string{"a"}, nil)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(record.New([]string{"fav_planet"}, nil), []string{"fav_planet"})
	assert.ErrorIs(t, err, internalerr.ErrMissingData)

	_, err = Fit(survey(), []string{"fav_film"})
	assert.ErrorIs(t, err, internalerr.ErrSchemaMismatch)
}

func TestSelect(t *testing.T) {
	ds := survey()
	enc, err := Fit(ds, []string{"fav_planet", "fav_robot"})
	require.NoError(t, err)
	x, err := enc.Transform(ds)
	require.NoError(t, err)

	sub := Select(x, []int{4, 1})
	assert.Equal(t, []float64{1, 1}, sub.RawRowView(0))
	assert.Equal(t, []float64{0, 0}, sub.RawRowView(1))
	assert.Equal(t, SelectRow(x.RawRowView(2), []int{4, 1}), sub.RawRowView(2))
}
