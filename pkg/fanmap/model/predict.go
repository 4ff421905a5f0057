package model

import (
	"fmt"
	"sort"

	"github.com/cognicore/fanmap/pkg/fanmap/encoding"
	"github.com/cognicore/fanmap/pkg/fanmap/kmeans"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// Predict assigns one respondent to a cluster. Attributes missing from
// prefs are treated as the "None" sentinel; values never seen in training
// encode to zeros.
func Predict(b *Bundle, prefs map[string]string) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	row, err := vector(b, record.NewRecord(prefs))
	if err != nil {
		return 0, err
	}
	return b.Model.Predict(row)
}

// Unknown lists the attributes of prefs whose value the bundle's encoder
// has never seen.
func Unknown(b *Bundle, prefs map[string]string) []string {
	if b == nil || b.Encoder == nil {
		return nil
	}
	return b.Encoder.UnknownAttributes(record.NewRecord(prefs))
}

// Unrecognized lists, sorted, the keys of prefs that are not attributes of
// the bundle. Predict ignores them, so a misspelt attribute reads as blank.
func Unrecognized(b *Bundle, prefs map[string]string) []string {
	if b == nil || b.Encoder == nil {
		return nil
	}
	known := make(map[string]struct{})
	for _, a := range b.Attributes() {
		known[a] = struct{}{}
	}
	var out []string
	for k := range prefs {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Assign labels every row of ds, using the same pipeline as Predict.
func Assign(b *Bundle, ds *record.Dataset) ([]int, error) {
	x, err := Features(b, ds)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	return b.Model.PredictAll(x)
}

func vector(b *Bundle, r record.Record) ([]float64, error) {
	// Columns are resolved by name every time so a reloaded encoder cannot
	// silently shift positions.
	cols, err := b.Encoder.Index(b.TopFeatures)
	if err != nil {
		return nil, err
	}
	row := encoding.SelectRow(b.Encoder.TransformRecord(r), cols)
	kmeans.NormalizeRow(row)
	return row, nil
}
