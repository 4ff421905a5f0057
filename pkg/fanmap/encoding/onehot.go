package encoding

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// OneHot maps categorical attribute values to fixed one-hot columns.
// Values not seen during Fit encode to zeros.
type OneHot struct {
	attrs    []string
	cats     [][]string
	offsets  []int
	index    []map[string]int
	width    int
	sentinel string
}

// Fit learns the sorted distinct values of each attribute.
func Fit(ds *record.Dataset, attrs []string) (*OneHot, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("fit encoder: %w", internalerr.ErrMissingData)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("fit encoder: no attributes: %w", internalerr.ErrInvalidInput)
	}
	if err := ds.HasColumns(attrs...); err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}

	cats := make([][]string, len(attrs))
	for i, a := range attrs {
		seen := make(map[string]struct{})
		for _, v := range ds.Column(a) {
			seen[v] = struct{}{}
		}
		vals := make([]string, 0, len(seen))
		for v := range seen {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		cats[i] = vals
	}
	return FromCategories(attrs, cats)
}

// FromCategories rebuilds an encoder from persisted attribute categories.
func FromCategories(attrs []string, cats [][]string) (*OneHot, error) {
	if len(attrs) == 0 || len(attrs) != len(cats) {
		return nil, fmt.Errorf("encoder: %d attributes for %d category lists: %w", len(attrs), len(cats), internalerr.ErrInvalidInput)
	}
	e := &OneHot{
		attrs:    append([]string(nil), attrs...),
		cats:     make([][]string, len(cats)),
		offsets:  make([]int, len(attrs)),
		index:    make([]map[string]int, len(attrs)),
		sentinel: record.DefaultSentinel,
	}
	for i, vals := range cats {
		if len(vals) == 0 {
			return nil, fmt.Errorf("encoder: attribute %q has no categories: %w", attrs[i], internalerr.ErrInvalidInput)
		}
		e.cats[i] = append([]string(nil), vals...)
		e.offsets[i] = e.width
		e.index[i] = make(map[string]int, len(vals))
		for j, v := range vals {
			e.index[i][v] = j
		}
		e.width += len(vals)
	}
	return e, nil
}

// Attributes returns the encoded attribute names in column order.
func (e *OneHot) Attributes() []string {
	return append([]string(nil), e.attrs...)
}

// Categories returns a copy of the learned values per attribute.
func (e *OneHot) Categories() [][]string {
	out := make([][]string, len(e.cats))
	for i, c := range e.cats {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// Width is the number of output columns.
func (e *OneHot) Width() int {
	return e.width
}

// FeatureNames returns "attribute=value" for every output column.
func (e *OneHot) FeatureNames() []string {
	names := make([]string, 0, e.width)
	for i, a := range e.attrs {
		for _, v := range e.cats[i] {
			names = append(names, FeatureName(a, v))
		}
	}
	return names
}

// FeatureName formats the identifier of one one-hot column.
func FeatureName(attr, value string) string {
	return attr + "=" + value
}

// Index resolves feature names to output columns by name.
func (e *OneHot) Index(names []string) ([]int, error) {
	pos := make(map[string]int, e.width)
	for i, n := range e.FeatureNames() {
		pos[n] = i
	}
	idx := make([]int, len(names))
	for i, n := range names {
		p, ok := pos[n]
		if !ok {
			return nil, fmt.Errorf("feature %q not produced by encoder: %w", n, internalerr.ErrSchemaMismatch)
		}
		idx[i] = p
	}
	return idx, nil
}

// Transform encodes every row of ds.
func (e *OneHot) Transform(ds *record.Dataset) (*mat.Dense, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("transform: %w", internalerr.ErrMissingData)
	}
	if err := ds.HasColumns(e.attrs...); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	out := mat.NewDense(ds.Len(), e.width, nil)
	for i, r := range ds.Rows() {
		e.encodeInto(out.RawRowView(i), r)
	}
	return out, nil
}

// TransformRecord encodes a single record.
func (e *OneHot) TransformRecord(r record.Record) []float64 {
	row := make([]float64, e.width)
	e.encodeInto(row, r)
	return row
}

func (e *OneHot) encodeInto(row []float64, r record.Record) {
	for i, a := range e.attrs {
		if j, ok := e.index[i][r.GetOr(a, e.sentinel)]; ok {
			row[e.offsets[i]+j] = 1
		}
	}
}

// UnknownAttributes lists the attributes of r whose value was never seen in Fit.
func (e *OneHot) UnknownAttributes(r record.Record) []string {
	var out []string
	for i, a := range e.attrs {
		if _, ok := e.index[i][r.GetOr(a, e.sentinel)]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Select copies the given columns of x, in order, into a new matrix.
func Select(x *mat.Dense, cols []int) *mat.Dense {
	r, _ := x.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		src := x.RawRowView(i)
		dst := out.RawRowView(i)
		for j, c := range cols {
			dst[j] = src[c]
		}
	}
	return out
}

// SelectRow is Select for a single row.
func SelectRow(row []float64, cols []int) []float64 {
	out := make([]float64, len(cols))
	for j, c := range cols {
		out[j] = row[c]
	}
	return out
}
