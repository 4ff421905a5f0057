package kmeans

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

// Metric is a pairwise distance between two rows.
type Metric func(a, b []float64) float64

// CosineDistance is 1 - cos(a, b), clipped to [0, 2]. A zero vector has
// similarity 0 with everything.
func CosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	sim := 0.0
	if na > 0 && nb > 0 {
		sim = floats.Dot(a, b) / (na * nb)
	}
	return math.Min(math.Max(1-sim, 0), 2)
}

// EuclideanDistance is the L2 distance.
func EuclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Normalize scales every row of x to unit L2 norm in place. Zero rows are left as is.
func Normalize(x *mat.Dense) {
	rows, _ := x.Dims()
	for i := 0; i < rows; i++ {
		NormalizeRow(x.RawRowView(i))
	}
}

// NormalizeRow scales row to unit L2 norm in place.
func NormalizeRow(row []float64) {
	if n := floats.Norm(row, 2); n > 0 {
		floats.Scale(1/n, row)
	}
}

// Silhouette returns the mean silhouette coefficient of labels over the rows of x.
// Members of singleton clusters score 0. It fails unless the labels form
// between 2 and n-1 non-empty clusters.
func Silhouette(x *mat.Dense, labels []int, metric Metric) (float64, error) {
	n, _ := x.Dims()
	if n != len(labels) {
		return 0, fmt.Errorf("silhouette: %d rows for %d labels: %w", n, len(labels), internalerr.ErrInvalidInput)
	}

	maxLabel := -1
	for _, l := range labels {
		if l < 0 {
			return 0, fmt.Errorf("silhouette: negative label %d: %w", l, internalerr.ErrInvalidInput)
		}
		if l > maxLabel {
			maxLabel = l
		}
	}
	sizes := make([]float64, maxLabel+1)
	for _, l := range labels {
		sizes[l]++
	}
	nonEmpty := 0
	for _, s := range sizes {
		if s > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 || nonEmpty > n-1 {
		return 0, fmt.Errorf("silhouette: %d clusters for %d samples: %w", nonEmpty, n, internalerr.ErrInvalidInput)
	}

	// sums[i][c] accumulates the distance from row i to every member of cluster c.
	sums := make([][]float64, n)
	for i := range sums {
		sums[i] = make([]float64, len(sizes))
	}
	for i := 0; i < n; i++ {
		ri := x.RawRowView(i)
		for j := i + 1; j < n; j++ {
			d := metric(ri, x.RawRowView(j))
			sums[i][labels[j]] += d
			sums[j][labels[i]] += d
		}
	}

	total := 0.0
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] <= 1 {
			continue
		}
		a := sums[i][own] / (sizes[own] - 1)
		b := math.Inf(1)
		for c, s := range sizes {
			if c == own || s == 0 {
				continue
			}
			b = math.Min(b, sums[i][c]/s)
		}
		if den := math.Max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(n), nil
}
