package kmeans

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

// Defaults for Fit.
const (
	DefaultMaxIter = 300
	DefaultTol     = 1e-4
	DefaultSeed    = 42
)

// Options configures a single k-means fit.
type Options struct {
	Seed    int64
	MaxIter int
	Tol     float64 // relative to the mean per-column variance of the data
}

// Model is a fitted set of centroids. It is never mutated after Fit.
type Model struct {
	Centroids [][]float64
}

// Result is the outcome of Fit.
type Result struct {
	Model      *Model
	Labels     []int
	Inertia    float64
	Iterations int
}

// FromCentroids rebuilds a model from persisted centroids.
func FromCentroids(centroids [][]float64) (*Model, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("kmeans: no centroids: %w", internalerr.ErrInvalidInput)
	}
	dim := len(centroids[0])
	cp := make([][]float64, len(centroids))
	for i, c := range centroids {
		if len(c) != dim || dim == 0 {
			return nil, fmt.Errorf("kmeans: centroid %d has %d dims, want %d: %w", i, len(c), dim, internalerr.ErrInvalidInput)
		}
		cp[i] = append([]float64(nil), c...)
	}
	return &Model{Centroids: cp}, nil
}

// K returns the number of clusters.
func (m *Model) K() int {
	return len(m.Centroids)
}

// Dims returns the centroid dimensionality.
func (m *Model) Dims() int {
	if len(m.Centroids) == 0 {
		return 0
	}
	return len(m.Centroids[0])
}

// Predict returns the index of the nearest centroid. Ties go to the lower index.
func (m *Model) Predict(row []float64) (int, error) {
	if len(row) != m.Dims() {
		return 0, fmt.Errorf("kmeans predict: row has %d dims, model %d: %w", len(row), m.Dims(), internalerr.ErrSchemaMismatch)
	}
	c, _ := nearest(row, m.Centroids)
	return c, nil
}

// PredictAll labels every row of x.
func (m *Model) PredictAll(x *mat.Dense) ([]int, error) {
	rows, cols := x.Dims()
	if cols != m.Dims() {
		return nil, fmt.Errorf("kmeans predict: data has %d dims, model %d: %w", cols, m.Dims(), internalerr.ErrSchemaMismatch)
	}
	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		labels[i], _ = nearest(x.RawRowView(i), m.Centroids)
	}
	return labels, nil
}

// Fit clusters the rows of x into k groups with k-means++ seeding and
// Lloyd iterations. The same data, k and seed always give the same result.
func Fit(x *mat.Dense, k int, opts Options) (Result, error) {
	n, d := x.Dims()
	if k < 1 || n < k {
		return Result{}, fmt.Errorf("kmeans: k=%d with %d samples: %w", k, n, internalerr.ErrInvalidInput)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	centers := initPlusPlus(x, k, rng)
	tol := opts.Tol * meanVariance(x)

	labels := make([]int, n)
	dist := make([]float64, n)
	iter := 0
	for iter = 1; iter <= opts.MaxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			c, dd := nearest(x.RawRowView(i), centers)
			if c != labels[i] {
				changed = true
				labels[i] = c
			}
			dist[i] = dd
		}

		next := make([][]float64, k)
		sizes := make([]int, k)
		for c := range next {
			next[c] = make([]float64, d)
		}
		for i := 0; i < n; i++ {
			floats.Add(next[labels[i]], x.RawRowView(i))
			sizes[labels[i]]++
		}
		if relocateEmpty(x, next, sizes, labels, dist) {
			changed = true
		}
		for c := range next {
			if sizes[c] == 0 {
				copy(next[c], centers[c])
				continue
			}
			floats.Scale(1/float64(sizes[c]), next[c])
		}

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if (!changed && iter > 1) || shift <= tol {
			break
		}
	}
	if iter > opts.MaxIter {
		iter = opts.MaxIter
	}

	// Final assignment so labels agree with the returned centroids.
	inertia := 0.0
	for i := 0; i < n; i++ {
		c, dd := nearest(x.RawRowView(i), centers)
		labels[i] = c
		inertia += dd
	}

	return Result{
		Model:      &Model{Centroids: centers},
		Labels:     labels,
		Inertia:    inertia,
		Iterations: iter,
	}, nil
}

// initPlusPlus picks k starting centers with greedy k-means++.
func initPlusPlus(x *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	n, _ := x.Dims()
	trials := 2 + int(math.Log(float64(k)))

	centers := make([][]float64, 0, k)
	first := rng.Intn(n)
	centers = append(centers, append([]float64(nil), x.RawRowView(first)...))

	closest := make([]float64, n)
	for i := range closest {
		closest[i] = sqDist(x.RawRowView(i), centers[0])
	}
	pot := floats.Sum(closest)

	for len(centers) < k {
		if pot <= 0 {
			// Every point already sits on a center.
			centers = append(centers, append([]float64(nil), x.RawRowView(rng.Intn(n))...))
			continue
		}
		bestIdx, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			cand := sampleIndex(closest, pot*rng.Float64())
			row := x.RawRowView(cand)
			trial := make([]float64, n)
			for i := range trial {
				trial[i] = math.Min(closest[i], sqDist(x.RawRowView(i), row))
			}
			if p := floats.Sum(trial); p < bestPot {
				bestIdx, bestPot, bestClosest = cand, p, trial
			}
		}
		centers = append(centers, append([]float64(nil), x.RawRowView(bestIdx)...))
		closest, pot = bestClosest, bestPot
	}
	return centers
}

func sampleIndex(weights []float64, target float64) int {
	acc := 0.0
	for i, w := range weights {
		acc += w
		if acc > target {
			return i
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}

// relocateEmpty moves the points farthest from their centers into empty
// clusters and reports whether any point moved.
func relocateEmpty(x *mat.Dense, sums [][]float64, sizes []int, labels []int, dist []float64) bool {
	moved := false
	for c := range sizes {
		if sizes[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, dd := range dist {
			if sizes[labels[i]] > 1 && dd > farDist {
				far, farDist = i, dd
			}
		}
		if far < 0 {
			continue
		}
		row := x.RawRowView(far)
		floats.Sub(sums[labels[far]], row)
		sizes[labels[far]]--
		floats.Add(sums[c], row)
		sizes[c] = 1
		labels[far] = c
		dist[far] = 0
		moved = true
	}
	return moved
}

func nearest(row []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if dd := sqDist(row, center); dd < bestDist {
			best, bestDist = c, dd
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func meanVariance(x *mat.Dense) float64 {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return 0
	}
	col := make([]float64, n)
	total := 0.0
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean := floats.Sum(col) / float64(n)
		v := 0.0
		for _, c := range col {
			v += (c - mean) * (c - mean)
		}
		total += v / float64(n)
	}
	return total / float64(d)
}
