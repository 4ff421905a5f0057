package tree

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

// Default hyper-parameters of the feature ranking tree.
const (
	DefaultMaxDepth = 5
	DefaultSeed     = 42
)

// Options configures a Classifier.
type Options struct {
	MaxDepth        int   // 0 means DefaultMaxDepth
	MinSamplesSplit int   // 0 means 2
	Seed            int64 // feature visiting order
}

// Classifier is a CART decision tree using Gini impurity.
type Classifier struct {
	opts        Options
	classes     []string
	root        *node
	importances []float64
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	counts    []float64
	leaf      bool
}

// New creates an unfitted classifier.
func New(opts Options) *Classifier {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	return &Classifier{opts: opts}
}

// Fit grows the tree on x (rows = samples) against labels y.
func (c *Classifier) Fit(x *mat.Dense, y []string) error {
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("tree fit: %d rows for %d labels: %w", rows, len(y), internalerr.ErrInvalidInput)
	}

	classIdx := make(map[string]int)
	for _, label := range y {
		classIdx[label] = 0
	}
	c.classes = make([]string, 0, len(classIdx))
	for label := range classIdx {
		c.classes = append(c.classes, label)
	}
	sort.Strings(c.classes)
	for i, label := range c.classes {
		classIdx[label] = i
	}
	target := make([]int, rows)
	for i, label := range y {
		target[i] = classIdx[label]
	}

	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}

	g := &grower{
		x:           x,
		y:           target,
		nClasses:    len(c.classes),
		nFeatures:   cols,
		opts:        c.opts,
		rng:         rand.New(rand.NewSource(c.opts.Seed)),
		importances: make([]float64, cols),
	}
	c.root = g.grow(samples, 0)

	total := floats.Sum(g.importances)
	if total > 0 {
		floats.Scale(1/total, g.importances)
	}
	c.importances = g.importances
	return nil
}

// Classes returns the sorted class labels seen in Fit.
func (c *Classifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

// FeatureImportances returns normalised Gini importances, one per column.
// All values are zero when the tree never split.
func (c *Classifier) FeatureImportances() []float64 {
	return append([]float64(nil), c.importances...)
}

// Predict returns the majority class of the leaf row falls into.
func (c *Classifier) Predict(row []float64) string {
	n := c.root
	for n != nil && !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	if n == nil {
		return ""
	}
	return c.classes[floats.MaxIdx(n.counts)]
}

// Depth returns the depth of the fitted tree (0 for a single leaf).
func (c *Classifier) Depth() int {
	return depth(c.root)
}

func depth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	l, r := depth(n.left), depth(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

type grower struct {
	x           *mat.Dense
	y           []int
	nClasses    int
	nFeatures   int
	opts        Options
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	left      []int
	right     []int
	impLeft   float64
	impRight  float64
	score     float64
}

func (g *grower) grow(samples []int, d int) *node {
	counts := g.counts(samples)
	n := &node{counts: counts}
	imp := gini(counts, float64(len(samples)))

	if d >= g.opts.MaxDepth || len(samples) < g.opts.MinSamplesSplit || imp == 0 {
		n.leaf = true
		return n
	}

	best, ok := g.bestSplit(samples, imp)
	if !ok {
		n.leaf = true
		return n
	}

	nt := float64(len(samples))
	nl := float64(len(best.left))
	nr := float64(len(best.right))
	g.importances[best.feature] += nt*imp - nl*best.impLeft - nr*best.impRight

	n.feature = best.feature
	n.threshold = best.threshold
	n.left = g.grow(best.left, d+1)
	n.right = g.grow(best.right, d+1)
	return n
}

// bestSplit scans features in a seeded random order and keeps the first
// split with the strictly largest impurity decrease.
func (g *grower) bestSplit(samples []int, parentImp float64) (split, bool) {
	var best split
	found := false
	nt := float64(len(samples))

	order := g.rng.Perm(g.nFeatures)
	sorted := make([]int, len(samples))
	for _, f := range order {
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return g.x.At(sorted[i], f) < g.x.At(sorted[j], f)
		})
		lo, hi := g.x.At(sorted[0], f), g.x.At(sorted[len(sorted)-1], f)
		if lo == hi {
			continue
		}

		left := make([]float64, g.nClasses)
		right := g.counts(sorted)
		for i := 0; i < len(sorted)-1; i++ {
			cls := g.y[sorted[i]]
			left[cls]++
			right[cls]--

			v, next := g.x.At(sorted[i], f), g.x.At(sorted[i+1], f)
			if v == next {
				continue
			}
			nl := float64(i + 1)
			nr := nt - nl
			impL := gini(left, nl)
			impR := gini(right, nr)
			score := parentImp - (nl/nt)*impL - (nr/nt)*impR
			if !found || score > best.score {
				found = true
				best = split{
					feature:   f,
					threshold: v + (next-v)/2,
					impLeft:   impL,
					impRight:  impR,
					score:     score,
				}
			}
		}
	}
	if !found || best.score <= 0 {
		return split{}, false
	}

	for _, s := range samples {
		if g.x.At(s, best.feature) <= best.threshold {
			best.left = append(best.left, s)
		} else {
			best.right = append(best.right, s)
		}
	}
	return best, true
}

func (g *grower) counts(samples []int) []float64 {
	out := make([]float64, g.nClasses)
	for _, s := range samples {
		out[g.y[s]]++
	}
	return out
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}
