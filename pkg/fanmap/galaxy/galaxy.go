package galaxy

import (
	"sort"
	"strings"

	"github.com/cognicore/fanmap/pkg/fanmap/cooccur"
)

// Defaults taken from the galaxy page sliders.
const (
	DefaultMinItemFrequency = 20
	DefaultMinPairCount     = 12
	DefaultMinJaccard       = 0.10
	DefaultMaxEdges         = 1500
)

// DefaultIncludeTypes are the item types shown when none are chosen explicitly.
var DefaultIncludeTypes = []string{"heroe", "villain", "film", "planet"}

// Options are the graph thresholds.
type Options struct {
	IncludeTypes     []string `json:"include_types"`
	MinItemFrequency int64    `json:"min_item_frequency"`
	MinPairCount     int64    `json:"min_pair_count"`
	MinJaccard       float64  `json:"min_jaccard"`
	MaxEdges         int      `json:"max_edges"`
}

// DefaultOptions returns the slider defaults.
func DefaultOptions() Options {
	return Options{
		IncludeTypes:     append([]string(nil), DefaultIncludeTypes...),
		MinItemFrequency: DefaultMinItemFrequency,
		MinPairCount:     DefaultMinPairCount,
		MinJaccard:       DefaultMinJaccard,
		MaxEdges:         DefaultMaxEdges,
	}
}

// Node is one item of the graph.
type Node struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Frequency int64  `json:"frequency"`
}

// Edge links two items that co-occur strongly enough.
type Edge struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	PairCount int64   `json:"pair_count"`
	Jaccard   float64 `json:"jaccard"`
	NPMI      float64 `json:"npmi"`
}

// View is the projection of a co-occurrence index under one set of thresholds.
type View struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build filters and ranks the pairs of idx. Nodes must belong to an included
// type and meet the frequency minimum; edges must join two such nodes and
// meet the pair count and Jaccard minimums. Edges are sorted by Jaccard then
// pair count, both descending, and capped at MaxEdges. Only nodes touched by
// a surviving edge are returned.
func Build(idx *cooccur.Counter, opts Options) View {
	view := View{Nodes: []Node{}, Edges: []Edge{}}
	if len(opts.IncludeTypes) == 0 {
		return view
	}
	include := make(map[string]struct{}, len(opts.IncludeTypes))
	for _, t := range opts.IncludeTypes {
		include[t] = struct{}{}
	}

	allowed := make(map[string]struct{})
	for it, n := range idx.Nx {
		typ, _ := cooccur.SplitItem(it)
		if _, ok := include[typ]; ok && n >= opts.MinItemFrequency {
			allowed[it] = struct{}{}
		}
	}

	for p, inter := range idx.Nxy {
		if inter < opts.MinPairCount {
			continue
		}
		if _, ok := allowed[p.A]; !ok {
			continue
		}
		if _, ok := allowed[p.B]; !ok {
			continue
		}
		jac := cooccur.Jaccard(inter, idx.Nx[p.A], idx.Nx[p.B])
		if jac < opts.MinJaccard {
			continue
		}
		view.Edges = append(view.Edges, Edge{
			Source:    p.A,
			Target:    p.B,
			PairCount: inter,
			Jaccard:   jac,
			NPMI:      cooccur.NPMI(inter, idx.Nx[p.A], idx.Nx[p.B], idx.N),
		})
	}

	sortEdges(view.Edges)
	if opts.MaxEdges >= 0 && len(view.Edges) > opts.MaxEdges {
		view.Edges = view.Edges[:opts.MaxEdges]
	}

	used := make(map[string]struct{})
	for _, e := range view.Edges {
		used[e.Source] = struct{}{}
		used[e.Target] = struct{}{}
	}
	for it := range used {
		typ, label := cooccur.SplitItem(it)
		view.Nodes = append(view.Nodes, Node{ID: it, Label: label, Type: typ, Frequency: idx.Nx[it]})
	}
	sort.Slice(view.Nodes, func(i, j int) bool {
		if view.Nodes[i].Frequency == view.Nodes[j].Frequency {
			return view.Nodes[i].ID < view.Nodes[j].ID
		}
		return view.Nodes[i].Frequency > view.Nodes[j].Frequency
	})
	return view
}

// sortEdges orders by Jaccard, then pair count, descending. Endpoint ids
// break remaining ties so the cap is deterministic.
func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Jaccard != b.Jaccard {
			return a.Jaccard > b.Jaccard
		}
		if a.PairCount != b.PairCount {
			return a.PairCount > b.PairCount
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
}

// NeighborOptions configures Neighbors.
type NeighborOptions struct {
	K            int
	MinPairCount int64
}

// Defaults of the neighbour explorer.
const (
	DefaultNeighborK            = 8
	DefaultNeighborMinPairCount = 10
)

// Neighbor is an item co-occurring with the queried one.
type Neighbor struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Type      string  `json:"type"`
	PairCount int64   `json:"pair_count"`
	Jaccard   float64 `json:"jaccard"`
}

// ResolveLabel finds the item whose label equals label, falling back to the
// first case-insensitive substring match. Candidates are tried in key order.
func ResolveLabel(idx *cooccur.Counter, label string) (string, bool) {
	if label == "" {
		return "", false
	}
	keys := make([]string, 0, len(idx.Nx))
	for it := range idx.Nx {
		keys = append(keys, it)
	}
	sort.Strings(keys)

	for _, it := range keys {
		if _, l := cooccur.SplitItem(it); l == label {
			return it, true
		}
	}
	needle := strings.ToLower(label)
	for _, it := range keys {
		if _, l := cooccur.SplitItem(it); strings.Contains(strings.ToLower(l), needle) {
			return it, true
		}
	}
	return "", false
}

// Neighbors lists the strongest partners of the item matching label.
// The returned key is the resolved item, empty when nothing matched.
func Neighbors(idx *cooccur.Counter, label string, opts NeighborOptions) (string, []Neighbor) {
	if opts.K <= 0 {
		opts.K = DefaultNeighborK
	}
	tag, ok := ResolveLabel(idx, label)
	if !ok {
		return "", nil
	}

	var out []Neighbor
	for p, inter := range idx.Nxy {
		if inter < opts.MinPairCount {
			continue
		}
		var other string
		switch tag {
		case p.A:
			other = p.B
		case p.B:
			other = p.A
		default:
			continue
		}
		typ, l := cooccur.SplitItem(other)
		out = append(out, Neighbor{
			ID:        other,
			Label:     l,
			Type:      typ,
			PairCount: inter,
			Jaccard:   idx.Jaccard(tag, other),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Jaccard != out[j].Jaccard {
			return out[i].Jaccard > out[j].Jaccard
		}
		if out[i].PairCount != out[j].PairCount {
			return out[i].PairCount > out[j].PairCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > opts.K {
		out = out[:opts.K]
	}
	return tag, out
}
