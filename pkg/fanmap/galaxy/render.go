package galaxy

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultTypeColors colour nodes by item type. "heroe" is the survey's spelling.
var DefaultTypeColors = map[string]string{
	"heroe":      "#4cc9f0",
	"hero":       "#4cc9f0",
	"villain":    "#ef233c",
	"planet":     "#2ecc71",
	"film":       "#ffd166",
	"spaceship":  "#9b59b6",
	"soundtrack": "#f39c12",
	"robot":      "#95a5a6",
}

// DefaultNodeColor is used for types without an entry in the colour map.
const DefaultNodeColor = "#c8d6e5"

// RenderOptions controls the HTML page.
type RenderOptions struct {
	Title      string
	Width      string
	Height     string
	TypeColors map[string]string
}

// DefaultRenderOptions returns a full-width dark page.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Title:      "Co-Occurrence Galaxy",
		Width:      "100%",
		Height:     "780px",
		TypeColors: DefaultTypeColors,
	}
}

// NodeSize grows logarithmically with frequency, never below 18.
func NodeSize(freq int64) float64 {
	return 12 + 6*math.Log10(math.Max(float64(freq), 10))
}

// EdgeWidths scales Jaccard values of view's edges linearly to [1, 9].
func EdgeWidths(edges []Edge) []float64 {
	out := make([]float64, len(edges))
	if len(edges) == 0 {
		return out
	}
	lo, hi := edges[0].Jaccard, edges[0].Jaccard
	for _, e := range edges[1:] {
		lo = math.Min(lo, e.Jaccard)
		hi = math.Max(hi, e.Jaccard)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i, e := range edges {
		out[i] = 1 + 8*((e.Jaccard-lo)/span)
	}
	return out
}

// RenderHTML writes view as a force directed graph page.
func RenderHTML(w io.Writer, view View, ro RenderOptions) error {
	if ro.TypeColors == nil {
		ro.TypeColors = DefaultTypeColors
	}

	types := make([]string, 0)
	typeIdx := make(map[string]int)
	for _, n := range view.Nodes {
		if _, ok := typeIdx[n.Type]; !ok {
			typeIdx[n.Type] = 0
			types = append(types, n.Type)
		}
	}
	sort.Strings(types)
	categories := make([]*opts.GraphCategory, len(types))
	for i, t := range types {
		typeIdx[t] = i
		categories[i] = &opts.GraphCategory{Name: t}
	}

	nodes := make([]opts.GraphNode, len(view.Nodes))
	for i, n := range view.Nodes {
		nodes[i] = opts.GraphNode{
			Name:       n.ID,
			Value:      float32(n.Frequency),
			Category:   typeIdx[n.Type],
			SymbolSize: NodeSize(n.Frequency),
			ItemStyle:  &opts.ItemStyle{Color: colorFor(ro.TypeColors, n.Type)},
		}
	}

	widths := EdgeWidths(view.Edges)
	links := make([]opts.GraphLink, len(view.Edges))
	for i, e := range view.Edges {
		links[i] = opts.GraphLink{
			Source:    e.Source,
			Target:    e.Target,
			Value:     float32(e.Jaccard),
			LineStyle: &opts.LineStyle{Width: float32(widths[i])},
		}
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           ro.Width,
			Height:          ro.Height,
			BackgroundColor: "#000000",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    ro.Title,
			Subtitle: fmt.Sprintf("%d items, %d links", len(view.Nodes), len(view.Edges)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	graph.AddSeries("galaxy", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Roam:       opts.Bool(true),
			Draggable:  opts.Bool(true),
			Categories: categories,
			Force: &opts.GraphForce{
				Repulsion:  800,
				Gravity:    0.28,
				EdgeLength: 190,
			},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Color: "#ffffff"}),
	)

	if err := graph.Render(w); err != nil {
		return fmt.Errorf("render galaxy: %w", err)
	}
	return nil
}

func colorFor(colors map[string]string, typ string) string {
	if c, ok := colors[typ]; ok {
		return c
	}
	return DefaultNodeColor
}
