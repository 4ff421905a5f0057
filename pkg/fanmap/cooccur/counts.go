package cooccur

import (
	"sort"
	"strings"

	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// DefaultType is used for item keys without a type prefix.
const DefaultType = "item"

// Counter maintains item and pair frequencies over records
type Counter struct {
	N   int64            // total number of records
	Nx  map[string]int64 // records containing each item
	Nxy map[Pair]int64   // records containing both items of a pair
}

// Pair is an unordered item pair stored in canonical order (A < B)
type Pair struct {
	A, B string
}

// NewPair returns the canonical pair for a and b
func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{
		Nx:  make(map[string]int64),
		Nxy: make(map[Pair]int64),
	}
}

// AddRecord counts one record. Duplicate items are counted once and every
// unordered pair is counted once per record.
func (c *Counter) AddRecord(items []string) {
	c.N++

	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			set[it] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(set))
	for it := range set {
		sorted = append(sorted, it)
	}
	sort.Strings(sorted)

	for _, it := range sorted {
		c.Nx[it]++
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			c.Nxy[Pair{A: sorted[i], B: sorted[j]}]++
		}
	}
}

// PairCount returns the co-occurrence count for two items in either order
func (c *Counter) PairCount(a, b string) int64 {
	return c.Nxy[NewPair(a, b)]
}

// Count returns the number of records containing item
func (c *Counter) Count(item string) int64 {
	return c.Nx[item]
}

// TotalRecords returns the number of records processed
func (c *Counter) TotalRecords() int64 {
	return c.N
}

// UniqueItems returns the number of distinct items
func (c *Counter) UniqueItems() int {
	return len(c.Nx)
}

// UniquePairs returns the number of distinct pairs
func (c *Counter) UniquePairs() int {
	return len(c.Nxy)
}

// Types returns the sorted item types present in the counter
func (c *Counter) Types() []string {
	seen := make(map[string]struct{})
	for it := range c.Nx {
		t, _ := SplitItem(it)
		seen[t] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ItemKey builds the typed key of a value: ("planet", "Tatooine") -> "planet:Tatooine"
func ItemKey(typ, value string) string {
	return typ + ":" + value
}

// SplitItem splits a typed key at its first colon
func SplitItem(key string) (typ, label string) {
	if i := strings.Index(key, ":"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return DefaultType, key
}

// Items returns the typed items of one record over the given preference columns.
// Multi-valued cells contribute one item per value.
func Items(r record.Record, columns []string) []string {
	var items []string
	for _, col := range columns {
		raw, ok := r.Raw(col)
		if !ok {
			continue
		}
		typ := record.ItemType(col)
		for _, v := range record.SplitValues(raw) {
			items = append(items, ItemKey(typ, v))
		}
	}
	return items
}

// Build indexes every record of ds over its auto-detected preference columns
func Build(ds *record.Dataset) *Counter {
	cols := record.FavoriteColumns(ds.Header())
	c := NewCounter()
	for _, r := range ds.Rows() {
		c.AddRecord(Items(r, cols))
	}
	return c
}
