package record

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
)

// DefaultSentinel stands in for an attribute a respondent did not answer.
const DefaultSentinel = "None"

// FavoritePrefix marks the preference columns of a survey export.
const FavoritePrefix = "fav_"

// Record is one respondent's answers keyed by attribute name.
type Record struct {
	values map[string]string
}

// NewRecord copies values into an immutable record.
func NewRecord(values map[string]string) Record {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Record{values: cp}
}

// Raw returns the stored value and whether the attribute was present.
func (r Record) Raw(attr string) (string, bool) {
	v, ok := r.values[attr]
	return v, ok
}

// Get returns the trimmed value, or DefaultSentinel when absent or blank.
func (r Record) Get(attr string) string {
	return r.GetOr(attr, DefaultSentinel)
}

// GetOr is Get with a caller supplied placeholder.
func (r Record) GetOr(attr, sentinel string) string {
	v := strings.TrimSpace(r.values[attr])
	if v == "" {
		return sentinel
	}
	return v
}

// Attributes returns the attribute names present in the record.
func (r Record) Attributes() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	return out
}

// Dataset is an ordered table of records sharing one header.
type Dataset struct {
	header []string
	rows   []Record
}

// New builds a dataset. Rows are used as-is; callers should not mutate them.
func New(header []string, rows []Record) *Dataset {
	h := make([]string, len(header))
	copy(h, header)
	return &Dataset{header: h, rows: rows}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Header returns a copy of the column names.
func (d *Dataset) Header() []string {
	out := make([]string, len(d.header))
	copy(out, d.header)
	return out
}

// Row returns the i-th record.
func (d *Dataset) Row(i int) Record {
	return d.rows[i]
}

// Rows returns the backing records.
func (d *Dataset) Rows() []Record {
	return d.rows
}

// Column returns the values of attr with missing cells replaced by the sentinel.
func (d *Dataset) Column(attr string) []string {
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Get(attr)
	}
	return out
}

// Filter keeps rows for which keep returns true.
func (d *Dataset) Filter(keep func(i int, r Record) bool) *Dataset {
	var rows []Record
	for i, r := range d.rows {
		if keep(i, r) {
			rows = append(rows, r)
		}
	}
	return &Dataset{header: d.header, rows: rows}
}

// Subset returns the rows at the given indices in that order.
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([]Record, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, d.rows[i])
	}
	return &Dataset{header: d.header, rows: rows}
}

// HasColumns reports every attribute in attrs missing from the header.
func (d *Dataset) HasColumns(attrs ...string) error {
	present := make(map[string]struct{}, len(d.header))
	for _, h := range d.header {
		present[h] = struct{}{}
	}
	var result *multierror.Error
	for _, a := range attrs {
		if _, ok := present[a]; !ok {
			result = multierror.Append(result, fmt.Errorf("%w: column %q not in dataset", internalerr.ErrSchemaMismatch, a))
		}
	}
	return result.ErrorOrNil()
}

// FavoriteColumns returns the preference columns in header order.
func FavoriteColumns(header []string) []string {
	var out []string
	for _, h := range header {
		if strings.HasPrefix(strings.ToLower(h), FavoritePrefix) {
			out = append(out, h)
		}
	}
	return out
}

// ItemType maps a preference column to its item type: fav_planet -> planet.
func ItemType(attr string) string {
	return strings.TrimPrefix(strings.ToLower(attr), FavoritePrefix)
}

// SplitValues splits a multi-valued cell on commas.
func SplitValues(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
