package profile

import (
	"fmt"
	"sort"

	"github.com/cognicore/fanmap/pkg/fanmap/model"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// TopAnswers is how many answers are reported per attribute.
const TopAnswers = 3

// Answer is one frequent value inside a cluster.
type Answer struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // share of the cluster, 0-100
}

// Summary describes one cluster.
type Summary struct {
	ID         int                 `json:"id"`
	Size       int                 `json:"size"`
	Percentage float64             `json:"percentage"` // share of the dataset, 0-100
	TopAnswers map[string][]Answer `json:"top_answers"`
}

// Report is the per-cluster breakdown of a dataset under one bundle.
type Report struct {
	BundleID string          `json:"bundle_id"`
	K        int             `json:"k"`
	Total    int             `json:"total"`
	Clusters map[int]Summary `json:"clusters"`
}

// Sorted returns the cluster summaries ordered by id.
func (r Report) Sorted() []Summary {
	out := make([]Summary, 0, len(r.Clusters))
	for _, s := range r.Clusters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Analyze labels every row of ds with the bundle and summarises each cluster.
// Answer percentages are relative to the cluster size.
func Analyze(b *model.Bundle, ds *record.Dataset) (Report, error) {
	labels, err := model.Assign(b, ds)
	if err != nil {
		return Report{}, fmt.Errorf("analyze: %w", err)
	}
	return Summarize(b, ds, labels), nil
}

// Summarize builds the report from precomputed labels.
func Summarize(b *model.Bundle, ds *record.Dataset, labels []int) Report {
	k := b.K()
	attrs := b.Attributes()

	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}

	rep := Report{
		BundleID: b.ID,
		K:        k,
		Total:    ds.Len(),
		Clusters: make(map[int]Summary, k),
	}
	for c := 0; c < k; c++ {
		s := Summary{
			ID:         c,
			Size:       len(members[c]),
			TopAnswers: make(map[string][]Answer, len(attrs)),
		}
		if rep.Total > 0 {
			s.Percentage = 100 * float64(s.Size) / float64(rep.Total)
		}
		for _, a := range attrs {
			s.TopAnswers[a] = topAnswers(ds, members[c], a)
		}
		rep.Clusters[c] = s
	}
	return rep
}

func topAnswers(ds *record.Dataset, rows []int, attr string) []Answer {
	if len(rows) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, i := range rows {
		counts[ds.Row(i).Get(attr)]++
	}
	answers := make([]Answer, 0, len(counts))
	for v, n := range counts {
		answers = append(answers, Answer{
			Value:      v,
			Count:      n,
			Percentage: 100 * float64(n) / float64(len(rows)),
		})
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].Count == answers[j].Count {
			return answers[i].Value < answers[j].Value
		}
		return answers[i].Count > answers[j].Count
	})
	if len(answers) > TopAnswers {
		answers = answers[:TopAnswers]
	}
	return answers
}
