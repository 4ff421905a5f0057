package cooccur

import (
	"math"
	"testing"

	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

func TestCounterBasic(t *testing.T) {
	counter := NewCounter()
	counter.AddRecord([]string{"heroe:Luke", "villain:Vader", "planet:Tatooine"})

	if counter.TotalRecords() != 1 {
		t.Errorf("Expected 1 record, got %d", counter.TotalRecords())
	}
	if counter.Count("heroe:Luke") != 1 {
		t.Error("Item 'heroe:Luke' should have count 1")
	}
	if counter.UniquePairs() != 3 {
		t.Errorf("Expected 3 pairs, got %d", counter.UniquePairs())
	}
}

func TestCounterDuplicatesCountedOnce(t *testing.T) {
	counter := NewCounter()
	counter.AddRecord([]string{"planet:Hoth", "planet:Hoth", "heroe:Han", ""})

	if counter.Count("planet:Hoth") != 1 {
		t.Errorf("Duplicate item should count once, got %d", counter.Count("planet:Hoth"))
	}
	if counter.PairCount("planet:Hoth", "heroe:Han") != 1 {
		t.Errorf("Pair should count once, got %d", counter.PairCount("planet:Hoth", "heroe:Han"))
	}
	if counter.UniqueItems() != 2 {
		t.Errorf("Empty item should be ignored, got %d items", counter.UniqueItems())
	}
}

func TestCounterCanonicalOrdering(t *testing.T) {
	counter := NewCounter()
	counter.AddRecord([]string{"villain:Vader", "heroe:Luke"})

	count1 := counter.PairCount("villain:Vader", "heroe:Luke")
	count2 := counter.PairCount("heroe:Luke", "villain:Vader")
	if count1 != count2 {
		t.Error("Pair count should be symmetric")
	}
	if count1 != 1 {
		t.Errorf("Expected count 1, got %d", count1)
	}
	for p := range counter.Nxy {
		if p.A >= p.B {
			t.Errorf("Pair %v not stored in canonical order", p)
		}
	}
}

func TestPairCountBoundedByItemCounts(t *testing.T) {
	counter := NewCounter()
	counter.AddRecord([]string{"a:1", "b:2"})
	counter.AddRecord([]string{"a:1", "b:2", "c:3"})
	counter.AddRecord([]string{"a:1"})

	for p, n := range counter.Nxy {
		if n > counter.Count(p.A) || n > counter.Count(p.B) {
			t.Errorf("Pair %v count %d exceeds an item count", p, n)
		}
	}
}

func TestSplitItem(t *testing.T) {
	tests := []struct {
		key       string
		wantType  string
		wantLabel string
	}{
		{"planet:Tatooine", "planet", "Tatooine"},
		{"soundtrack:Across the Stars: Love Theme", "soundtrack", "Across the Stars: Love Theme"},
		{"Yoda", DefaultType, "Yoda"},
	}
	for _, tt := range tests {
		typ, label := SplitItem(tt.key)
		if typ != tt.wantType || label != tt.wantLabel {
			t.Errorf("SplitItem(%q) = (%q, %q), want (%q, %q)", tt.key, typ, label, tt.wantType, tt.wantLabel)
		}
	}
}

func TestBuildSplitsMultiValuedCells(t *testing.T) {
	ds := record.New(
		[]string{"respondent_id", "fav_planet", "fav_heroe"},
		[]record.Record{
			record.NewRecord(map[string]string{"respondent_id": "1", "fav_planet": "Hoth, Naboo", "fav_heroe": "Leia"}),
			record.NewRecord(map[string]string{"respondent_id": "2", "fav_planet": "Hoth", "fav_heroe": ""}),
		},
	)
	counter := Build(ds)

	if counter.TotalRecords() != 2 {
		t.Fatalf("Expected 2 records, got %d", counter.TotalRecords())
	}
	if counter.Count("planet:Hoth") != 2 {
		t.Errorf("planet:Hoth should appear in 2 records, got %d", counter.Count("planet:Hoth"))
	}
	if counter.PairCount("planet:Hoth", "planet:Naboo") != 1 {
		t.Error("Values of one cell should co-occur")
	}
	if counter.Count("respondent_id:1") != 0 {
		t.Error("Non preference columns must not be indexed")
	}
	types := counter.Types()
	if len(types) != 2 || types[0] != "heroe" || types[1] != "planet" {
		t.Errorf("Expected types [heroe planet], got %v", types)
	}
}

func TestJaccard(t *testing.T) {
	counter := NewCounter()
	counter.AddRecord([]string{"x:a", "x:b"})
	counter.AddRecord([]string{"x:a"})
	counter.AddRecord([]string{"x:a"})
	counter.AddRecord([]string{"x:b"})
	counter.AddRecord([]string{"x:c"})

	// N_a=3, N_b=2, N_ab=1 -> 1/(3+2-1)
	if got := counter.Jaccard("x:a", "x:b"); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Jaccard = %v, want 0.25", got)
	}
	if counter.Jaccard("x:a", "x:b") != counter.Jaccard("x:b", "x:a") {
		t.Error("Jaccard should be symmetric")
	}
	if got := counter.Jaccard("x:a", "x:c"); got != 0 {
		t.Errorf("Jaccard of disjoint items = %v, want 0", got)
	}
	if got := Jaccard(0, 0, 0); got != 0 {
		t.Errorf("Jaccard of empty counts = %v, want 0", got)
	}
}

func TestJaccardIdenticalItems(t *testing.T) {
	if got := Jaccard(4, 4, 4); got != 1 {
		t.Errorf("Jaccard of always co-occurring items = %v, want 1", got)
	}
}

func TestNPMIRange(t *testing.T) {
	tests := []struct {
		name           string
		nAB, nA, nB, n int64
		wantPositive   bool
		wantZero       bool
	}{
		{"strong association", 9, 10, 10, 100, true, false},
		{"never together", 0, 50, 50, 100, false, true},
		{"everywhere", 100, 100, 100, 100, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NPMI(tt.nAB, tt.nA, tt.nB, tt.n)
			if got < -1 || got > 1 {
				t.Fatalf("NPMI = %v outside [-1, 1]", got)
			}
			if tt.wantZero && got != 0 {
				t.Errorf("NPMI = %v, want 0", got)
			}
			if tt.wantPositive && got <= 0 {
				t.Errorf("NPMI = %v, want > 0", got)
			}
		})
	}
}
