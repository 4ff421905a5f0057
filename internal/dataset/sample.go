package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"

	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// SampleHeader is the column layout produced by Sample.
var SampleHeader = []string{
	"respondent_id",
	"fav_film",
	"fav_heroe",
	"fav_villain",
	"fav_soundtrack",
	"fav_spaceship",
	"fav_planet",
	"fav_robot",
}

// tastes are the planted respondent groups. Column order follows
// SampleHeader without the id.
var tastes = [][]string{
	{"A New Hope", "Luke Skywalker", "Darth Vader", "Main Title", "Millennium Falcon", "Tatooine", "R2-D2"},
	{"The Empire Strikes Back", "Han Solo", "Boba Fett", "The Imperial March", "Slave I", "Hoth", "C-3PO"},
	{"The Phantom Menace", "Obi-Wan Kenobi", "Darth Maul", "Duel of the Fates", "Naboo Starfighter", "Naboo", "Battle Droid"},
	{"The Force Awakens", "Rey", "Kylo Ren", "Rey's Theme", "X-wing", "Jakku", "BB-8"},
}

// SampleOptions controls the noise of the synthetic survey.
type SampleOptions struct {
	// Loyalty is the chance an answer follows the respondent's group.
	Loyalty float64
	// Blank is the chance an answer is left empty.
	Blank float64
	// Extra is the chance a planet answer names a second planet.
	Extra float64
}

// DefaultSampleOptions gives clearly separated groups with some noise.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{Loyalty: 0.85, Blank: 0.03, Extra: 0.1}
}

// Sample generates n synthetic survey responses. The same seed always gives
// the same dataset.
func Sample(n int, seed int64) *record.Dataset {
	return SampleWith(n, seed, DefaultSampleOptions())
}

// SampleWith is Sample with explicit noise settings.
func SampleWith(n int, seed int64, opts SampleOptions) *record.Dataset {
	rng := rand.New(rand.NewSource(seed))
	cols := SampleHeader[1:]
	planet := indexOf(cols, "fav_planet")

	rows := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		group := tastes[i%len(tastes)]
		values := map[string]string{"respondent_id": fmt.Sprintf("r%05d", i+1)}
		for c, col := range cols {
			if rng.Float64() < opts.Blank {
				values[col] = ""
				continue
			}
			v := group[c]
			if rng.Float64() >= opts.Loyalty {
				v = tastes[rng.Intn(len(tastes))][c]
			}
			if c == planet && rng.Float64() < opts.Extra {
				other := tastes[rng.Intn(len(tastes))][c]
				if other != v {
					v = v + ", " + other
				}
			}
			values[col] = v
		}
		rows = append(rows, record.NewRecord(values))
	}
	return record.New(SampleHeader, rows)
}

// WriteCSV writes ds in header order.
func WriteCSV(w io.Writer, ds *record.Dataset) error {
	cw := csv.NewWriter(w)
	header := ds.Header()
	if err := cw.Write(header); err != nil {
		return err
	}
	line := make([]string, len(header))
	for _, r := range ds.Rows() {
		for i, h := range header {
			v, _ := r.Raw(h)
			line[i] = v
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
