package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/frauddesk/fraudctl/pkg/schema"
)

// Fitter accumulates per-feature statistics over training records in a
// single streaming pass. Use NewFitter, Add every record, then Finish.
type Fitter struct {
	rows  int
	sum   map[string]float64
	sumSq map[string]float64
	cats  map[string]map[string]struct{}
}

// NewFitter creates an empty Fitter for the compiled schema.
func NewFitter() *Fitter {
	f := &Fitter{
		sum:   make(map[string]float64, len(schema.Numeric)),
		sumSq: make(map[string]float64, len(schema.Numeric)),
		cats:  make(map[string]map[string]struct{}, len(schema.Categorical)),
	}
	for _, name := range schema.Categorical {
		f.cats[name] = make(map[string]struct{})
	}
	return f
}

// Rows returns the number of records accumulated so far.
func (f *Fitter) Rows() int { return f.rows }

// Add folds one training record into the running statistics. Records
// that are entirely empty are dropped. Missing numeric values are
// coerced to 0 before accumulation, matching the serving-time
// imputation so fitted parameters and served vectors stay consistent.
// Null categorical values contribute no category.
func (f *Fitter) Add(rec Record) error {
	if empty(rec) {
		return nil
	}
	for _, name := range schema.Numeric {
		v, err := numericValue(rec, name)
		if err != nil {
			return fmt.Errorf("row %d: %w", f.rows+1, err)
		}
		f.sum[name] += v
		f.sumSq[name] += v * v
	}
	for _, name := range schema.Categorical {
		v, err := categoricalValue(rec, name)
		if err != nil {
			return fmt.Errorf("row %d: %w", f.rows+1, err)
		}
		if v != "" {
			f.cats[name][v] = struct{}{}
		}
	}
	f.rows++
	return nil
}

// Finish computes the fitted Preprocessor. Standard deviations are
// population (divide by n). Categories are sorted lexicographically and
// the first becomes the dropped reference level.
func (f *Fitter) Finish() (*Preprocessor, error) {
	if f.rows == 0 {
		return nil, errors.New("no non-empty training records")
	}

	p := &Preprocessor{
		Numeric:     make(map[string]NumericStats, len(schema.Numeric)),
		Categorical: make(map[string]CategoryEncoding, len(schema.Categorical)),
	}

	n := float64(f.rows)
	for _, name := range schema.Numeric {
		mean := f.sum[name] / n
		variance := f.sumSq[name]/n - mean*mean
		if variance < 0 {
			variance = 0 // float round-off
		}
		p.Numeric[name] = NumericStats{Mean: mean, Std: math.Sqrt(variance)}
	}

	for _, name := range schema.Categorical {
		if len(f.cats[name]) == 0 {
			return nil, fmt.Errorf("categorical feature %q has no observed values", name)
		}
		cats := make([]string, 0, len(f.cats[name]))
		for c := range f.cats[name] {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		p.Categorical[name] = CategoryEncoding{Categories: cats, Reference: cats[0]}
	}

	return p, nil
}

func empty(rec Record) bool {
	for _, name := range schema.Fields() {
		if v, ok := rec[name]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return false
		}
	}
	return true
}
