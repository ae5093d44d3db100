// Package preprocess converts raw application records into the fixed
// numeric feature vectors the scoring model was trained on: schema
// enforcement, zero imputation, drop-first one-hot encoding, and
// standardization against fitted statistics.
package preprocess

import (
	"strconv"

	"github.com/frauddesk/fraudctl/pkg/schema"
)

// Record is one raw application keyed by field name. Keys outside the
// schema are ignored; missing schema fields are imputed downstream.
type Record map[string]any

// NumericStats holds fitted standardization parameters for one
// numeric feature.
type NumericStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CategoryEncoding holds the fitted category list for one categorical
// feature. Categories is in fit-time (sorted) order. Reference is the
// dropped level, persisted explicitly so re-fitting elsewhere cannot
// silently change which category the all-zero block encodes.
type CategoryEncoding struct {
	Categories []string `json:"categories"`
	Reference  string   `json:"reference"`
}

// Preprocessor is the immutable fitted state shared by every Transform
// call. It is created once by Fit, persisted, and loaded read-only at
// startup; it is never mutated afterwards, so unsynchronized concurrent
// reads are safe.
type Preprocessor struct {
	Numeric     map[string]NumericStats     `json:"numeric"`
	Categorical map[string]CategoryEncoding `json:"categorical"`
}

// VectorLength returns the fixed output vector length:
// |numeric| + sum(|categories|-1) over all categorical features.
func (p *Preprocessor) VectorLength() int {
	n := len(schema.Numeric)
	for _, name := range schema.Categorical {
		if c := len(p.Categorical[name].Categories); c > 1 {
			n += c - 1
		}
	}
	return n
}

// Transform turns one record into a feature vector of VectorLength
// floats: standardized numeric block first, then one indicator block
// per categorical feature, all in schema order.
//
// Missing or null numeric values impute to 0 before standardization.
// A fitted stddev of zero yields a standardized value of 0 rather than
// a division by zero. Missing, null, or never-fitted categorical
// values encode as the reference level (all-zero indicator block).
//
// Transform is pure: identical record and preprocessor always produce
// an identical vector.
func (p *Preprocessor) Transform(rec Record) ([]float64, error) {
	out := make([]float64, 0, p.VectorLength())

	for _, name := range schema.Numeric {
		v, err := numericValue(rec, name)
		if err != nil {
			return nil, err
		}
		st := p.Numeric[name]
		if st.Std == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (v-st.Mean)/st.Std)
	}

	for _, name := range schema.Categorical {
		v, err := categoricalValue(rec, name)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Categorical[name].encode(v)...)
	}

	return out, nil
}

// encode produces the drop-first indicator block for one value. The
// reference level, an empty value, and an unseen value all map to the
// all-zero block.
func (e CategoryEncoding) encode(value string) []float64 {
	cols := len(e.Categories) - 1
	if cols < 0 {
		cols = 0
	}
	block := make([]float64, cols)
	i := 0
	for _, c := range e.Categories {
		if c == e.Reference {
			continue
		}
		if i >= cols {
			break
		}
		if c == value {
			block[i] = 1
		}
		i++
	}
	return block
}

// numericValue coerces a record field to float64. Absent and null
// values impute to 0.
func numericValue(rec Record, name string) (float64, error) {
	raw, ok := rec[name]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &TransformError{Field: name, Value: raw}
		}
		return f, nil
	default:
		return 0, &TransformError{Field: name, Value: raw}
	}
}

// categoricalValue coerces a record field to its category string.
// Absent and null values yield the empty string, which encodes as the
// reference level.
func categoricalValue(rec Record, name string) (string, error) {
	raw, ok := rec[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &TransformError{Field: name, Value: raw}
	}
	return s, nil
}
