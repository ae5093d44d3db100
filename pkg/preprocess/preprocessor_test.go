package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudctl/pkg/schema"
)

// testPreprocessor builds a fitted preprocessor covering the full
// schema: unit stats for every numeric feature except income
// (mean=50000, std=10000), and a small category list per categorical
// feature with the lexicographically first value as reference.
func testPreprocessor() *Preprocessor {
	p := &Preprocessor{
		Numeric:     make(map[string]NumericStats, len(schema.Numeric)),
		Categorical: make(map[string]CategoryEncoding, len(schema.Categorical)),
	}
	for _, name := range schema.Numeric {
		p.Numeric[name] = NumericStats{Mean: 0, Std: 1}
	}
	p.Numeric["income"] = NumericStats{Mean: 50000, Std: 10000}

	cats := map[string][]string{
		"payment_type":      {"AA", "AB", "AC"},
		"employment_status": {"CA", "CB"},
		"housing_status":    {"BA", "BB", "BC"},
		"source":            {"INTERNET", "TELEAPP"},
		"device_os":         {"linux", "macintosh", "windows"},
	}
	for name, c := range cats {
		p.Categorical[name] = CategoryEncoding{Categories: c, Reference: c[0]}
	}
	return p
}

// numericIndex returns the vector position of a numeric feature.
func numericIndex(t *testing.T, name string) int {
	t.Helper()
	for i, n := range schema.Numeric {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown numeric feature %q", name)
	return -1
}

// blockOffset returns the vector position where the indicator block of
// a categorical feature starts.
func blockOffset(t *testing.T, p *Preprocessor, name string) int {
	t.Helper()
	off := len(schema.Numeric)
	for _, n := range schema.Categorical {
		if n == name {
			return off
		}
		off += len(p.Categorical[n].Categories) - 1
	}
	t.Fatalf("unknown categorical feature %q", name)
	return -1
}

func TestVectorLength(t *testing.T) {
	p := testPreprocessor()
	// 25 numeric + (3-1) + (2-1) + (3-1) + (2-1) + (3-1)
	assert.Equal(t, 33, p.VectorLength())
}

func TestTransform_Length(t *testing.T) {
	p := testPreprocessor()
	vec, err := p.Transform(Record{"income": 60000.0, "payment_type": "AB"})
	require.NoError(t, err)
	assert.Len(t, vec, p.VectorLength())
}

func TestTransform_StandardizesNumeric(t *testing.T) {
	p := testPreprocessor()
	vec, err := p.Transform(Record{"income": 60000.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[numericIndex(t, "income")], 1e-9)
}

func TestTransform_MissingNumericImputesZero(t *testing.T) {
	p := testPreprocessor()

	implicit, err := p.Transform(Record{"income": 60000.0})
	require.NoError(t, err)

	explicit, err := p.Transform(Record{"income": 60000.0, "velocity_6h": 0.0})
	require.NoError(t, err)

	assert.Equal(t, implicit, explicit)
}

func TestTransform_Deterministic(t *testing.T) {
	p := testPreprocessor()
	rec := Record{
		"income":       60000.0,
		"customer_age": 30.0,
		"payment_type": "AC",
		"device_os":    "windows",
	}

	a, err := p.Transform(rec)
	require.NoError(t, err)
	b, err := p.Transform(rec)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestTransform_ZeroStddev(t *testing.T) {
	p := testPreprocessor()
	p.Numeric["device_fraud_count"] = NumericStats{Mean: 3, Std: 0}

	vec, err := p.Transform(Record{"device_fraud_count": 42.0})
	require.NoError(t, err)
	assert.Zero(t, vec[numericIndex(t, "device_fraud_count")])
}

func TestTransform_OneHotBlock(t *testing.T) {
	p := testPreprocessor()
	off := blockOffset(t, p, "payment_type")

	vec, err := p.Transform(Record{"payment_type": "AB"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec[off:off+2])

	vec, err = p.Transform(Record{"payment_type": "AC"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, vec[off:off+2])
}

func TestTransform_ReferenceCategoryIsAllZero(t *testing.T) {
	p := testPreprocessor()
	off := blockOffset(t, p, "payment_type")

	vec, err := p.Transform(Record{"payment_type": "AA"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, vec[off:off+2])
}

func TestTransform_UnseenCategoryFallsBackToReference(t *testing.T) {
	p := testPreprocessor()
	off := blockOffset(t, p, "payment_type")

	vec, err := p.Transform(Record{"payment_type": "ZZ"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, vec[off:off+2])
}

func TestTransform_MissingCategoryEqualsReference(t *testing.T) {
	p := testPreprocessor()

	missing, err := p.Transform(Record{})
	require.NoError(t, err)
	reference, err := p.Transform(Record{"payment_type": "AA"})
	require.NoError(t, err)

	assert.Equal(t, reference, missing)
}

func TestTransform_CoercesValueTypes(t *testing.T) {
	p := testPreprocessor()

	vec, err := p.Transform(Record{"income": "60000"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[numericIndex(t, "income")], 1e-9)

	vec, err = p.Transform(Record{"email_is_free": true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[numericIndex(t, "email_is_free")], 1e-9)
}

func TestTransform_TypeErrors(t *testing.T) {
	p := testPreprocessor()

	tests := []struct {
		name string
		rec  Record
	}{
		{"non-numeric string in numeric field", Record{"income": "lots"}},
		{"object in numeric field", Record{"income": map[string]any{}}},
		{"number in categorical field", Record{"payment_type": 5.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Transform(tt.rec)
			var terr *TransformError
			require.ErrorAs(t, err, &terr)
		})
	}
}

func TestTransform_IgnoresExtraKeys(t *testing.T) {
	p := testPreprocessor()

	with, err := p.Transform(Record{"income": 60000.0, "unknown_field": "whatever"})
	require.NoError(t, err)
	without, err := p.Transform(Record{"income": 60000.0})
	require.NoError(t, err)

	assert.Equal(t, without, with)
}
