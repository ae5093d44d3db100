package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudctl/pkg/preprocess"
	"github.com/frauddesk/fraudctl/pkg/schema"
)

// writeArtifact fits a minimal preprocessor over two synthetic records
// and persists it, returning the artifact path.
func writeArtifact(t *testing.T) string {
	t.Helper()

	rec := func(income float64, paymentType string) preprocess.Record {
		r := preprocess.Record{}
		for _, name := range schema.Numeric {
			r[name] = 1.0
		}
		r["income"] = income
		r["payment_type"] = paymentType
		r["employment_status"] = "CA"
		r["housing_status"] = "BA"
		r["source"] = "INTERNET"
		r["device_os"] = "linux"
		return r
	}

	f := preprocess.NewFitter()
	require.NoError(t, f.Add(rec(40000, "AA")))
	require.NoError(t, f.Add(rec(60000, "AB")))
	p, err := f.Finish()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "preprocessor.json.gz")
	require.NoError(t, preprocess.Save(path, p))
	return path
}

func stubService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func runPipeline(t *testing.T, opts Options) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	code = Run(context.Background(), opts)
	return code, out.String(), errOut.String()
}

func decodeFailure(t *testing.T, stderr string) Failure {
	t.Helper()
	var f Failure
	require.NoError(t, json.Unmarshal([]byte(stderr), &f))
	return f
}

func TestRun_Success(t *testing.T) {
	artifact := writeArtifact(t)
	srv := stubService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions": [1]}`))
	})

	code, stdout, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     srv.URL,
		Stdin:        strings.NewReader(`{"income": 50000, "payment_type": "AB"}`),
	})

	require.Zero(t, code)
	assert.Empty(t, stderr)

	var res Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, 1, res.FraudBool)
	assert.Equal(t, 26, res.NumFeatures) // 25 numeric + (2-1) for payment_type
	assert.Equal(t, 1, strings.Count(stdout, "\n"), "exactly one line of output")
}

func TestRun_ServiceTimeout(t *testing.T) {
	artifact := writeArtifact(t)
	srv := stubService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	code, stdout, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     srv.URL,
		Timeout:      50 * time.Millisecond,
		Stdin:        strings.NewReader(`{}`),
	})

	require.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, KindService, decodeFailure(t, stderr).Kind)
}

func TestRun_ServiceErrorStatus(t *testing.T) {
	artifact := writeArtifact(t)
	srv := stubService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	code, _, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     srv.URL,
		Stdin:        strings.NewReader(`{}`),
	})

	require.Equal(t, 1, code)
	fail := decodeFailure(t, stderr)
	assert.Equal(t, KindService, fail.Kind)
	assert.Contains(t, fail.Error, "500")
}

func TestRun_InvalidJSON(t *testing.T) {
	artifact := writeArtifact(t)

	code, stdout, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     "http://localhost:0",
		Stdin:        strings.NewReader(`{not json`),
	})

	require.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, KindValidation, decodeFailure(t, stderr).Kind)
}

func TestRun_TransformError(t *testing.T) {
	artifact := writeArtifact(t)

	code, _, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     "http://localhost:0",
		Stdin:        strings.NewReader(`{"income": "lots"}`),
	})

	require.Equal(t, 1, code)
	fail := decodeFailure(t, stderr)
	assert.Equal(t, KindTransform, fail.Kind)
	assert.Contains(t, fail.Error, "income")
}

// readerSpy records whether the input stream was ever touched.
type readerSpy struct{ read bool }

func (r *readerSpy) Read([]byte) (int, error) {
	r.read = true
	return 0, nil
}

func TestRun_MissingArtifact(t *testing.T) {
	in := &readerSpy{}
	artifact := filepath.Join(t.TempDir(), "absent.json.gz")

	code, stdout, stderr := runPipeline(t, Options{
		ArtifactPath: artifact,
		Endpoint:     "http://localhost:0",
		Stdin:        in,
	})

	require.Equal(t, 1, code)
	assert.Empty(t, stdout)

	fail := decodeFailure(t, stderr)
	assert.Equal(t, KindConfig, fail.Kind)
	assert.Contains(t, fail.Error, "fraudctl fit")
	assert.False(t, in.read, "no record should be consumed when the artifact is missing")
}
