// Package pipeline drives a single record through preprocessing and
// remote scoring: parse, transform, predict, emit.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/frauddesk/fraudctl/pkg/preprocess"
	"github.com/frauddesk/fraudctl/pkg/scoring"
)

// ValidationError indicates the input stream did not contain a valid
// JSON record.
//
// The original underlying error can be accessed via errors.Unwrap.
type ValidationError struct {
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input record: %v", e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Error kinds emitted in the failure output.
const (
	KindConfig     = "config_error"
	KindValidation = "validation_error"
	KindTransform  = "transform_error"
	KindService    = "service_error"
	KindInternal   = "internal_error"
)

// Result is the success output: the predicted label and the fixed
// feature-vector length it was scored from.
type Result struct {
	FraudBool   int `json:"fraud_bool"`
	NumFeatures int `json:"n_features"`
}

// Failure is the failure output. The error kind is tagged explicitly
// instead of reusing the prediction field, so a failed run can never
// be mistaken for a benign negative prediction.
type Failure struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Options configure one pipeline run.
type Options struct {
	ArtifactPath string
	Endpoint     string
	Timeout      time.Duration
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// Run executes one prediction end to end and returns the process exit
// code. Exactly one line of JSON is written: a Result to Stdout on
// success, a Failure to Stderr otherwise. The preprocessor artifact is
// loaded before any input is read, so a missing artifact fails fast
// without consuming the record.
func Run(ctx context.Context, opts Options) int {
	res, err := run(ctx, opts)
	if err != nil {
		json.NewEncoder(opts.Stderr).Encode(Failure{Error: err.Error(), Kind: kindOf(err)})
		return 1
	}
	json.NewEncoder(opts.Stdout).Encode(res)
	return 0
}

func run(ctx context.Context, opts Options) (*Result, error) {
	pre, err := preprocess.Load(opts.ArtifactPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("artifact loaded", "path", opts.ArtifactPath, "vector_length", pre.VectorLength())

	rec, err := parse(opts.Stdin)
	if err != nil {
		return nil, err
	}

	vector, err := pre.Transform(rec)
	if err != nil {
		return nil, err
	}
	slog.Debug("record transformed", "n_features", len(vector))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = scoring.DefaultTimeout
	}
	client := scoring.New(opts.Endpoint, scoring.WithTimeout(timeout))
	label, err := client.Predict(ctx, vector)
	if err != nil {
		return nil, err
	}
	slog.Debug("prediction received", "label", label)

	return &Result{FraudBool: label, NumFeatures: len(vector)}, nil
}

// parse reads exactly one JSON object from the input stream.
func parse(in io.Reader) (preprocess.Record, error) {
	var rec preprocess.Record
	if err := json.NewDecoder(in).Decode(&rec); err != nil {
		return nil, &ValidationError{cause: err}
	}
	return rec, nil
}

func kindOf(err error) string {
	var (
		cfgErr *preprocess.ConfigError
		valErr *ValidationError
		trfErr *preprocess.TransformError
		svcErr *scoring.ServiceError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &trfErr):
		return KindTransform
	case errors.As(err, &svcErr):
		return KindService
	default:
		return KindInternal
	}
}
