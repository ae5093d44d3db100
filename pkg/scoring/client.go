// Package scoring calls the remote model-scoring service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds the single synchronous scoring call.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 512

// ServiceError represents a failed scoring call: a non-2xx response
// (StatusCode and Body set), or a network, timeout, or response-parse
// failure (cause set).
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ServiceError struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("scoring service: %v", e.cause)
	}
	return fmt.Sprintf("scoring service: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// Client is a synchronous client for the scoring service. One request,
// one fixed timeout, no retry.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Client for the given endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// predictRequest wraps one feature vector as a single dataframe row
// with positional column names, the wire format the service expects.
type predictRequest struct {
	DataframeSplit dataframeSplit `json:"dataframe_split"`
}

type dataframeSplit struct {
	Columns []string    `json:"columns"`
	Data    [][]float64 `json:"data"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Predict sends one feature vector and returns the predicted label.
// Vector positions are named feature_0 .. feature_{len-1}. Any
// failure, including an out-of-range label, yields a *ServiceError.
func (c *Client) Predict(ctx context.Context, vector []float64) (int, error) {
	cols := make([]string, len(vector))
	for i := range vector {
		cols[i] = fmt.Sprintf("feature_%d", i)
	}

	body, err := json.Marshal(predictRequest{
		DataframeSplit: dataframeSplit{Columns: cols, Data: [][]float64{vector}},
	})
	if err != nil {
		return 0, &ServiceError{cause: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, &ServiceError{cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &ServiceError{cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, &ServiceError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, &ServiceError{cause: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Predictions) == 0 {
		return 0, &ServiceError{cause: fmt.Errorf("response contains no predictions")}
	}

	label := int(out.Predictions[0])
	if label != 0 && label != 1 {
		return 0, &ServiceError{cause: fmt.Errorf("unexpected label %v", out.Predictions[0])}
	}
	return label, nil
}
