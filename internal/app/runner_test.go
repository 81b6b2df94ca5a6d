package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/ibex-prices/internal/config"
	"github.com/samvad-hq/ibex-prices/pkg/httpclient"
	"github.com/samvad-hq/ibex-prices/pkg/prices"
)

const payload = `[{"_id":"abc","date":"2024-01-01","__v":1,"hourlyData":[{"_id":"h1","time":"00:00:00","data":{"eur":1.0,"bgn":1.95583,"volume":100.0}},{"_id":"h2","time":"01:00:00","data":{"eur":2.0,"bgn":3.91166,"volume":50.0}}]}]`

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte        { return s.body }
func (s stubHTTPResponse) StatusCode() int     { return s.statusCode }
func (s stubHTTPResponse) Header() http.Header { return http.Header{} }

// stubHTTPClient answers per URL and records calls.
type stubHTTPClient struct {
	byURL map[string]httpclient.Response
	err   error
}

func (s *stubHTTPClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if resp, ok := s.byURL[url]; ok {
		return resp, nil
	}
	return stubHTTPResponse{statusCode: http.StatusNotFound}, nil
}

func TestRunnerSingleSource(t *testing.T) {
	cfg := &config.Config{PricesURL: "https://example.com/prices", HTTPTimeout: time.Second}
	client := &stubHTTPClient{byURL: map[string]httpclient.Response{
		"https://example.com/prices": stubHTTPResponse{body: []byte(payload), statusCode: http.StatusOK},
	}}

	r, err := newRunner(cfg, nil, client)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	summaries, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	sum := summaries[0]
	if sum.StatusCode != http.StatusOK || sum.Records != 1 || sum.HourlyEntries != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunnerJoinsSourceErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sources.yaml")
	content := `
sources:
  - id: good
    source_url: https://good.example/prices
  - id: bad
    source_url: https://bad.example/prices
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	cfg := &config.Config{SourcesFile: file, HTTPTimeout: time.Second}
	client := &stubHTTPClient{byURL: map[string]httpclient.Response{
		"https://good.example/prices": stubHTTPResponse{body: []byte(payload), statusCode: http.StatusOK},
		"https://bad.example/prices":  stubHTTPResponse{body: []byte(`{"message":"bad request"}`), statusCode: http.StatusBadRequest},
	}}

	r, err := newRunner(cfg, nil, client)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	summaries, err := r.Run(context.Background())
	if len(summaries) != 1 || summaries[0].SourceID != "good" {
		t.Fatalf("expected only good source summary, got %+v", summaries)
	}
	if err == nil || !strings.Contains(err.Error(), "source bad") {
		t.Fatalf("expected error mentioning bad source, got %v", err)
	}
	var apiErr *prices.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad request" {
		t.Fatalf("expected APIError with message, got %v", err)
	}
}

func TestRunnerTransportFailure(t *testing.T) {
	cfg := &config.Config{PricesURL: "https://example.com/prices", HTTPTimeout: time.Second}
	client := &stubHTTPClient{err: errors.New("connection refused")}

	r, err := newRunner(cfg, nil, client)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	summaries, err := r.Run(context.Background())
	if len(summaries) != 0 {
		t.Fatalf("expected no summaries, got %+v", summaries)
	}
	var terr *prices.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestRunnerConsistencyChecks(t *testing.T) {
	cfg := &config.Config{PricesURL: "https://example.com/prices", HTTPTimeout: time.Second, ConsistencyChecks: 3}
	client := &stubHTTPClient{byURL: map[string]httpclient.Response{
		"https://example.com/prices": stubHTTPResponse{body: []byte(payload), statusCode: http.StatusOK},
	}}

	r, err := newRunner(cfg, nil, client)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNewRunnerRejectsNilConfig(t *testing.T) {
	if _, err := NewRunner(nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	cfg := &config.Config{PricesURL: "https://example.com/prices", HTTPTimeout: time.Second}
	r, err := newRunner(cfg, nil, &stubHTTPClient{})
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
