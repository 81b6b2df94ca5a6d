package prices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/ibex-prices/internal/domain"
	"github.com/samvad-hq/ibex-prices/internal/logger"
	"github.com/samvad-hq/ibex-prices/pkg/httpclient"
)

const defaultTimeout = 30 * time.Second

// Response is what the endpoint answered: status, headers, the raw body and
// the records decoded from it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Records    []domain.PriceRecord
}

// Fetcher reads the price records published at a single endpoint. It holds
// no mutable state and is safe for concurrent use.
type Fetcher struct {
	client   httpclient.Client
	endpoint string
	headers  map[string]string
	log      logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger failures are reported to.
func WithLogger(log logger.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// WithHeaders sets request headers. None are sent by default.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		if len(headers) == 0 {
			return
		}
		f.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// DefaultHTTPClient returns the resty-backed client used when none is injected.
func DefaultHTTPClient() httpclient.Client { return httpclient.NewRestyClient(defaultTimeout) }

// New builds a Fetcher for endpoint, which must be an absolute http(s) URL.
func New(client httpclient.Client, endpoint string, opts ...Option) (*Fetcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) URL", endpoint)
	}
	if client == nil {
		client = DefaultHTTPClient()
	}

	f := &Fetcher{client: client, endpoint: endpoint}
	for _, opt := range opts {
		opt(f)
	}
	f.log = logger.Ensure(f.log)
	return f, nil
}

// Endpoint returns the URL the fetcher reads from.
func (f *Fetcher) Endpoint() string { return f.endpoint }

// FetchPrices issues one GET against the endpoint.
//
// A transport failure yields a *TransportError and a non-2xx status an
// *APIError; in both cases the response is nil. A 2xx answer whose body does
// not match the price schema is returned together with a *domain.SchemaError
// so the raw body stays available; Records is set when the body decoded but
// failed validation. Every failure is logged once at error level, except
// requests abandoned because ctx was cancelled, which are logged at debug.
func (f *Fetcher) FetchPrices(ctx context.Context) (*Response, error) {
	raw, err := f.client.Get(ctx, f.endpoint, f.headers)
	if err != nil {
		terr := &TransportError{URL: f.endpoint, Err: err}
		if ctx.Err() != nil {
			f.log.DebugObj("prices fetch cancelled", "fetch_cancel", map[string]any{
				"endpoint": f.endpoint,
				"reason":   ctx.Err().Error(),
			})
			return nil, terr
		}
		f.logFailure(terr)
		return nil, terr
	}

	status := raw.StatusCode()
	body := raw.Body()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		apiErr := newAPIError(f.endpoint, status, body)
		f.logFailure(apiErr)
		return nil, apiErr
	}

	resp := &Response{
		StatusCode: status,
		Header:     raw.Header(),
		Body:       body,
	}

	records, err := domain.DecodeRecords(body)
	if err != nil {
		f.logFailure(err)
		return resp, err
	}
	resp.Records = records
	if err := domain.Validate(records); err != nil {
		f.logFailure(err)
		return resp, err
	}

	f.log.DebugObj("prices fetched", "fetch_result", map[string]any{
		"endpoint": f.endpoint,
		"status":   status,
		"records":  len(records),
		"bytes":    len(body),
	})
	return resp, nil
}

func (f *Fetcher) logFailure(err error) {
	fields := map[string]any{
		"endpoint": f.endpoint,
		"error":    err.Error(),
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.StatusCode
	}
	f.log.ErrorObj("prices fetch failed", "fetch_error", fields)
}
