package localities

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client performs Localities API operations.
type Client interface {
	// Fetch GETs rawURL and parses the JSON body whatever the status code.
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Response, error)

	// Query runs an autocomplete, search or geocode request against target.
	Query(ctx context.Context, target Target, kind Kind, req SearchRequest, opts FetchOptions) (*Response, error)

	// Details looks up one locality by public id.
	Details(ctx context.Context, target Target, req DetailsRequest, opts FetchOptions) (*Response, error)

	// Reverse geocodes a coordinate.
	Reverse(ctx context.Context, target Target, req ReverseRequest, opts FetchOptions) (*Response, error)
}

// FetchOptions controls a single request.
type FetchOptions struct {
	// ReportErrors surfaces any failure through the client's Reporter.
	ReportErrors bool
	// Env and Endpoint label logs and metrics.
	Env      string
	Endpoint string
}

// Reporter surfaces request failures to the user.
type Reporter interface {
	Report(ctx context.Context, r ErrorReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r ErrorReport)

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, r ErrorReport) { f(ctx, r) }

// RequestObserver measures request durations. Status is 0 when no response arrived.
type RequestObserver interface {
	ObserveRequest(env, endpoint string, status int, d time.Duration)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithReporter sets where user-visible errors go.
func WithReporter(r Reporter) Option {
	return func(c *httpClient) {
		c.reporter = r
	}
}

// WithObserver records request latency.
func WithObserver(o RequestObserver) Option {
	return func(c *httpClient) {
		c.observer = o
	}
}

// WithRateLimit caps outgoing requests per second across all environments.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	http     *http.Client
	reporter Reporter
	observer RequestObserver
	limiter  *rate.Limiter
}

// NewClient creates a Localities API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		reporter: logReporter{},
		limiter:  rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, target Target, kind Kind, req SearchRequest, opts FetchOptions) (*Response, error) {
	if kind == KindDetails {
		return nil, eris.New("localities: use Details for details lookups")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	params := BuildParams(kind, req)
	opts.Env, opts.Endpoint = target.Name, kind.String()

	zap.L().Debug("localities query",
		zap.String("env", target.Name),
		zap.String("endpoint", kind.String()),
		zap.Any("params", params.Map()),
	)
	return c.Fetch(ctx, BuildURL(target.BaseURL, kind.Segment(), target.Key, params), opts)
}

func (c *httpClient) Details(ctx context.Context, target Target, req DetailsRequest, opts FetchOptions) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts.Env, opts.Endpoint = target.Name, KindDetails.String()
	return c.Fetch(ctx, BuildURL(target.BaseURL, KindDetails.Segment(), target.Key, DetailsParams(req)), opts)
}

func (c *httpClient) Reverse(ctx context.Context, target Target, req ReverseRequest, opts FetchOptions) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts.Env, opts.Endpoint = target.Name, "reverse"
	return c.Fetch(ctx, BuildURL(target.BaseURL, KindGeocode.Segment(), target.Key, ReverseParams(req)), opts)
}

func (c *httpClient) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(ctx, opts, &NetworkError{Message: err.Error(), Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, c.fail(ctx, opts, &NetworkError{Message: err.Error(), Err: err})
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(opts, 0, time.Since(start))
		return nil, c.fail(ctx, opts, &NetworkError{Message: err.Error(), Err: err})
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	c.observe(opts, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, c.fail(ctx, opts, &NetworkError{Message: err.Error(), Err: err})
	}

	out := &Response{StatusCode: resp.StatusCode, Body: body}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, c.fail(ctx, opts, &NetworkError{
			Message: "malformed response body: " + err.Error(),
			Err:     err,
		})
	}

	if apiErr := out.Err(); apiErr != nil {
		zap.L().Warn("localities request failed",
			zap.String("env", opts.Env),
			zap.String("endpoint", opts.Endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Bool("reported", opts.ReportErrors),
		)
		if opts.ReportErrors {
			c.reporter.Report(ctx, ReportFor(apiErr))
		}
	}
	return out, nil
}

func (c *httpClient) fail(ctx context.Context, opts FetchOptions, err *NetworkError) error {
	zap.L().Warn("localities request error",
		zap.String("env", opts.Env),
		zap.String("endpoint", opts.Endpoint),
		zap.Bool("reported", opts.ReportErrors),
		zap.Error(err),
	)
	if opts.ReportErrors {
		c.reporter.Report(ctx, ReportFor(err))
	}
	return err
}

func (c *httpClient) observe(opts FetchOptions, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(opts.Env, opts.Endpoint, status, d)
	}
}

// logReporter is the fallback when no UI is attached.
type logReporter struct{}

func (logReporter) Report(_ context.Context, r ErrorReport) {
	zap.L().Error("localities error", zap.String("message", r.Message), zap.Error(r.Err))
}
