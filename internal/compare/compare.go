// Package compare runs the same query against a target environment and production
// and keeps the two outcomes independent.
package compare

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocachestore "github.com/eko/gocache/store/go_cache/v4"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/internal/resilience"
	"github.com/sells-group/localities-compare/pkg/localities"
)

// Side is one environment's outcome. Err is set when the request failed; Results
// is then empty.
type Side struct {
	Env     string             `json:"env"`
	Results []normalize.Result `json:"results"`
	Err     error              `json:"-" yaml:"-"`
}

// Error returns the failure message, or "".
func (s Side) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// MarshalJSON adds the failure message as "error".
func (s Side) MarshalJSON() ([]byte, error) {
	type side Side
	return json.Marshal(struct {
		side
		Error string `json:"error,omitempty"`
	}{side: side(s), Error: s.Error()})
}

// Comparison holds both sides of one search.
type Comparison struct {
	RequestID  string          `json:"request_id"`
	Kind       localities.Kind `json:"kind"`
	Input      string          `json:"input"`
	Target     Side            `json:"target"`
	Production Side            `json:"production"`
}

// Empty reports whether neither side has results.
func (c Comparison) Empty() bool {
	return len(c.Target.Results) == 0 && len(c.Production.Results) == 0
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBreakers sets the per-environment circuit breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(o *Orchestrator) {
		o.breakers = b
	}
}

// WithReporter surfaces breaker rejections on requests that report errors.
func WithReporter(r localities.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithDetailsCache keeps found details lookups in memory for ttl. A ttl <= 0
// leaves caching off.
func WithDetailsCache(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl <= 0 {
			return
		}
		client := gocache.New(ttl, 2*ttl)
		o.details = cache.New[*localities.Detail](gocachestore.NewGoCache(client))
		o.detailsTTL = ttl
	}
}

// Orchestrator fans searches out to two environments.
type Orchestrator struct {
	client     localities.Client
	registry   *environment.Registry
	breakers   *resilience.Breakers
	reporter   localities.Reporter
	details    *cache.Cache[*localities.Detail]
	detailsTTL time.Duration
}

// New creates an Orchestrator.
func New(client localities.Client, registry *environment.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		registry: registry,
		breakers: resilience.NewBreakers(resilience.DefaultBreakerConfig()),
	}
	for _, opt := range opts {
		opt(o)
	}
	registry.OnRetarget(func(env string) {
		o.breakers.Reset(env)
		zap.L().Debug("compare: breaker reset after retarget", zap.String("env", env))
	})
	return o
}

// Breakers exposes the breaker set for status reporting.
func (o *Orchestrator) Breakers() *resilience.Breakers {
	return o.breakers
}

// CompareSearch runs req against targetEnv and production concurrently. Only an
// unknown environment or an invalid request fails the call; request failures land
// in the side they belong to. Production failures are reported to the user, target
// failures are only logged.
func (o *Orchestrator) CompareSearch(ctx context.Context, targetEnv string, kind localities.Kind, req localities.SearchRequest) (Comparison, error) {
	if kind == localities.KindDetails {
		return Comparison{}, eris.New("compare: details is not a search endpoint")
	}
	if err := req.Validate(); err != nil {
		return Comparison{}, err
	}
	target, err := o.registry.Resolve(targetEnv)
	if err != nil {
		return Comparison{}, err
	}
	prod := o.registry.Prod()

	cmp := Comparison{
		RequestID: uuid.NewString(),
		Kind:      kind,
		Input:     req.Input,
	}
	log := zap.L().With(zap.String("request_id", cmp.RequestID), zap.String("endpoint", kind.String()))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		cmp.Target = o.search(gCtx, target, kind, req, false)
		return nil
	})
	eg.Go(func() error {
		cmp.Production = o.search(gCtx, prod, kind, req, true)
		return nil
	})
	_ = eg.Wait()

	log.Debug("compare: search done",
		zap.String("target", target.Name),
		zap.Int("target_results", len(cmp.Target.Results)),
		zap.Int("production_results", len(cmp.Production.Results)),
		zap.NamedError("target_error", cmp.Target.Err),
		zap.NamedError("production_error", cmp.Production.Err),
	)
	return cmp, nil
}

// search runs one side. It never returns an error to the group so that a failure
// cannot cancel the sibling.
func (o *Orchestrator) search(ctx context.Context, t localities.Target, kind localities.Kind, req localities.SearchRequest, prod bool) Side {
	side := Side{Env: t.Name}

	resp, err := o.guarded(ctx, t.Name, prod, func(ctx context.Context) (*localities.Response, error) {
		return o.client.Query(ctx, t, kind, req, localities.FetchOptions{ReportErrors: prod})
	})
	if err != nil {
		side.Err = err
		return side
	}
	if !resp.OK() {
		side.Err = resp.Err()
		return side
	}

	items, err := resp.Items(kind)
	if err != nil {
		side.Err = err
		return side
	}
	side.Results = normalize.NormalizeAll(items, prod)
	return side
}

// guarded runs fn through env's breaker and records the outcome.
func (o *Orchestrator) guarded(ctx context.Context, env string, report bool, fn func(context.Context) (*localities.Response, error)) (*localities.Response, error) {
	br := o.breakers.For(env)
	if err := br.Allow(); err != nil {
		zap.L().Warn("compare: request rejected", zap.String("env", env), zap.Error(err))
		if report && o.reporter != nil {
			o.reporter.Report(ctx, localities.ErrorReport{Message: "The " + env + " environment is unavailable, try again shortly.", Err: err})
		}
		return nil, err
	}
	resp, err := fn(ctx)
	br.Record(resilience.Outcome(resp, err))
	return resp, err
}

// Details looks publicID up in targetEnv. Failures are reported to the user. A nil
// detail with a nil error means the API had no record.
func (o *Orchestrator) Details(ctx context.Context, targetEnv string, req localities.DetailsRequest) (*normalize.Detail, error) {
	target, err := o.registry.Resolve(targetEnv)
	if err != nil {
		return nil, err
	}
	return o.lookup(ctx, target, req, true)
}

// ProductionDetails looks publicID up in production without reporting failures.
func (o *Orchestrator) ProductionDetails(ctx context.Context, req localities.DetailsRequest) (*normalize.Detail, error) {
	return o.lookup(ctx, o.registry.Prod(), req, false)
}

func (o *Orchestrator) lookup(ctx context.Context, t localities.Target, req localities.DetailsRequest, report bool) (*normalize.Detail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := detailsKey(t, req)
	if o.details != nil {
		if d, err := o.details.Get(ctx, key); err == nil && d != nil {
			zap.L().Debug("compare: details cache hit", zap.String("env", t.Name), zap.String("public_id", req.PublicID))
			out := normalize.NewDetail(d)
			return &out, nil
		}
	}

	resp, err := o.guarded(ctx, t.Name, report, func(ctx context.Context) (*localities.Response, error) {
		return o.client.Details(ctx, t, req, localities.FetchOptions{ReportErrors: report})
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err()
	}
	d, err := resp.Detail()
	if err != nil || d == nil {
		return nil, err
	}

	if o.details != nil {
		if err := o.details.Set(ctx, key, d, store.WithExpiration(o.detailsTTL)); err != nil {
			zap.L().Warn("compare: details cache set failed", zap.Error(err))
		}
	}
	out := normalize.NewDetail(d)
	return &out, nil
}

// Reverse geocodes a coordinate in targetEnv and returns the first match. Failures
// are never reported to the user.
func (o *Orchestrator) Reverse(ctx context.Context, targetEnv string, req localities.ReverseRequest) (*normalize.Detail, error) {
	target, err := o.registry.Resolve(targetEnv)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := o.guarded(ctx, target.Name, false, func(ctx context.Context) (*localities.Response, error) {
		return o.client.Reverse(ctx, target, req, localities.FetchOptions{})
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err()
	}
	d, err := resp.FirstResult()
	if err != nil || d == nil {
		return nil, err
	}
	out := normalize.NewDetail(d)
	return &out, nil
}

func detailsKey(t localities.Target, req localities.DetailsRequest) string {
	return strings.Join([]string{
		t.Name, t.BaseURL, req.Language, req.PublicID, strings.Join(req.Fields, "|"),
	}, "\x00")
}
