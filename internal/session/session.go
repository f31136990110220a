// Package session holds the state of one comparison screen and reacts to its
// events: typing, picking a result and clicking the map.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/mapview"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/pkg/localities"
)

// UI receives everything the session wants shown. Each call replaces the content
// of its region.
type UI interface {
	ShowComparison(c compare.Comparison)
	ClearResults()
	HideResults()
	SetInput(text string)
	ShowDetail(d normalize.Detail)
}

// Handler is the set of events a front end feeds into a session.
type Handler interface {
	OnInputChanged(text string)
	OnResultSelected(ctx context.Context, id, label string)
	OnMapClicked(ctx context.Context, p localities.LatLng)
}

// Searcher runs comparisons and lookups. *compare.Orchestrator implements it.
type Searcher interface {
	CompareSearch(ctx context.Context, targetEnv string, kind localities.Kind, req localities.SearchRequest) (compare.Comparison, error)
	Details(ctx context.Context, targetEnv string, req localities.DetailsRequest) (*normalize.Detail, error)
	Reverse(ctx context.Context, targetEnv string, req localities.ReverseRequest) (*normalize.Detail, error)
}

var _ Handler = (*Session)(nil)

// Config holds the session defaults.
type Config struct {
	Env        string
	Kind       localities.Kind
	Language   string
	Debounce   time.Duration
	BiasRadius int
	Fields     []string
	Center     localities.LatLng
}

// DefaultConfig targets dev autocomplete in French around Paris.
func DefaultConfig() Config {
	return Config{
		Env:        environment.Dev,
		Kind:       localities.KindAutocomplete,
		Language:   localities.DefaultLanguage,
		Debounce:   300 * time.Millisecond,
		BiasRadius: 10000,
		Center:     mapview.DefaultOptions().Center,
	}
}

// Session is the state behind one comparison screen. Responses are applied in
// arrival order; a slow earlier search can overwrite a newer one.
type Session struct {
	// ctx bounds the searches fired by the debouncer.
	ctx      context.Context
	searcher Searcher
	ui       UI
	mapv     *mapview.Adapter
	debounce *Debouncer

	mu         sync.Mutex
	env        string
	kind       localities.Kind
	language   string
	countries  []string
	types      []string
	extended   bool
	bias       bool
	biasRadius int
	fields     []string
	center     localities.LatLng
	input      string
}

// New creates a session. mapv may be nil when there is no map.
func New(ctx context.Context, searcher Searcher, ui UI, mapv *mapview.Adapter, cfg Config) *Session {
	if cfg.Env == "" {
		cfg.Env = environment.Dev
	}
	if cfg.Kind == "" {
		cfg.Kind = localities.KindAutocomplete
	}
	if cfg.Language == "" {
		cfg.Language = localities.DefaultLanguage
	}
	if cfg.BiasRadius <= 0 {
		cfg.BiasRadius = 10000
	}
	return &Session{
		ctx:        ctx,
		searcher:   searcher,
		ui:         ui,
		mapv:       mapv,
		debounce:   NewDebouncer(cfg.Debounce),
		env:        cfg.Env,
		kind:       cfg.Kind,
		language:   cfg.Language,
		biasRadius: cfg.BiasRadius,
		fields:     cfg.Fields,
		center:     cfg.Center,
	}
}

// OnInputChanged records the new input and schedules a search for when typing
// pauses. Only the last value of a burst is searched.
func (s *Session) OnInputChanged(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		s.Search(s.ctx)
	})
}

// Search runs the current input now. Blank input clears the results.
func (s *Session) Search(ctx context.Context) {
	s.mu.Lock()
	env, kind := s.env, s.kind
	req := s.requestLocked()
	s.mu.Unlock()

	if req.Input == "" {
		s.ui.ClearResults()
		return
	}

	cmp, err := s.searcher.CompareSearch(ctx, env, kind, req)
	if err != nil {
		zap.L().Warn("session: search failed", zap.String("env", env), zap.Error(err))
		s.ui.ClearResults()
		return
	}
	if cmp.Empty() {
		s.ui.ClearResults()
		return
	}
	s.ui.ShowComparison(cmp)
}

func (s *Session) requestLocked() localities.SearchRequest {
	req := localities.SearchRequest{
		Input:     strings.TrimSpace(s.input),
		Language:  s.language,
		Countries: append([]string(nil), s.countries...),
		Types:     append([]string(nil), s.types...),
		Extended:  s.extended,
	}
	if s.bias {
		req.Bias = &localities.Bias{Center: s.center, RadiusMeters: s.biasRadius}
	}
	return req
}

// OnResultSelected hides the lists, writes label into the input, then fetches and
// shows the details of id from the target environment.
func (s *Session) OnResultSelected(ctx context.Context, id, label string) {
	s.debounce.Stop()
	s.ui.HideResults()
	s.ui.SetInput(label)

	s.mu.Lock()
	s.input = label
	env := s.env
	req := localities.DetailsRequest{PublicID: id, Language: s.language, Fields: append([]string(nil), s.fields...)}
	s.mu.Unlock()

	d, err := s.searcher.Details(ctx, env, req)
	if err != nil {
		zap.L().Warn("session: details failed", zap.String("env", env), zap.String("public_id", id), zap.Error(err))
		return
	}
	if d == nil {
		return
	}
	s.ui.ShowDetail(*d)
	if s.mapv != nil && s.mapv.Show(*d) {
		s.mu.Lock()
		s.center = *d.Location
		s.mu.Unlock()
	}
}

// OnMapClicked reverse geocodes p and shows the closest match.
func (s *Session) OnMapClicked(ctx context.Context, p localities.LatLng) {
	s.mu.Lock()
	env := s.env
	req := localities.ReverseRequest{
		Location:  p,
		Countries: append([]string(nil), s.countries...),
		Types:     append([]string(nil), s.types...),
	}
	s.mu.Unlock()

	d, err := s.searcher.Reverse(ctx, env, req)
	if err != nil {
		zap.L().Warn("session: reverse geocode failed", zap.String("env", env), zap.Error(err))
		return
	}
	if d == nil {
		return
	}
	zap.L().Debug("session: reverse geocode", zap.String("formatted_address", d.FormattedAddress))
	s.ui.ShowDetail(*d)
}

// SetTarget selects the environment compared against production.
func (s *Session) SetTarget(env string) error {
	if !environment.IsKnown(env) {
		return eris.Wrapf(environment.ErrUnknownEnvironment, "%q", env)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = strings.ToLower(strings.TrimSpace(env))
	return nil
}

// SetKind selects the endpoint. Details is not a search endpoint.
func (s *Session) SetKind(kind localities.Kind) error {
	if kind == localities.KindDetails {
		return eris.New("session: details is not a search endpoint")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = kind
	return nil
}

// ToggleCountry adds or removes a country restriction. The search is not re-run;
// call Search to apply.
func (s *Session) ToggleCountry(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.countries {
		if c == code {
			s.countries = append(s.countries[:i], s.countries[i+1:]...)
			return append([]string(nil), s.countries...)
		}
	}
	s.countries = append(s.countries, code)
	return append([]string(nil), s.countries...)
}

// SetTypes replaces the type restrictions.
func (s *Session) SetTypes(types []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append([]string(nil), types...)
}

// SetFields replaces the details fields.
func (s *Session) SetFields(fields []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = append([]string(nil), fields...)
}

// SetCenter moves the point used for the location bias.
func (s *Session) SetCenter(p localities.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = p
}

// SetExtended toggles postal code extension and re-runs the search.
func (s *Session) SetExtended(ctx context.Context, on bool) {
	s.mu.Lock()
	s.extended = on
	s.mu.Unlock()
	s.Search(ctx)
}

// SetBias toggles biasing toward the map center and re-runs the search.
func (s *Session) SetBias(ctx context.Context, on bool) {
	s.mu.Lock()
	s.bias = on
	s.mu.Unlock()
	s.Search(ctx)
}

// Close drops any pending search.
func (s *Session) Close() {
	s.debounce.Stop()
}

// Snapshot describes the current filters.
type Snapshot struct {
	Env       string            `json:"env"`
	Kind      localities.Kind   `json:"kind"`
	Language  string            `json:"language"`
	Input     string            `json:"input"`
	Countries []string          `json:"countries"`
	Types     []string          `json:"types"`
	Fields    []string          `json:"fields"`
	Extended  bool              `json:"extended"`
	Bias      bool              `json:"bias"`
	Center    localities.LatLng `json:"center"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Env:       s.env,
		Kind:      s.kind,
		Language:  s.language,
		Input:     s.input,
		Countries: append([]string(nil), s.countries...),
		Types:     append([]string(nil), s.types...),
		Fields:    append([]string(nil), s.fields...),
		Extended:  s.extended,
		Bias:      s.bias,
		Center:    s.center,
	}
}
