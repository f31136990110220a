package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/config"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/internal/resilience"
	"github.com/sells-group/localities-compare/pkg/localities"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparison web server",
	Long:  "Serves the comparison as JSON under /api and as an HTML page at /, plus /health and /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The server has no one to show reports to; they are logged.
		env, err := initCompare("serve", nil)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newServer(env, cfg).routes(cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// queryDefaults fills request values the caller left out.
type queryDefaults struct {
	Language   string
	Center     localities.LatLng
	BiasRadius int
	Fields     []string
}

type server struct {
	env      *compareEnv
	defaults queryDefaults
	mapCfg   config.MapConfig
}

func newServer(env *compareEnv, c *config.Config) *server {
	return &server{
		env: env,
		defaults: queryDefaults{
			Language:   c.API.Language,
			Center:     localities.LatLng{Lat: c.Map.CenterLat, Lng: c.Map.CenterLng},
			BiasRadius: c.API.BiasRadiusM,
			Fields:     c.API.DetailsFields(),
		},
		mapCfg: c.Map,
	}
}

func (s *server) routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.env.Prometheus, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/environments", s.handleEnvironments)
		r.Post("/environments/pr", s.handleSetPR)
		r.Get("/search", s.handleSearch)
		r.Get("/details", s.handleDetails)
		r.Get("/reverse", s.handleReverse)
	})

	r.Get("/", s.handlePage)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type environmentView struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	HasKey bool   `json:"has_key"`
}

func (s *server) handleEnvironments(w http.ResponseWriter, _ *http.Request) {
	targets := s.env.Registry.Targets()
	envs := make([]environmentView, 0, len(targets))
	for _, t := range targets {
		envs = append(envs, environmentView{Name: t.Name, URL: t.BaseURL, HasKey: t.Key != ""})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"environments": envs,
		"pr":           s.env.Registry.PRID(),
		"breakers":     s.env.Orchestrator.Breakers().Snapshot(),
	})
}

func (s *server) handleSetPR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	_, changed := s.env.Registry.SetPRTarget(body.Input)
	t, _ := s.env.Registry.Resolve(environment.PR)
	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"pr":      s.env.Registry.PRID(),
		"url":     t.BaseURL,
	})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := localities.ParseSearchKind(valueOr(q.Get("kind"), localities.KindAutocomplete.String()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	env, err := envParam(q.Get("env"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := s.searchRequest(r)
	if err == nil && req.Input == "" {
		err = eris.New("input is required")
	}
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cmp, err := s.env.Orchestrator.CompareSearch(r.Context(), env, kind, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

type detailResponse struct {
	Env    string            `json:"env"`
	Detail *normalize.Detail `json:"detail"`
	Fields []normalize.Field `json:"fields,omitempty"`
}

func (s *server) handleDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := localities.DetailsRequest{
		PublicID: q.Get("public_id"),
		Language: valueOr(q.Get("lang"), s.defaults.Language),
		Fields:   s.defaults.Fields,
	}
	if f := q.Get("fields"); f != "" {
		req.Fields = splitPipe(f)
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := envParam(q.Get("env")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	env, d, err := s.lookupDetails(r.Context(), q.Get("env"), q.Get("side"), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := detailResponse{Env: env, Detail: d}
	if d != nil {
		resp.Fields = d.Fields()
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookupDetails fetches from production when side is "production", otherwise
// from envName.
func (s *server) lookupDetails(ctx context.Context, envName, side string, req localities.DetailsRequest) (string, *normalize.Detail, error) {
	if side == "production" {
		d, err := s.env.Orchestrator.ProductionDetails(ctx, req)
		return environment.Prod, d, err
	}
	envName = valueOr(envName, environment.Dev)
	d, err := s.env.Orchestrator.Details(ctx, envName, req)
	return envName, d, err
}

func (s *server) handleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := latLngParams(q.Get("lat"), q.Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	env, err := envParam(q.Get("env"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := localities.ReverseRequest{Location: p, Countries: upperAll(listParam(q["country"])), Types: listParam(q["type"])}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d, err := s.env.Orchestrator.Reverse(r.Context(), env, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := detailResponse{Env: env, Detail: d}
	if d != nil {
		resp.Fields = d.Fields()
	}
	writeJSON(w, http.StatusOK, resp)
}

// searchRequest builds a search request from query parameters.
func (s *server) searchRequest(r *http.Request) (localities.SearchRequest, error) {
	q := r.URL.Query()
	req := localities.SearchRequest{
		Input:     strings.TrimSpace(q.Get("input")),
		Language:  valueOr(q.Get("lang"), s.defaults.Language),
		Countries: upperAll(listParam(q["country"])),
		Types:     listParam(q["type"]),
		Extended:  isTrue(q.Get("extended")),
	}
	if isTrue(q.Get("bias")) {
		center := s.defaults.Center
		if q.Get("lat") != "" || q.Get("lng") != "" {
			p, err := latLngParams(q.Get("lat"), q.Get("lng"))
			if err != nil {
				return req, err
			}
			center = p
		}
		req.Bias = &localities.Bias{Center: center, RadiusMeters: s.defaults.BiasRadius}
	}
	return req, nil
}

// listParam accepts both repeated parameters and comma-separated values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func latLngParams(lat, lng string) (localities.LatLng, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return localities.LatLng{}, eris.Wrapf(err, "parse lat %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return localities.LatLng{}, eris.Wrapf(err, "parse lng %q", lng)
	}
	return localities.LatLng{Lat: la, Lng: ln}, nil
}

// envParam defaults to dev and rejects names outside dev, prod and pr.
func envParam(v string) (string, error) {
	v = valueOr(strings.ToLower(strings.TrimSpace(v)), environment.Dev)
	if !environment.IsKnown(v) {
		return "", eris.Wrapf(environment.ErrUnknownEnvironment, "%q", v)
	}
	return v, nil
}

func isTrue(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// statusFor maps an orchestrator error to an HTTP status.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	var apiErr *localities.APIError
	switch {
	case errors.Is(err, environment.ErrUnknownEnvironment), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, resilience.ErrOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

// writeError renders err the way the client would report it: API error details
// come back preformatted.
func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"error": err.Error()}
	var (
		apiErr *localities.APIError
		netErr *localities.NetworkError
		rep    localities.ErrorReport
	)
	switch {
	case errors.As(err, &apiErr):
		rep = localities.ReportFor(apiErr)
	case errors.As(err, &netErr):
		rep = localities.ReportFor(netErr)
	}
	if rep.Message != "" {
		body["message"] = rep.Message
		body["preformatted"] = rep.Preformatted
	}
	writeJSON(w, status, body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
