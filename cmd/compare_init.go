package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/monitoring"
	"github.com/sells-group/localities-compare/internal/resilience"
	"github.com/sells-group/localities-compare/pkg/localities"
)

// compareEnv holds the client, registry and orchestrator shared by the
// search/details/reverse/interactive/serve commands.
type compareEnv struct {
	Registry     *environment.Registry
	Client       localities.Client
	Orchestrator *compare.Orchestrator
	Metrics      *monitoring.Metrics
	Prometheus   *prometheus.Registry
}

// initCompare validates the config for mode and wires the clients. reporter
// receives user-visible errors; nil keeps the client's log-only default.
func initCompare(mode string, reporter localities.Reporter) (*compareEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promReg)

	clientOpts := []localities.Option{
		localities.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout()}),
		localities.WithRateLimit(cfg.API.RequestsPerSecond),
		localities.WithObserver(metrics),
	}
	if reporter != nil {
		clientOpts = append(clientOpts, localities.WithReporter(reporter))
	}
	client := localities.NewClient(clientOpts...)

	registry := environment.NewRegistry(cfg.Environments.Targets(), cfg.Environments.PRURLTemplate)

	breakerCfg := resilience.FromConfig(cfg.Resilience.FailureThreshold, cfg.Resilience.ResetTimeoutSecs)
	breakerCfg.OnStateChange = func(env string, from, to resilience.State) {
		metrics.BreakerStateChanged(env, from, to)
		zap.L().Info("breaker state changed",
			zap.String("env", env),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	orchOpts := []compare.Option{
		compare.WithBreakers(resilience.NewBreakers(breakerCfg)),
		compare.WithDetailsCache(time.Duration(cfg.Cache.DetailsTTLSecs) * time.Second),
	}
	if reporter != nil {
		orchOpts = append(orchOpts, compare.WithReporter(reporter))
	}

	return &compareEnv{
		Registry:     registry,
		Client:       client,
		Orchestrator: compare.New(client, registry, orchOpts...),
		Metrics:      metrics,
		Prometheus:   promReg,
	}, nil
}

// consoleReporter prints reported errors in red. Preformatted reports (API error
// details) are printed as an indented block.
type consoleReporter struct {
	out io.Writer
}

func (r consoleReporter) Report(_ context.Context, rep localities.ErrorReport) {
	red := color.New(color.FgRed)
	if rep.Preformatted {
		red.Fprintln(r.out, "API error:") //nolint:errcheck
		fmt.Fprintln(r.out, rep.Message)
		return
	}
	red.Fprintln(r.out, rep.Message) //nolint:errcheck
}
