package main

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/config"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/monitoring"
	"github.com/sells-group/localities-compare/pkg/localities"
)

func init() {
	color.NoColor = true
}

func testRegistry() *environment.Registry {
	return environment.NewRegistry([]localities.Target{
		{Name: environment.Dev, Key: "dev-key", BaseURL: "https://dev.example.com/localities/"},
		{Name: environment.Prod, Key: "prod-key", BaseURL: "https://api.example.com/localities/"},
		{Name: environment.PR, Key: "dev-key"},
	}, "")
}

func testCompareEnv(client localities.Client) *compareEnv {
	reg := testRegistry()
	promReg := prometheus.NewRegistry()
	return &compareEnv{
		Registry:     reg,
		Client:       client,
		Orchestrator: compare.New(client, reg),
		Metrics:      monitoring.NewMetrics(promReg),
		Prometheus:   promReg,
	}
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.API.Language = "fr"
	c.API.BiasRadiusM = 10000
	c.Map.CenterLat = 48.8534
	c.Map.CenterLng = 2.3488
	c.Map.Zoom = 5
	c.Map.ZoomLocality = 8
	c.Map.ZoomPostalCode = 6
	c.Map.ZoomAddress = 16
	c.Server.CORSOrigins = []string{"*"}
	return c
}

func apiResponse(t *testing.T, status int, body string) *localities.Response {
	t.Helper()
	var r localities.Response
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	r.StatusCode = status
	return &r
}

func targetNamed(name string) interface{} {
	return mock.MatchedBy(func(t localities.Target) bool { return t.Name == name })
}

// syncBuffer is a bytes.Buffer safe for the debouncer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
