package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"

	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/mapview"
	"github.com/sells-group/localities-compare/pkg/localities"
)

// Config holds the full application configuration.
type Config struct {
	Environments EnvironmentsConfig `yaml:"environments" mapstructure:"environments"`
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Map          MapConfig          `yaml:"map" mapstructure:"map"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Resilience   ResilienceConfig   `yaml:"resilience" mapstructure:"resilience"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// EnvironmentConfig is one backend: its API key and base URL.
type EnvironmentConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
}

// EnvironmentsConfig lists the backends. The pr URL is normally left empty and
// filled from PRURLTemplate when a pull request is picked.
type EnvironmentsConfig struct {
	Dev           EnvironmentConfig `yaml:"dev" mapstructure:"dev"`
	Prod          EnvironmentConfig `yaml:"prod" mapstructure:"prod"`
	PR            EnvironmentConfig `yaml:"pr" mapstructure:"pr"`
	PRURLTemplate string            `yaml:"pr_url_template" mapstructure:"pr_url_template" validate:"required,contains={pr}"`
}

// Targets converts the entries for the environment registry. PR deployments
// share the dev key unless pr.key is set.
func (e EnvironmentsConfig) Targets() []localities.Target {
	prKey := e.PR.Key
	if prKey == "" {
		prKey = e.Dev.Key
	}
	return []localities.Target{
		{Name: environment.Dev, Key: e.Dev.Key, BaseURL: e.Dev.URL},
		{Name: environment.Prod, Key: e.Prod.Key, BaseURL: e.Prod.URL},
		{Name: environment.PR, Key: prKey, BaseURL: e.PR.URL},
	}
}

// APIConfig configures requests to the Localities API.
type APIConfig struct {
	Language          string  `yaml:"language" mapstructure:"language" validate:"required"`
	DebounceMs        int     `yaml:"debounce_ms" mapstructure:"debounce_ms" validate:"gte=0"`
	BiasRadiusM       int     `yaml:"bias_radius_m" mapstructure:"bias_radius_m" validate:"gt=0"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Fields            string  `yaml:"fields" mapstructure:"fields"`
}

// Debounce returns the quiet period before a typed query is sent.
func (a APIConfig) Debounce() time.Duration {
	return time.Duration(a.DebounceMs) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// DetailsFields splits the pipe-separated details field list.
func (a APIConfig) DetailsFields() []string {
	var out []string
	for _, f := range strings.Split(a.Fields, "|") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// MapConfig configures the map view.
type MapConfig struct {
	CenterLat       float64 `yaml:"center_lat" mapstructure:"center_lat" validate:"gte=-90,lte=90"`
	CenterLng       float64 `yaml:"center_lng" mapstructure:"center_lng" validate:"gte=-180,lte=180"`
	Zoom            int     `yaml:"zoom" mapstructure:"zoom" validate:"gte=0,lte=22"`
	GestureHandling string  `yaml:"gesture_handling" mapstructure:"gesture_handling"`
	MarkerIconURL   string  `yaml:"marker_icon_url" mapstructure:"marker_icon_url" validate:"omitempty,url"`
	MarkerWidth     int     `yaml:"marker_width" mapstructure:"marker_width"`
	MarkerHeight    int     `yaml:"marker_height" mapstructure:"marker_height"`
	StrokeColor     string  `yaml:"stroke_color" mapstructure:"stroke_color" validate:"omitempty,hexcolor"`
	StrokeOpacity   float64 `yaml:"stroke_opacity" mapstructure:"stroke_opacity" validate:"gte=0,lte=1"`
	StrokeWeight    int     `yaml:"stroke_weight" mapstructure:"stroke_weight"`
	FillColor       string  `yaml:"fill_color" mapstructure:"fill_color" validate:"omitempty,hexcolor"`
	FillOpacity     float64 `yaml:"fill_opacity" mapstructure:"fill_opacity" validate:"gte=0,lte=1"`
	ZoomLocality    int     `yaml:"zoom_locality" mapstructure:"zoom_locality"`
	ZoomPostalCode  int     `yaml:"zoom_postal_code" mapstructure:"zoom_postal_code"`
	ZoomAddress     int     `yaml:"zoom_address" mapstructure:"zoom_address"`
	MapsAPIKey      string  `yaml:"maps_api_key" mapstructure:"maps_api_key"`
	MapsSDKURL      string  `yaml:"maps_sdk_url" mapstructure:"maps_sdk_url"`
}

// Options converts the section into map widget options.
func (m MapConfig) Options() mapview.Options {
	opts := mapview.DefaultOptions()
	opts.Center = localities.LatLng{Lat: m.CenterLat, Lng: m.CenterLng}
	opts.Zoom = m.Zoom
	opts.GestureHandling = m.GestureHandling
	opts.Marker = mapview.MarkerIcon{URL: m.MarkerIconURL, Width: m.MarkerWidth, Height: m.MarkerHeight}
	opts.Polygon = mapview.PolygonStyle{
		StrokeColor:   m.StrokeColor,
		StrokeOpacity: m.StrokeOpacity,
		StrokeWeight:  m.StrokeWeight,
		FillColor:     m.FillColor,
		FillOpacity:   m.FillOpacity,
	}
	opts.ZoomLevels = mapview.ZoomLevels{
		Locality:   m.ZoomLocality,
		PostalCode: m.ZoomPostalCode,
		Address:    m.ZoomAddress,
	}
	return opts
}

// CacheConfig configures the in-memory details cache. A zero TTL disables it.
type CacheConfig struct {
	DetailsTTLSecs int `yaml:"details_ttl_secs" mapstructure:"details_ttl_secs" validate:"gte=0"`
}

// ResilienceConfig configures the per-environment circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads .env, then config.yaml, then LOCALITIES_* environment variables.
// It does not validate; call Validate with the run mode.
func Load() (*Config, error) {
	// A missing .env is fine; variables already set win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOCALITIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("environments.dev.key", "")
	v.SetDefault("environments.dev.url", "https://develop-api.woosmap.com/localities/")
	v.SetDefault("environments.prod.key", "")
	v.SetDefault("environments.prod.url", "https://api.woosmap.com/localities/")
	v.SetDefault("environments.pr.key", "")
	v.SetDefault("environments.pr.url", "")
	v.SetDefault("environments.pr_url_template", environment.DefaultPRTemplate)
	v.SetDefault("api.language", localities.DefaultLanguage)
	v.SetDefault("api.debounce_ms", 300)
	v.SetDefault("api.bias_radius_m", 10000)
	v.SetDefault("api.timeout_secs", 10)
	v.SetDefault("api.requests_per_second", 10)
	v.SetDefault("api.fields", "")
	v.SetDefault("map.center_lat", 48.8534)
	v.SetDefault("map.center_lng", 2.3488)
	v.SetDefault("map.zoom", 5)
	v.SetDefault("map.gesture_handling", "greedy")
	v.SetDefault("map.marker_icon_url", "https://images.woosmap.com/dot-marker.png")
	v.SetDefault("map.marker_width", 46)
	v.SetDefault("map.marker_height", 64)
	v.SetDefault("map.stroke_color", "#b71c1c")
	v.SetDefault("map.stroke_opacity", 0.8)
	v.SetDefault("map.stroke_weight", 2)
	v.SetDefault("map.fill_color", "#b71c1c")
	v.SetDefault("map.fill_opacity", 0.5)
	v.SetDefault("map.zoom_locality", 8)
	v.SetDefault("map.zoom_postal_code", 6)
	v.SetDefault("map.zoom_address", 16)
	v.SetDefault("map.maps_api_key", "")
	v.SetDefault("map.maps_sdk_url", "https://sdk.woosmap.com/map/map.js")
	v.SetDefault("cache.details_ttl_secs", 0)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks the configuration for a run mode: "query" for commands that call
// the API, "serve" for the HTTP server, "env" for commands that only read the
// environment table.
func (c *Config) Validate(mode string) error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	if _, err := language.Parse(c.API.Language); err != nil {
		return eris.Wrapf(err, "config: api.language %q is not a language tag", c.API.Language)
	}

	var missing []string
	switch mode {
	case "query", "serve":
		if c.Environments.Prod.Key == "" {
			missing = append(missing, "environments.prod.key is required (LOCALITIES_ENVIRONMENTS_PROD_KEY)")
		}
		if c.Environments.Dev.Key == "" {
			missing = append(missing, "environments.dev.key is required (LOCALITIES_ENVIRONMENTS_DEV_KEY)")
		}
	case "env":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
