package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/pkg/localities"
)

var (
	searchEnv       string
	searchKind      string
	searchCountries []string
	searchTypes     []string
	searchExtended  bool
	searchBias      bool
	searchCenter    string
	searchLang      string
	searchPR        string
	searchOutput    string
)

var searchCmd = &cobra.Command{
	Use:   "search <input>",
	Short: "Run one query against an environment and production",
	Long:  "Sends the same autocomplete, search or geocode query to the selected environment and to production concurrently and prints both result lists.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := validFormat(searchOutput); err != nil {
			return err
		}
		kind, err := localities.ParseSearchKind(searchKind)
		if err != nil {
			return err
		}

		input := strings.TrimSpace(strings.Join(args, " "))
		if input == "" {
			return eris.New("search: input is empty")
		}

		env, err := initCompare("query", consoleReporter{out: os.Stderr})
		if err != nil {
			return err
		}
		applyPRFlag(env.Registry, searchPR)

		center, err := centerFlag(searchCenter)
		if err != nil {
			return err
		}
		req := localities.SearchRequest{
			Input:     input,
			Language:  langFlag(searchLang),
			Countries: upperAll(searchCountries),
			Types:     searchTypes,
			Extended:  searchExtended,
		}
		if searchBias {
			req.Bias = &localities.Bias{Center: center, RadiusMeters: cfg.API.BiasRadiusM}
		}

		cmp, err := env.Orchestrator.CompareSearch(ctx, searchEnv, kind, req)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		return writeComparison(cmd.OutOrStdout(), cmp, searchOutput)
	},
}

// applyPRFlag points the pr environment at the pull request named by input. Input
// without a number leaves the previous URL in place.
func applyPRFlag(r *environment.Registry, input string) {
	if input == "" {
		return
	}
	if _, ok := r.SetPRTarget(input); !ok {
		zap.L().Warn("no pull request number in --pr, keeping previous pr target", zap.String("input", input))
	}
}

// centerFlag parses "lat,lng", falling back to the configured map center.
func centerFlag(s string) (localities.LatLng, error) {
	if strings.TrimSpace(s) == "" {
		return localities.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng}, nil
	}
	return parseLatLng(s)
}

func parseLatLng(s string) (localities.LatLng, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return localities.LatLng{}, eris.Errorf("parse coordinate %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return localities.LatLng{}, eris.Wrapf(err, "parse latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return localities.LatLng{}, eris.Wrapf(err, "parse longitude %q", parts[1])
	}
	return localities.LatLng{Lat: lat, Lng: lng}, nil
}

func langFlag(s string) string {
	if s != "" {
		return s
	}
	return cfg.API.Language
}

func upperAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchEnv, "env", environment.Dev, "environment compared against production (dev, prod, pr)")
	f.StringVar(&searchKind, "kind", localities.KindAutocomplete.String(), "endpoint (autocomplete, search, geocode)")
	f.StringSliceVar(&searchCountries, "country", nil, "restrict to ISO 3166 alpha-2 countries (repeatable)")
	f.StringSliceVar(&searchTypes, "type", nil, "restrict to locality types (repeatable)")
	f.BoolVar(&searchExtended, "extended", false, "extend results with postal codes")
	f.BoolVar(&searchBias, "bias", false, "bias results toward --center")
	f.StringVar(&searchCenter, "center", "", "bias center as lat,lng (default from config)")
	f.StringVar(&searchLang, "lang", "", "response language (default from config)")
	f.StringVar(&searchPR, "pr", "", "pull request number or URL for the pr environment")
	f.StringVarP(&searchOutput, "output", "o", formatText, "output format (text, json, yaml)")
	rootCmd.AddCommand(searchCmd)
}
