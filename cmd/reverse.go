package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/pkg/localities"
)

var (
	reverseEnv       string
	reverseCountries []string
	reverseTypes     []string
	reversePR        string
	reverseOutput    string
)

var reverseCmd = &cobra.Command{
	Use:   "reverse <lat,lng>",
	Short: "Reverse geocode a coordinate",
	Long:  "Reverse geocodes a coordinate in one environment and shows the closest match. Failures are logged, not reported.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := validFormat(reverseOutput); err != nil {
			return err
		}
		p, err := parseLatLng(strings.Join(args, ","))
		if err != nil {
			return err
		}

		// Reverse geocoding never reports, so no reporter.
		env, err := initCompare("query", nil)
		if err != nil {
			return err
		}
		applyPRFlag(env.Registry, reversePR)

		req := localities.ReverseRequest{Location: p, Countries: upperAll(reverseCountries), Types: reverseTypes}
		d, err := env.Orchestrator.Reverse(ctx, reverseEnv, req)
		if err != nil {
			return eris.Wrapf(err, "reverse %s,%s", formatCoord(p.Lat), formatCoord(p.Lng))
		}
		return writeDetail(cmd.OutOrStdout(), reverseEnv, d, reverseOutput)
	},
}

func init() {
	f := reverseCmd.Flags()
	f.StringVar(&reverseEnv, "env", environment.Dev, "environment to geocode in")
	f.StringSliceVar(&reverseCountries, "country", nil, "restrict to ISO 3166 alpha-2 countries (repeatable)")
	f.StringSliceVar(&reverseTypes, "type", nil, "restrict to locality types (repeatable)")
	f.StringVar(&reversePR, "pr", "", "pull request number or URL for the pr environment")
	f.StringVarP(&reverseOutput, "output", "o", formatText, "output format (text, json, yaml)")
	rootCmd.AddCommand(reverseCmd)
}
