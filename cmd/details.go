package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/pkg/localities"
)

var (
	detailsEnv        string
	detailsProduction bool
	detailsFields     []string
	detailsLang       string
	detailsPR         string
	detailsOutput     string
)

var detailsCmd = &cobra.Command{
	Use:   "details <public-id>",
	Short: "Show the details of one locality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := validFormat(detailsOutput); err != nil {
			return err
		}
		env, err := initCompare("query", consoleReporter{out: os.Stderr})
		if err != nil {
			return err
		}
		applyPRFlag(env.Registry, detailsPR)

		fields := detailsFields
		if len(fields) == 0 {
			fields = cfg.API.DetailsFields()
		}
		req := localities.DetailsRequest{PublicID: args[0], Language: langFlag(detailsLang), Fields: fields}

		var (
			d      *normalize.Detail
			source = detailsEnv
		)
		if detailsProduction {
			source = environment.Prod
			d, err = env.Orchestrator.ProductionDetails(ctx, req)
		} else {
			d, err = env.Orchestrator.Details(ctx, detailsEnv, req)
		}
		if err != nil {
			return eris.Wrap(err, "details")
		}
		return writeDetail(cmd.OutOrStdout(), source, d, detailsOutput)
	},
}

func init() {
	f := detailsCmd.Flags()
	f.StringVar(&detailsEnv, "env", environment.Dev, "environment to look the locality up in")
	f.BoolVar(&detailsProduction, "production", false, "look the locality up in production")
	f.StringSliceVar(&detailsFields, "field", nil, "details fields to request (default from config)")
	f.StringVar(&detailsLang, "lang", "", "response language (default from config)")
	f.StringVar(&detailsPR, "pr", "", "pull request number or URL for the pr environment")
	f.StringVarP(&detailsOutput, "output", "o", formatText, "output format (text, json, yaml)")
	rootCmd.AddCommand(detailsCmd)
}
