package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/localities-compare/internal/environment"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect the configured environments",
}

// -- env list --

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments with their base URLs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("env"); err != nil {
			return err
		}
		reg := environment.NewRegistry(cfg.Environments.Targets(), cfg.Environments.PRURLTemplate)
		return formatEnvList(cmd.OutOrStdout(), reg)
	},
}

// -- env pr --

var envPRCmd = &cobra.Command{
	Use:   "pr <number-or-url>",
	Short: "Show the base URL a pull request deployment resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("env"); err != nil {
			return err
		}
		reg := environment.NewRegistry(cfg.Environments.Targets(), cfg.Environments.PRURLTemplate)
		id, ok := reg.SetPRTarget(args[0])
		if !ok {
			return eris.Errorf("env pr: no pull request number in %q", args[0])
		}
		t, err := reg.Resolve(environment.PR)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PR %s\t%s\n", id, t.BaseURL)
		return nil
	},
}

func formatEnvList(out io.Writer, reg *environment.Registry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL\tKEY")
	for _, t := range reg.Targets() {
		url := t.BaseURL
		if url == "" {
			url = "(unset)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, url, maskKey(t.Key))
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "env list: flush")
	}
	return nil
}

func init() {
	envCmd.AddCommand(envListCmd, envPRCmd)
	rootCmd.AddCommand(envCmd)
}
