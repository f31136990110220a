package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/normalize"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type resultView struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
}

type sideView struct {
	Env     string       `json:"env" yaml:"env"`
	Error   string       `json:"error,omitempty" yaml:"error,omitempty"`
	Results []resultView `json:"results" yaml:"results"`
}

type comparisonView struct {
	RequestID  string   `json:"request_id" yaml:"request_id"`
	Kind       string   `json:"kind" yaml:"kind"`
	Input      string   `json:"input" yaml:"input"`
	Target     sideView `json:"target" yaml:"target"`
	Production sideView `json:"production" yaml:"production"`
}

func newSideView(s compare.Side) sideView {
	v := sideView{Env: s.Env, Error: s.Error(), Results: make([]resultView, 0, len(s.Results))}
	for _, r := range s.Results {
		v.Results = append(v.Results, resultView{
			ID:       r.ID,
			Name:     r.NameText(),
			Subtitle: r.Subtitle,
			Type:     r.TypeLabel,
		})
	}
	return v
}

func newComparisonView(c compare.Comparison) comparisonView {
	return comparisonView{
		RequestID:  c.RequestID,
		Kind:       c.Kind.String(),
		Input:      c.Input,
		Target:     newSideView(c.Target),
		Production: newSideView(c.Production),
	}
}

type detailView struct {
	Env    string            `json:"env" yaml:"env"`
	Found  bool              `json:"found" yaml:"found"`
	Fields []normalize.Field `json:"fields,omitempty" yaml:"fields,omitempty"`
	Detail *normalize.Detail `json:"detail,omitempty" yaml:"-"`
}

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return eris.Errorf("output: unknown format %q (want text, json or yaml)", format)
	}
}

func encode(out io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "output: encode json")
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		return nil
	default:
		return validFormat(format)
	}
}

// writeComparison prints both result lists. The text form puts them side by side.
func writeComparison(out io.Writer, c compare.Comparison, format string) error {
	if format != formatText {
		return encode(out, format, newComparisonView(c))
	}

	bold := color.New(color.Bold).SprintFunc()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\t%s\t%s\n", bold(strings.ToUpper(c.Target.Env)), bold(strings.ToUpper(c.Production.Env)))

	rows := max(len(c.Target.Results), len(c.Production.Results))
	for i := 0; i < rows; i++ {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, resultCell(c.Target.Results, i), resultCell(c.Production.Results, i))
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "output: flush")
	}

	red := color.New(color.FgRed).SprintFunc()
	for _, s := range []compare.Side{c.Target, c.Production} {
		switch {
		case s.Err != nil:
			fmt.Fprintf(out, "%s: %s\n", s.Env, red(s.Error()))
		case len(s.Results) == 0:
			fmt.Fprintf(out, "%s: no results\n", s.Env)
		}
	}
	return nil
}

func resultCell(results []normalize.Result, i int) string {
	if i >= len(results) {
		return ""
	}
	r := results[i]
	cell := r.Label()
	if r.TypeLabel != "" {
		cell += " [" + r.TypeLabel + "]"
	}
	return cell
}

// writeDetail prints a detail panel. d may be nil when nothing matched.
func writeDetail(out io.Writer, env string, d *normalize.Detail, format string) error {
	v := detailView{Env: env, Found: d != nil, Detail: d}
	if d != nil {
		v.Fields = d.Fields()
	}
	if format != formatText {
		return encode(out, format, v)
	}

	if d == nil {
		fmt.Fprintf(out, "%s: no result\n", env)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeFields(w, v.Fields, "")
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "output: flush")
	}
	return nil
}

func writeFields(w io.Writer, fields []normalize.Field, indent string) {
	for _, f := range fields {
		fmt.Fprintf(w, "%s%s\t%s\n", indent, f.Label, f.Value)
		if len(f.Children) > 0 {
			writeFields(w, f.Children, indent+"  ")
		}
	}
}

// maskKey hides all but the last four characters of an API key.
func maskKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
