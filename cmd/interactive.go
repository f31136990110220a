package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/mapview"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/internal/resilience"
	"github.com/sells-group/localities-compare/internal/session"
	"github.com/sells-group/localities-compare/pkg/localities"
)

var (
	interactiveEnv  string
	interactiveKind string
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Compare environments as you type",
	Long: `Reads lines from stdin. Plain text is searched once typing pauses; lines starting
with ":" are commands. Type :help for the list.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !environment.IsKnown(interactiveEnv) {
			return eris.Wrapf(environment.ErrUnknownEnvironment, "interactive: %q", interactiveEnv)
		}
		kind, err := localities.ParseSearchKind(interactiveKind)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ui := newTextUI(out)
		env, err := initCompare("query", consoleReporter{out: os.Stderr})
		if err != nil {
			return err
		}
		scfg := session.DefaultConfig()
		scfg.Env = interactiveEnv
		scfg.Kind = kind
		scfg.Language = cfg.API.Language
		scfg.Debounce = cfg.API.Debounce()
		scfg.BiasRadius = cfg.API.BiasRadiusM
		scfg.Fields = cfg.API.DetailsFields()
		scfg.Center = localities.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng}

		sh := newShell(ctx, env.Orchestrator, env.Registry, env.Orchestrator.Breakers(), ui, scfg, cfg.Map.Options())
		defer sh.close()

		ui.printf("Comparing %s with production. Type :help for commands.\n", interactiveEnv)
		return sh.run(ctx, cmd.InOrStdin())
	},
}

// textUI renders session output as text. It remembers the last comparison so
// results can be picked by number.
type textUI struct {
	mu      sync.Mutex
	out     io.Writer
	last    compare.Comparison
	visible bool
}

var _ session.UI = (*textUI)(nil)

func newTextUI(out io.Writer) *textUI {
	return &textUI{out: out}
}

func (u *textUI) printf(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

func (u *textUI) ShowComparison(c compare.Comparison) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.last, u.visible = c, true
	if err := writeComparison(u.out, c, formatText); err != nil {
		zap.L().Warn("interactive: render comparison", zap.Error(err))
	}
}

func (u *textUI) ClearResults() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.last, u.visible = compare.Comparison{}, false
	fmt.Fprintln(u.out, "(no results)")
}

func (u *textUI) HideResults() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.visible = false
}

func (u *textUI) SetInput(text string) {
	u.printf("> %s\n", text)
}

func (u *textUI) ShowDetail(d normalize.Detail) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := writeDetail(u.out, "", &d, formatText); err != nil {
		zap.L().Warn("interactive: render detail", zap.Error(err))
	}
}

// pick returns result n (1-based) of the last comparison.
func (u *textUI) pick(production bool, n int) (normalize.Result, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	results := u.last.Target.Results
	if production {
		results = u.last.Production.Results
	}
	if n < 1 || n > len(results) {
		return normalize.Result{}, false
	}
	return results[n-1], true
}

// shell maps input lines to session events.
type shell struct {
	sess     *session.Session
	registry *environment.Registry
	breakers *resilience.Breakers
	ui       *textUI
	recorder *mapview.Recorder
}

func newShell(ctx context.Context, searcher session.Searcher, reg *environment.Registry, breakers *resilience.Breakers,
	ui *textUI, scfg session.Config, mapOpts mapview.Options) *shell {
	rec := mapview.NewRecorder(mapOpts)
	return &shell{
		sess:     session.New(ctx, searcher, ui, mapview.NewAdapter(rec, mapOpts), scfg),
		registry: reg,
		breakers: breakers,
		ui:       ui,
		recorder: rec,
	}
}

func (s *shell) close() {
	s.sess.Close()
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil {
			s.ui.printf("%s\n", color.RedString(err.Error()))
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrap(err, "interactive: read input")
	}
	return nil
}

const shellHelp = `Commands:
  <text>                 search once typing pauses
  :search                search the current input now
  :select [prod] <n>     show details of result n
  :click <lat,lng>       reverse geocode a point
  :env <dev|prod|pr>     choose the environment compared with production
  :pr <number-or-url>    point the pr environment at a pull request
  :kind <kind>           autocomplete, search or geocode
  :country <CC>          toggle a country restriction
  :types <a|b>           set type restrictions (empty clears)
  :fields <a|b>          set details fields (empty clears)
  :extended <on|off>     postal code extension, re-runs the search
  :bias <on|off>         bias toward the map center, re-runs the search
  :center <lat,lng>      move the bias center
  :map                   show the map state
  :state                 show the current filters
  :breakers              show environment breaker states
  :quit
`

// exec runs one line. quit is true when the shell should stop.
func (s *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	if !strings.HasPrefix(line, ":") {
		s.sess.OnInputChanged(line)
		return false, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "q", "exit":
		return true, nil
	case "help":
		s.ui.printf("%s", shellHelp)
	case "search":
		s.sess.Search(ctx)
	case "select":
		return false, s.selectResult(ctx, arg)
	case "click":
		p, err := parseLatLng(arg)
		if err != nil {
			return false, err
		}
		s.sess.OnMapClicked(ctx, p)
	case "env":
		if err := s.sess.SetTarget(arg); err != nil {
			return false, err
		}
		if strings.EqualFold(arg, environment.PR) && s.registry.PRID() == "" {
			s.ui.printf("pr has no deployment yet, use :pr <number>\n")
		}
	case "pr":
		id, ok := s.registry.SetPRTarget(arg)
		if !ok {
			return false, eris.Errorf("no pull request number in %q", arg)
		}
		s.ui.printf("PR %s\n", id)
	case "kind":
		kind, err := localities.ParseSearchKind(arg)
		if err != nil {
			return false, err
		}
		return false, s.sess.SetKind(kind)
	case "country":
		s.ui.printf("countries: %s\n", strings.Join(s.sess.ToggleCountry(arg), ", "))
	case "types":
		s.sess.SetTypes(splitPipe(arg))
	case "fields":
		s.sess.SetFields(splitPipe(arg))
	case "extended":
		on, err := parseOnOff(arg)
		if err != nil {
			return false, err
		}
		s.sess.SetExtended(ctx, on)
	case "bias":
		on, err := parseOnOff(arg)
		if err != nil {
			return false, err
		}
		s.sess.SetBias(ctx, on)
	case "center":
		p, err := parseLatLng(arg)
		if err != nil {
			return false, err
		}
		s.sess.SetCenter(p)
	case "map":
		st, err := s.recorder.State()
		if err != nil {
			return false, err
		}
		b, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return false, eris.Wrap(err, "interactive: encode map state")
		}
		s.ui.printf("%s\n", b)
	case "state":
		b, err := yaml.Marshal(s.sess.Snapshot())
		if err != nil {
			return false, eris.Wrap(err, "interactive: encode state")
		}
		s.ui.printf("%s", b)
	case "breakers":
		for _, st := range s.breakers.Snapshot() {
			s.ui.printf("%s\t%s\t%d\n", st.Env, st.State, st.Failures)
		}
	default:
		return false, eris.Errorf("unknown command :%s (try :help)", name)
	}
	return false, nil
}

func (s *shell) selectResult(ctx context.Context, arg string) error {
	production := false
	if rest, ok := strings.CutPrefix(arg, "prod "); ok {
		production, arg = true, strings.TrimSpace(rest)
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return eris.Errorf("select: %q is not a result number", arg)
	}
	r, ok := s.ui.pick(production, n)
	if !ok {
		return eris.Errorf("select: no result %d", n)
	}
	s.sess.OnResultSelected(ctx, r.ID, r.Label())
	return nil
}

func splitPipe(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, eris.Errorf("want on or off, got %q", s)
	}
}

func init() {
	interactiveCmd.Flags().StringVar(&interactiveEnv, "env", environment.Dev, "environment compared against production (dev, prod, pr)")
	interactiveCmd.Flags().StringVar(&interactiveKind, "kind", localities.KindAutocomplete.String(), "endpoint (autocomplete, search, geocode)")
	rootCmd.AddCommand(interactiveCmd)
}
