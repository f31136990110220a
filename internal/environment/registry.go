// Package environment holds the backend environments a comparison can target.
package environment

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// Environment names.
const (
	Dev  = "dev"
	Prod = "prod"
	PR   = "pr"
)

// DefaultPRTemplate is the base URL pattern of pull-request deployments.
const DefaultPRTemplate = "https://develop-api.woosmap.com/{pr}/localities/"

// ErrUnknownEnvironment is returned for selector values outside dev, prod and pr.
var ErrUnknownEnvironment = eris.New("environment: unknown environment")

var names = []string{Dev, Prod, PR}

var digits = regexp.MustCompile(`\d+`)

// Registry maps environment names to targets. Only the pr entry changes after
// construction. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	targets    map[string]localities.Target
	prTemplate string
	prID       string
	onRetarget []func(env string)
}

// NewRegistry builds a registry from targets. Missing dev/prod/pr entries are
// created with an empty key and URL; targets with other names are ignored.
func NewRegistry(targets []localities.Target, prTemplate string) *Registry {
	if prTemplate == "" {
		prTemplate = DefaultPRTemplate
	}
	r := &Registry{
		targets:    make(map[string]localities.Target, len(names)),
		prTemplate: prTemplate,
	}
	for _, n := range names {
		r.targets[n] = localities.Target{Name: n}
	}
	for _, t := range targets {
		if !known(t.Name) {
			zap.L().Warn("environment: ignoring unknown environment", zap.String("env", t.Name))
			continue
		}
		r.targets[t.Name] = t
	}
	return r
}

// IsKnown reports whether name is one of dev, prod or pr.
func IsKnown(name string) bool {
	return known(strings.ToLower(strings.TrimSpace(name)))
}

func known(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve returns the target selected by name.
func (r *Registry) Resolve(name string) (localities.Target, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	t, ok := r.targets[name]
	r.mu.RUnlock()
	if !ok {
		return localities.Target{}, eris.Wrapf(ErrUnknownEnvironment, "%q", name)
	}
	if t.BaseURL == "" {
		zap.L().Warn("environment: target has no base url", zap.String("env", name))
	}
	return t, nil
}

// Prod returns the production target.
func (r *Registry) Prod() localities.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targets[Prod]
}

// Names lists the environment names in selector order.
func (r *Registry) Names() []string {
	return append([]string(nil), names...)
}

// Targets returns every entry in selector order.
func (r *Registry) Targets() []localities.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]localities.Target, 0, len(names))
	for _, n := range names {
		out = append(out, r.targets[n])
	}
	return out
}

// PRID returns the identifier of the current pr deployment, if one was set.
func (r *Registry) PRID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prID
}

// SetPRTarget points the pr entry at the deployment named by the first run of
// digits in input. When input holds no digits nothing changes and ok is false;
// the previous URL, possibly empty, stays in place.
func (r *Registry) SetPRTarget(input string) (id string, ok bool) {
	id, ok = PRNumber(input)
	if !ok {
		zap.L().Info("environment: no pr number in input, keeping previous target",
			zap.String("input", input))
		return "", false
	}

	r.mu.Lock()
	t := r.targets[PR]
	t.BaseURL = strings.ReplaceAll(r.prTemplate, "{pr}", id)
	r.targets[PR] = t
	r.prID = id
	hooks := append(([]func(string))(nil), r.onRetarget...)
	r.mu.Unlock()

	zap.L().Info("environment: pr target set", zap.String("pr", id), zap.String("url", t.BaseURL))
	for _, fn := range hooks {
		fn(PR)
	}
	return id, true
}

// OnRetarget registers fn to run after an entry's base URL changes. fn gets the
// environment name and runs without the registry lock held.
func (r *Registry) OnRetarget(fn func(env string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRetarget = append(r.onRetarget, fn)
}

// PRNumber extracts the first run of digits from input.
func PRNumber(input string) (string, bool) {
	id := digits.FindString(input)
	return id, id != ""
}
