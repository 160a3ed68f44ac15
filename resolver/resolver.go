// Package resolver turns a window title and a typed keyword fragment into a
// match against the template collection bound to that window.
package resolver

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"text-expander/metrics"
	"text-expander/templates"
)

// Finder locates the collection bound to a window title.
type Finder interface {
	Find(windowTitle string) (*templates.Collection, error)
}

// Match resolves fragment against c. A nil collection yields NoCollection.
// Exact matches win over prefix matches; nothing is carried over between
// calls.
func Match(c *templates.Collection, fragment string) Result {
	if c == nil {
		return Result{Kind: NoCollection, Fragment: fragment}
	}
	if fragment == "" {
		return Result{Kind: NoMatch}
	}

	f := strings.ToLower(fragment)
	var exact []templates.Entry
	for _, e := range c.Entries {
		if strings.ToLower(e.Key) == f {
			exact = append(exact, e)
		}
	}
	if len(exact) == 1 {
		return Result{Kind: ExactMatch, Fragment: fragment, Key: exact[0].Key, Snippet: exact[0].Snippet}
	}

	var candidates []templates.Entry
	for _, e := range c.Entries {
		if strings.HasPrefix(strings.ToLower(e.Key), f) {
			candidates = append(candidates, e)
		}
	}
	switch len(candidates) {
	case 0:
		return Result{Kind: NoMatch, Fragment: fragment}
	case 1:
		return Result{Kind: UniquePrefixMatch, Fragment: fragment, Key: candidates[0].Key, Snippet: candidates[0].Snippet}
	default:
		keys := make([]string, len(candidates))
		for i, e := range candidates {
			keys[i] = e.Key
		}
		return Result{Kind: AmbiguousMatch, Fragment: fragment, Candidates: keys}
	}
}

// Resolver binds window titles to collections through a Finder.
type Resolver struct {
	finder Finder
	logger *zap.Logger
}

// New returns a Resolver backed by finder.
func New(finder Finder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{finder: finder, logger: logger}
}

// Bind returns the collection for windowTitle, or nil when no unit matches.
func (r *Resolver) Bind(windowTitle string) (*templates.Collection, error) {
	c, err := r.finder.Find(windowTitle)
	if errors.Is(err, templates.ErrNoCollection) {
		r.logger.Debug("no related template collection", zap.String("title", windowTitle))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Query binds windowTitle and matches fragment against the result in one
// step. The store is scanned on every call.
func (r *Resolver) Query(windowTitle, fragment string) (Result, error) {
	c, err := r.Bind(windowTitle)
	if err != nil {
		return Result{}, err
	}
	res := Match(c, fragment)
	metrics.LookupsTotal.WithLabelValues(res.Kind.String()).Inc()
	return res, nil
}
