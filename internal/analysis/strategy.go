// Package analysis turns a list of broken content paths into one suggestion
// per path by running the rule chain and verifying the results against the
// path index.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eoinhurrell/cfpaths/internal/index"
	"github.com/eoinhurrell/cfpaths/internal/rules"
	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// StatusSource answers publish-status questions during verification.
// A nil result with a nil error means the path is unknown.
type StatusSource interface {
	Lookup(ctx context.Context, path string) (*index.ContentPath, error)
}

// Strategy runs the resolution rules for each broken path
type Strategy struct {
	rc          *RunContext
	index       *index.Index
	client      rules.ContentClient
	rules       []rules.Rule
	status      StatusSource
	ruleConfig  rules.Config
	concurrency int
	ruleTimeout time.Duration
}

// Option configures a Strategy
type Option func(*Strategy)

// WithRules replaces the default rule chain. The rules are sorted by
// priority like the defaults.
func WithRules(chain ...rules.Rule) Option {
	return func(s *Strategy) {
		s.rules = append([]rules.Rule{}, chain...)
	}
}

// WithRuleConfig tunes the default rules
func WithRuleConfig(cfg rules.Config) Option {
	return func(s *Strategy) {
		s.ruleConfig = cfg
	}
}

// WithConcurrency analyzes up to n paths at once. Output and log order
// still follow the input.
func WithConcurrency(n int) Option {
	return func(s *Strategy) {
		s.concurrency = n
	}
}

// WithRuleTimeout bounds each rule application; a timeout counts as a
// rule failure.
func WithRuleTimeout(d time.Duration) Option {
	return func(s *Strategy) {
		s.ruleTimeout = d
	}
}

// WithStatusSource verifies suggestions against source instead of the index
// and client
func WithStatusSource(source StatusSource) Option {
	return func(s *Strategy) {
		s.status = source
	}
}

// NewStrategy creates a Strategy over idx. client may be nil, in which case
// rules and verification only see the index.
func NewStrategy(rc *RunContext, client rules.ContentClient, idx *index.Index, opts ...Option) *Strategy {
	if idx == nil {
		idx = index.New()
	}
	s := &Strategy{
		rc:          rc,
		index:       idx,
		client:      client,
		ruleConfig:  rules.DefaultConfig(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rules == nil {
		s.rules = rules.Defaults(idx, client, s.ruleConfig)
	} else {
		s.rules = rules.Sorted(s.rules)
	}
	if s.status == nil {
		s.status = rules.NewSource(idx, client)
	}
	return s
}

// Rules returns the chain in the order it is tried
func (s *Strategy) Rules() []rules.Rule {
	chain := make([]rules.Rule, len(s.rules))
	copy(chain, s.rules)
	return chain
}

// Analyze returns one suggestion per broken path, in input order. It never
// fails: rule errors degrade a path to NOT_FOUND instead.
func (s *Strategy) Analyze(ctx context.Context, brokenPaths []string) []suggestion.Suggestion {
	if len(brokenPaths) == 0 {
		return []suggestion.Suggestion{}
	}

	cleaned := make([]string, len(brokenPaths))
	for i, p := range brokenPaths {
		cleaned[i] = CleanPath(p)
	}

	suggestions := make([]suggestion.Suggestion, len(cleaned))
	if s.concurrency <= 1 {
		for i, p := range cleaned {
			suggestions[i] = s.AnalyzePath(ctx, p)
		}
	} else {
		resolved := make([]resolution, len(cleaned))
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, p := range cleaned {
			g.Go(func() error {
				resolved[i] = s.resolve(ctx, p)
				return nil
			})
		}
		_ = g.Wait()

		for i, res := range resolved {
			s.logResolution(res)
			suggestions[i] = res.suggestion
		}
	}

	return s.ProcessSuggestions(ctx, suggestions)
}

// AnalyzePath runs the rule chain for a single, already cleaned, path
func (s *Strategy) AnalyzePath(ctx context.Context, path string) suggestion.Suggestion {
	res := s.resolve(ctx, path)
	s.logResolution(res)
	return res.suggestion
}

// attempt records the outcome of one rule application
type attempt struct {
	rule string
	err  error
}

type resolution struct {
	path       string
	suggestion suggestion.Suggestion
	matched    string
	attempts   []attempt
}

// resolve tries each rule in priority order until one produces a
// suggestion. It does not log so parallel runs can report in input order.
func (s *Strategy) resolve(ctx context.Context, path string) resolution {
	res := resolution{path: path}
	for _, rule := range s.rules {
		result, err := s.applyRule(ctx, rule, path)
		res.attempts = append(res.attempts, attempt{rule: rule.Name(), err: err})
		if err != nil || result == nil {
			continue
		}
		res.suggestion = *result
		res.matched = rule.Name()
		return res
	}
	res.suggestion = suggestion.NotFound(path)
	return res
}

func (s *Strategy) applyRule(ctx context.Context, rule rules.Rule, path string) (result *suggestion.Suggestion, err error) {
	if s.ruleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ruleTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("rule %s panicked: %v", rule.Name(), r)
		}
	}()
	return rule.Apply(ctx, path)
}

func (s *Strategy) logResolution(res resolution) {
	logger := s.rc.logger()
	for _, a := range res.attempts {
		if a.err != nil {
			logger.Warn("Rule failed, trying next rule",
				zap.String("path", res.path),
				zap.String("rule", a.rule),
				zap.Error(a.err))
		}
	}

	if res.matched == "" {
		logger.Warn("No rule resolved broken path", zap.String("path", res.path))
		return
	}
	logger.Info("Rule resolved broken path",
		zap.String("path", res.path),
		zap.String("rule", res.matched),
		zap.String("type", string(res.suggestion.Type())),
		zap.String("suggested_path", res.suggestion.SuggestedPath()))
}

// ProcessSuggestions checks LOCALE and SIMILAR targets against the status
// source. A target that exists but is not published gets its reason
// rewritten; nothing else changes. PUBLISH and NOT_FOUND pass through
// without a lookup, and lookup failures leave the suggestion as it was.
func (s *Strategy) ProcessSuggestions(ctx context.Context, suggestions []suggestion.Suggestion) []suggestion.Suggestion {
	processed := make([]suggestion.Suggestion, len(suggestions))
	for i, sug := range suggestions {
		switch sug.Type() {
		case suggestion.TypeLocale, suggestion.TypeSimilar:
			processed[i] = s.verify(ctx, sug)
		default:
			processed[i] = sug
		}
	}
	return processed
}

func (s *Strategy) verify(ctx context.Context, sug suggestion.Suggestion) suggestion.Suggestion {
	content, err := s.status.Lookup(ctx, sug.SuggestedPath())
	if err != nil {
		s.rc.logger().Warn("Could not verify suggested path",
			zap.String("path", sug.RequestedPath()),
			zap.String("suggested_path", sug.SuggestedPath()),
			zap.Error(err))
		return sug
	}
	if content == nil || content.IsPublished() {
		return sug
	}
	return sug.WithReason(fmt.Sprintf("Content is in %s state. Suggest publishing.", content.Status))
}
