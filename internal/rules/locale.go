package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/eoinhurrell/cfpaths/internal/pathutil"
	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// LocaleFallbackRule looks for the same content under a fallback locale,
// then without any locale segment.
type LocaleFallbackRule struct {
	source    ContentClient
	fallbacks []string
}

// NewLocaleFallbackRule creates a LocaleFallbackRule trying fallbacks in order
func NewLocaleFallbackRule(source ContentClient, fallbacks []string) *LocaleFallbackRule {
	return &LocaleFallbackRule{source: source, fallbacks: fallbacks}
}

func (r *LocaleFallbackRule) Name() string  { return "locale-fallback" }
func (r *LocaleFallbackRule) Priority() int { return 2 }

// Apply implements Rule
func (r *LocaleFallbackRule) Apply(ctx context.Context, path string) (*suggestion.Suggestion, error) {
	locale, ok := pathutil.LocaleOf(path)
	if !ok {
		return nil, nil
	}

	for _, candidate := range r.candidates(path, locale) {
		content, err := r.source.Lookup(ctx, candidate.path)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", candidate.path, err)
		}
		if content != nil {
			s := suggestion.Locale(path, candidate.path, candidate.reason)
			return &s, nil
		}
	}
	return nil, nil
}

type localeCandidate struct {
	path   string
	reason string
}

func (r *LocaleFallbackRule) candidates(path, locale string) []localeCandidate {
	var candidates []localeCandidate
	seen := map[string]bool{path: true}

	for _, fallback := range r.fallbacks {
		if strings.EqualFold(fallback, locale) {
			continue
		}
		candidate := pathutil.ReplaceLocale(path, fallback)
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		candidates = append(candidates, localeCandidate{
			path:   candidate,
			reason: fmt.Sprintf("Content is available in fallback locale %s.", fallback),
		})
	}

	if neutral := pathutil.RemoveLocaleFromPath(path); !seen[neutral] {
		candidates = append(candidates, localeCandidate{
			path:   neutral,
			reason: "Content is available without a locale segment.",
		})
	}
	return candidates
}
