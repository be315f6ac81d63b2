// Package rules implements the resolution strategies tried, in priority
// order, against each broken path.
package rules

import (
	"context"
	"sort"

	"github.com/eoinhurrell/cfpaths/internal/index"
	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// Rule proposes a replacement for a broken path. Apply returns nil, nil when
// the rule does not apply; an error means the rule could not decide.
type Rule interface {
	Name() string
	Priority() int
	Apply(ctx context.Context, path string) (*suggestion.Suggestion, error)
}

// ContentClient gives rules live access to the authoring environment.
// Lookup returns nil, nil for content that does not exist.
type ContentClient interface {
	Lookup(ctx context.Context, path string) (*index.ContentPath, error)
	ListChildren(ctx context.Context, parent string) ([]index.ContentPath, error)
}

// Config tunes the default rule set
type Config struct {
	// LocaleFallbacks are tried in order when a path carries a locale
	LocaleFallbacks []string
	// MaxDistance is the largest edit distance SimilarPathRule accepts
	MaxDistance int
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		LocaleFallbacks: []string{"en-US", "en"},
		MaxDistance:     2,
	}
}

// Defaults builds the standard rule chain, sorted by priority
func Defaults(idx *index.Index, client ContentClient, cfg Config) []Rule {
	src := source{index: idx, client: client}
	return Sorted([]Rule{
		NewPublishRule(src),
		NewLocaleFallbackRule(src, cfg.LocaleFallbacks),
		NewSimilarPathRule(src, cfg.MaxDistance),
	})
}

// Sorted returns a copy of rules ordered by ascending priority. Rules with
// equal priority keep their relative order.
func Sorted(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return sorted
}

// source answers existence questions from the index first and the content
// client second. Either may be nil.
type source struct {
	index  *index.Index
	client ContentClient
}

// NewSource exposes the index-then-client lookup used by the built-in rules
func NewSource(idx *index.Index, client ContentClient) ContentClient {
	return source{index: idx, client: client}
}

func (s source) Lookup(ctx context.Context, path string) (*index.ContentPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.index != nil {
		if found := s.index.Find(path); found != nil {
			return found, nil
		}
	}
	if s.client == nil {
		return nil, nil
	}
	return s.client.Lookup(ctx, path)
}

func (s source) ListChildren(ctx context.Context, parent string) ([]index.ContentPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var children []index.ContentPath
	seen := make(map[string]bool)
	if s.index != nil {
		for _, child := range s.index.Children(parent) {
			seen[child.Path] = true
			children = append(children, child)
		}
	}
	if s.client == nil {
		return children, nil
	}

	remote, err := s.client.ListChildren(ctx, parent)
	if err != nil {
		return nil, err
	}
	for _, child := range remote {
		if !seen[child.Path] {
			seen[child.Path] = true
			children = append(children, child)
		}
	}
	return children, nil
}
