package rules

import (
	"context"
	"fmt"

	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// PublishRule fires when the broken path exists on author, meaning the
// only fix is to publish it.
type PublishRule struct {
	source ContentClient
}

// NewPublishRule creates a PublishRule backed by source
func NewPublishRule(source ContentClient) *PublishRule {
	return &PublishRule{source: source}
}

func (r *PublishRule) Name() string  { return "publish" }
func (r *PublishRule) Priority() int { return 1 }

// Apply implements Rule
func (r *PublishRule) Apply(ctx context.Context, path string) (*suggestion.Suggestion, error) {
	content, err := r.source.Lookup(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", path, err)
	}
	if content == nil {
		return nil, nil
	}

	s := suggestion.Publish(path, fmt.Sprintf("Content exists on Author in %s state. Publish it to restore the link.", content.Status))
	return &s, nil
}
