package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/eoinhurrell/cfpaths/internal/pathutil"
	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// SimilarPathRule picks the sibling whose name is closest to the broken
// path's name, within maxDistance edits.
type SimilarPathRule struct {
	source      ContentClient
	maxDistance int
}

// NewSimilarPathRule creates a SimilarPathRule
func NewSimilarPathRule(source ContentClient, maxDistance int) *SimilarPathRule {
	return &SimilarPathRule{source: source, maxDistance: maxDistance}
}

func (r *SimilarPathRule) Name() string  { return "similar-path" }
func (r *SimilarPathRule) Priority() int { return 3 }

// Apply implements Rule
func (r *SimilarPathRule) Apply(ctx context.Context, path string) (*suggestion.Suggestion, error) {
	parent := pathutil.GetParentPath(path)
	if parent == "" {
		return nil, nil
	}
	name := strings.ToLower(pathutil.BaseName(path))
	if name == "" {
		return nil, nil
	}

	siblings, err := r.source.ListChildren(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", parent, err)
	}

	best, bestDistance := "", -1
	for _, sibling := range siblings {
		if sibling.Path == path {
			continue
		}
		siblingName := strings.ToLower(pathutil.BaseName(sibling.Path))
		if siblingName == "" {
			continue
		}
		distance := levenshtein.ComputeDistance(name, siblingName)
		if distance > r.maxDistance {
			continue
		}
		// ties go to the lexically smaller path so results are stable
		if bestDistance == -1 || distance < bestDistance || (distance == bestDistance && sibling.Path < best) {
			best, bestDistance = sibling.Path, distance
		}
	}
	if best == "" {
		return nil, nil
	}

	s := suggestion.Similar(path, best, fmt.Sprintf("Found similar path %s (edit distance %d).", pathutil.BaseName(best), bestDistance))
	return &s, nil
}
