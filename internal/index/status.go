package index

import (
	"fmt"
	"strings"
)

var knownStatuses = map[string]Status{
	"PUBLISHED":   StatusPublished,
	"MODIFIED":    StatusModified,
	"DRAFT":       StatusDraft,
	"UNPUBLISHED": StatusDraft,
	"NEW":         StatusDraft,
	"ARCHIVED":    StatusArchived,
	"PROCESSING":  StatusProcessing,
}

// ParseContentStatus maps upstream metadata onto a Status. It looks at the
// "status" field, then "state", then a boolean "published" flag. Anything it
// cannot classify becomes StatusUnknown.
func ParseContentStatus(meta Metadata) Status {
	if meta == nil {
		return StatusUnknown
	}

	for _, key := range []string{"status", "state"} {
		raw, ok := meta[key]
		if !ok || raw == nil {
			continue
		}
		return ParseStatus(fmt.Sprint(raw))
	}

	switch v := meta["published"].(type) {
	case bool:
		if v {
			return StatusPublished
		}
		return StatusDraft
	case int:
		if v != 0 {
			return StatusPublished
		}
		return StatusDraft
	case int64:
		if v != 0 {
			return StatusPublished
		}
		return StatusDraft
	}

	return StatusUnknown
}

// ParseStatus classifies a single status string, case-insensitively
func ParseStatus(raw string) Status {
	if status, ok := knownStatuses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return status
	}
	return StatusUnknown
}
