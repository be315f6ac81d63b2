// Package inventory loads the content inventory that seeds the path index
// before a run starts.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eoinhurrell/cfpaths/internal/index"
	"github.com/eoinhurrell/cfpaths/internal/pathutil"
)

// ErrMalformed marks an inventory document that could not be decoded
var ErrMalformed = errors.New("malformed inventory")

// Source streams (path, metadata) pairs to fn. Returning an error from fn
// stops the load.
type Source interface {
	Load(ctx context.Context, fn func(path string, meta index.Metadata) error) error
}

// Populate fills idx from src, normalizing every path. Any failure aborts
// the run: an index built from a partial inventory would mislabel content.
func Populate(ctx context.Context, src Source, idx *index.Index) (int, error) {
	count := 0
	err := src.Load(ctx, func(path string, meta index.Metadata) error {
		normalized := pathutil.Normalize(path)
		if normalized == "" {
			return nil
		}
		idx.InsertContentPath(normalized, meta)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("populating path index: %w", err)
	}
	return count, nil
}

// Open picks a source for location: SQLite databases by extension, YAML or
// JSON documents otherwise.
func Open(location string) Source {
	if IsDatabase(location) {
		return NewSQLiteSource(location)
	}
	return NewFileSource(location)
}

// IsDatabase reports whether location names a SQLite database
func IsDatabase(location string) bool {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
