package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/eoinhurrell/cfpaths/internal/pathutil"
)

// Status is the publish state recorded for a content path
type Status string

const (
	StatusPublished  Status = "PUBLISHED"
	StatusModified   Status = "MODIFIED"
	StatusDraft      Status = "DRAFT"
	StatusArchived   Status = "ARCHIVED"
	StatusProcessing Status = "PROCESSING"
	StatusUnknown    Status = "UNKNOWN"
)

// Metadata is the raw record an inventory source supplies for a path
type Metadata map[string]interface{}

// ContentPath is a normalized path together with its publish status
type ContentPath struct {
	Path   string `json:"path" yaml:"path"`
	Status Status `json:"status" yaml:"status"`
}

// IsPublished reports whether the content is live. Unknown or empty
// statuses count as unpublished.
func (c ContentPath) IsPublished() bool {
	return c.Status == StatusPublished
}

// StatusParser derives a Status from upstream metadata
type StatusParser func(Metadata) Status

// Index maps normalized content paths to their publish status. It is filled
// once before analysis starts and only read afterwards.
type Index struct {
	mu          sync.RWMutex
	entries     map[string]ContentPath
	children    map[string][]string
	parseStatus StatusParser
}

// Option configures an Index
type Option func(*Index)

// WithStatusParser replaces the default metadata parser
func WithStatusParser(parser StatusParser) Option {
	return func(idx *Index) {
		if parser != nil {
			idx.parseStatus = parser
		}
	}
}

// New creates an empty index
func New(opts ...Option) *Index {
	idx := &Index{
		entries:     make(map[string]ContentPath),
		children:    make(map[string][]string),
		parseStatus: ParseContentStatus,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// InsertContentPath inserts or overwrites the entry stored under path.
// The key is used exactly as given; callers normalize beforehand.
func (idx *Index) InsertContentPath(path string, meta Metadata) {
	entry := ContentPath{Path: path, Status: idx.parseStatus(meta)}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.entries[path]; !exists {
		if parent := pathutil.GetParentPath(path); parent != "" {
			idx.children[parent] = append(idx.children[parent], path)
		}
	}
	idx.entries[path] = entry
}

// Find returns the entry stored under path, or nil. There is no prefix or
// fuzzy matching.
func (idx *Index) Find(path string) *ContentPath {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.entries[path]
	if !ok {
		return nil
	}
	return &entry
}

// Children returns the indexed entries whose parent is exactly parent,
// sorted by path.
func (idx *Index) Children(parent string) []ContentPath {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	paths := idx.children[strings.TrimRight(parent, "/")]
	result := make([]ContentPath, 0, len(paths))
	for _, p := range paths {
		result = append(result, idx.entries[p])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// Len returns the number of indexed paths
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
