// Package brokenpaths reads the list of broken content paths an audit run
// works through.
package brokenpaths

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eoinhurrell/cfpaths/internal/errors"
	"github.com/eoinhurrell/cfpaths/internal/pathutil"
)

// Fetcher supplies broken paths for a run
type Fetcher interface {
	FetchBrokenPaths(ctx context.Context) ([]string, error)
}

// FileSource reads broken paths from a file
type FileSource struct {
	path string
}

// NewFileSource creates a source for the file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file the source reads
func (s *FileSource) Path() string {
	return s.path
}

// FetchBrokenPaths implements Fetcher
func (s *FileSource) FetchBrokenPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.NewFileNotFoundError(s.path, "The broken path file does not exist. Check the --broken-paths flag or the 'broken_paths' key in cfpaths.yaml.")
	case stderrors.Is(err, fs.ErrPermission):
		return nil, errors.NewPermissionError(s.path, "brokenpaths.load")
	case err != nil:
		return nil, fmt.Errorf("reading broken paths %s: %w", s.path, err)
	}

	paths, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParseError(s.path, err)
	}
	return paths, nil
}

// Parse reads broken paths from r. A document starting with "[" or "-" is
// treated as a JSON/YAML list; anything else as one path per line, with
// blank lines and "#" comments skipped. Paths are normalized and input order
// is kept, duplicates included.
func Parse(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading broken paths: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []string{}, nil
	}

	if trimmed[0] == '[' || trimmed[0] == '-' {
		return parseList(trimmed)
	}
	return parseLines(trimmed)
}

func parseList(data []byte) ([]string, error) {
	var raw []string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing broken path list: %w", err)
	}

	paths := make([]string, 0, len(raw))
	for _, p := range raw {
		if normalized := pathutil.Normalize(p); normalized != "" {
			paths = append(paths, normalized)
		}
	}
	return paths, nil
}

func parseLines(data []byte) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, pathutil.Normalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning broken paths: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}
