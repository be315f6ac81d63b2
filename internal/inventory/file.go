package inventory

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eoinhurrell/cfpaths/internal/errors"
	"github.com/eoinhurrell/cfpaths/internal/index"
)

// FileSource reads an inventory document. YAML and JSON are both accepted,
// either as a bare list or under an "items" key:
//
//	items:
//	  - path: /content/dam/site/a.jpg
//	    status: PUBLISHED
//	  - /content/dam/site/b.jpg
type FileSource struct {
	path string
}

// NewFileSource creates a source for the document at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements Source
func (s *FileSource) Load(ctx context.Context, fn func(string, index.Metadata) error) error {
	file, err := os.Open(s.path)
	if err != nil {
		return openError(s.path, err)
	}
	defer file.Close()

	if err := Decode(ctx, file, fn); err != nil {
		if stderrors.Is(err, ErrMalformed) {
			return errors.NewParseError(s.path, err)
		}
		return err
	}
	return nil
}

func openError(path string, err error) error {
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.NewFileNotFoundError(path, "The inventory does not exist. Check the --inventory flag or the 'inventory' key in cfpaths.yaml.")
	case stderrors.Is(err, fs.ErrPermission):
		return errors.NewPermissionError(path, "inventory.load")
	}
	return fmt.Errorf("opening inventory %s: %w", path, err)
}

// Decode parses an inventory document from r
func Decode(ctx context.Context, r io.Reader, fn func(string, index.Metadata) error) error {
	var doc interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var items []interface{}
	switch v := doc.(type) {
	case nil:
		return nil
	case []interface{}:
		items = v
	case map[string]interface{}:
		list, ok := v["items"].([]interface{})
		if !ok {
			return fmt.Errorf("%w: expected an \"items\" list", ErrMalformed)
		}
		items = list
	default:
		return fmt.Errorf("%w: unexpected document type %T", ErrMalformed, doc)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch v := item.(type) {
		case string:
			if err := fn(v, nil); err != nil {
				return err
			}
		case map[string]interface{}:
			path, _ := v["path"].(string)
			if path == "" {
				return fmt.Errorf("%w: item %d has no path", ErrMalformed, i)
			}
			meta := make(index.Metadata, len(v))
			for key, value := range v {
				if key != "path" {
					meta[key] = value
				}
			}
			if err := fn(path, meta); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: item %d has unexpected type %T", ErrMalformed, i, item)
		}
	}
	return nil
}
