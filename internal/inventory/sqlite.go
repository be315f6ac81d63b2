package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/eoinhurrell/cfpaths/internal/index"
)

// DefaultQuery selects the inventory from the conventional content table.
// The first column must be the path; every other column becomes metadata
// under its column name. Rows with a NULL status fall back to published.
const DefaultQuery = "SELECT path, status, published FROM content"

// SQLiteSource reads the inventory from a SQLite database
type SQLiteSource struct {
	dsn   string
	query string
}

// SQLiteOption configures a SQLiteSource
type SQLiteOption func(*SQLiteSource)

// WithQuery overrides the inventory query
func WithQuery(query string) SQLiteOption {
	return func(s *SQLiteSource) {
		if query != "" {
			s.query = query
		}
	}
}

// NewSQLiteSource creates a source reading from the database at dsn
func NewSQLiteSource(dsn string, opts ...SQLiteOption) *SQLiteSource {
	s := &SQLiteSource{dsn: dsn, query: DefaultQuery}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Source
func (s *SQLiteSource) Load(ctx context.Context, fn func(string, index.Metadata) error) error {
	// the driver creates missing database files
	if !strings.HasPrefix(s.dsn, "file:") && s.dsn != ":memory:" {
		if _, err := os.Stat(s.dsn); err != nil {
			return openError(s.dsn, err)
		}
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("opening inventory database %s: %w", s.dsn, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return fmt.Errorf("querying inventory: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading inventory columns: %w", err)
	}
	if len(columns) == 0 {
		return fmt.Errorf("inventory query returned no columns")
	}

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return fmt.Errorf("scanning inventory row: %w", err)
		}

		path := asString(values[0])
		meta := make(index.Metadata, len(columns)-1)
		for i, column := range columns[1:] {
			value := values[i+1]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			meta[column] = value
		}
		if err := fn(path, meta); err != nil {
			return err
		}
	}
	return rows.Err()
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
