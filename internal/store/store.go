package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Result is an ordered sequence of rows returned by one execution.
type Result struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"-"`
}

// Store executes queries against the embedded single-file database. The
// handle is passed in explicitly; there is no package-level connection state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the single-file database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle, for injected fakes in tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Execute runs a single query and materializes its rows. Query text passes
// through unmodified apart from trailing-semicolon stripping and the optional
// row-limit wrapper.
func (s *Store) Execute(ctx context.Context, sqlText string, rowLimit int) (Result, error) {
	text := stripTrailingSemicolons(sqlText)
	if text == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	if rowLimit > 0 {
		text = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", text, rowLimit)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// LoadParquet materializes the given parquet files as a table, replacing any
// previous contents.
func (s *Store) LoadParquet(ctx context.Context, tableName string, paths []string) error {
	if strings.TrimSpace(tableName) == "" {
		return fmt.Errorf("table name is required")
	}
	if len(paths) == 0 {
		return fmt.Errorf("at least one parquet file is required")
	}
	loadSQL := fmt.Sprintf(
		`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)`,
		quoteIdent(tableName), quoteStringArray(paths),
	)
	if _, err := s.db.ExecContext(ctx, loadSQL); err != nil {
		return fmt.Errorf("load parquet into table %q: %w", tableName, err)
	}
	return nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
