package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Introspect builds a Descriptor from a live database handle by reading the
// table's column metadata. DuckDB declared types are folded onto the
// TEXT/INTEGER/REAL enumeration; types outside it fail the load.
func Introspect(ctx context.Context, db *sql.DB, tableName string) (Descriptor, error) {
	if db == nil {
		return Descriptor{}, fmt.Errorf("db handle is required")
	}
	if strings.TrimSpace(tableName) == "" {
		return Descriptor{}, fmt.Errorf("table name is required")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`,
		tableName,
	)
	if err != nil {
		return Descriptor{}, fmt.Errorf("introspect table %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnMeta
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return Descriptor{}, fmt.Errorf("scan column metadata: %w", err)
		}
		columnType, err := parseType(baseDeclaredType(declared))
		if err != nil {
			return Descriptor{}, fmt.Errorf("table %q column %q: %w", tableName, name, err)
		}
		columns = append(columns, ColumnMeta{Name: name, Type: columnType})
	}
	if err := rows.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("iterate column metadata: %w", err)
	}
	if len(columns) == 0 {
		return Descriptor{}, fmt.Errorf("table %q has no columns", tableName)
	}
	return New(tableName, columns)
}

// baseDeclaredType drops any precision suffix, e.g. DECIMAL(10,2) -> DECIMAL.
func baseDeclaredType(declared string) string {
	if index := strings.IndexByte(declared, '('); index >= 0 {
		return strings.TrimSpace(declared[:index])
	}
	return strings.TrimSpace(declared)
}
