package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnknownColumn is returned when a column lookup misses the descriptor.
var ErrUnknownColumn = errors.New("unknown column")

type Type string

const (
	TypeText    Type = "TEXT"
	TypeInteger Type = "INTEGER"
	TypeReal    Type = "REAL"
)

type ColumnMeta struct {
	Name    string
	Type    Type
	Example any
}

// Descriptor holds the authoritative metadata for the one queryable table.
// It is immutable after load and safe to share across concurrent questions.
type Descriptor struct {
	tableName string
	columns   []ColumnMeta
	byName    map[string]int
}

func (d Descriptor) TableName() string {
	return d.tableName
}

// Columns returns the column names in declaration order.
func (d Descriptor) Columns() []string {
	names := make([]string, len(d.columns))
	for i, column := range d.columns {
		names[i] = column.Name
	}
	return names
}

func (d Descriptor) ColumnMetas() []ColumnMeta {
	metas := make([]ColumnMeta, len(d.columns))
	copy(metas, d.columns)
	return metas
}

// Has reports whether the named column exists. Lookup is case-insensitive,
// matching the engine's identifier resolution.
func (d Descriptor) Has(name string) bool {
	_, ok := d.byName[strings.ToLower(name)]
	return ok
}

func (d Descriptor) ColumnType(name string) (Type, error) {
	index, ok := d.byName[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return d.columns[index].Type, nil
}

type documentColumn struct {
	Type    string `json:"type"`
	Example any    `json:"example"`
}

type document struct {
	TableName string                    `json:"table_name"`
	Columns   map[string]documentColumn `json:"columns"`
}

// Parse builds a Descriptor from the schema document format:
// {"table_name": ..., "columns": {name: {"type": ..., "example": ...}}}.
// Malformed input is fatal to startup, not to a single question.
func Parse(data []byte) (Descriptor, error) {
	var doc document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return Descriptor{}, fmt.Errorf("decode schema document: %w", err)
	}
	if strings.TrimSpace(doc.TableName) == "" {
		return Descriptor{}, fmt.Errorf("schema document: table_name is required")
	}
	if len(doc.Columns) == 0 {
		return Descriptor{}, fmt.Errorf("schema document: at least one column is required")
	}

	names := make([]string, 0, len(doc.Columns))
	for name := range doc.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]ColumnMeta, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return Descriptor{}, fmt.Errorf("schema document: empty column name")
		}
		columnType, err := parseType(doc.Columns[name].Type)
		if err != nil {
			return Descriptor{}, fmt.Errorf("schema document: column %q: %w", name, err)
		}
		columns = append(columns, ColumnMeta{
			Name:    name,
			Type:    columnType,
			Example: doc.Columns[name].Example,
		})
	}
	return New(doc.TableName, columns)
}

// Marshal renders d in the schema document format accepted by Parse.
func Marshal(d Descriptor) ([]byte, error) {
	doc := document{
		TableName: d.tableName,
		Columns:   make(map[string]documentColumn, len(d.columns)),
	}
	for _, column := range d.columns {
		doc.Columns[column.Name] = documentColumn{
			Type:    string(column.Type),
			Example: column.Example,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema document: %w", err)
	}
	return data, nil
}

func LoadFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read schema document %q: %w", path, err)
	}
	descriptor, err := Parse(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parse schema document %q: %w", path, err)
	}
	return descriptor, nil
}

// New builds a Descriptor from explicit column metadata, rejecting duplicate
// column names. Column order is preserved.
func New(tableName string, columns []ColumnMeta) (Descriptor, error) {
	if strings.TrimSpace(tableName) == "" {
		return Descriptor{}, fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return Descriptor{}, fmt.Errorf("at least one column is required")
	}

	byName := make(map[string]int, len(columns))
	owned := make([]ColumnMeta, len(columns))
	copy(owned, columns)
	for i, column := range owned {
		key := strings.ToLower(column.Name)
		if key == "" {
			return Descriptor{}, fmt.Errorf("empty column name at position %d", i)
		}
		if _, exists := byName[key]; exists {
			return Descriptor{}, fmt.Errorf("duplicate column %q", column.Name)
		}
		if !isValidType(column.Type) {
			return Descriptor{}, fmt.Errorf("column %q: unrecognized type %q", column.Name, column.Type)
		}
		byName[key] = i
	}

	return Descriptor{
		tableName: strings.TrimSpace(tableName),
		columns:   owned,
		byName:    byName,
	}, nil
}

func parseType(raw string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TEXT", "VARCHAR", "STRING":
		return TypeText, nil
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT", "INT64":
		return TypeInteger, nil
	case "REAL", "FLOAT", "DOUBLE", "DECIMAL", "FLOAT64":
		return TypeReal, nil
	default:
		return "", fmt.Errorf("unrecognized type %q", raw)
	}
}

func isValidType(t Type) bool {
	switch t {
	case TypeText, TypeInteger, TypeReal:
		return true
	default:
		return false
	}
}
