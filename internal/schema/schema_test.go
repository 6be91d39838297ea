package schema

import (
	"errors"
	"testing"
)

func TestParseBuildsDescriptor(t *testing.T) {
	doc := []byte(`{
		"table_name": "indian_desserts",
		"columns": {
			"name": {"type": "TEXT", "example": "Gulab Jamun"},
			"prep_time": {"type": "INTEGER", "example": 15},
			"rating": {"type": "REAL", "example": 4.5}
		}
	}`)

	descriptor, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if descriptor.TableName() != "indian_desserts" {
		t.Fatalf("TableName() = %q", descriptor.TableName())
	}
	if got := len(descriptor.Columns()); got != 3 {
		t.Fatalf("len(Columns()) = %d", got)
	}
	if !descriptor.Has("name") || !descriptor.Has("PREP_TIME") {
		t.Fatal("Has() should match columns case-insensitively")
	}

	columnType, err := descriptor.ColumnType("rating")
	if err != nil {
		t.Fatalf("ColumnType() error = %v", err)
	}
	if columnType != TypeReal {
		t.Fatalf("ColumnType(rating) = %q", columnType)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing table name", `{"columns": {"a": {"type": "TEXT"}}}`},
		{"no columns", `{"table_name": "t", "columns": {}}`},
		{"unrecognized type", `{"table_name": "t", "columns": {"a": {"type": "BLOB"}}}`},
		{"unknown field", `{"table_name": "t", "columns": {}, "extra": 1}`},
		{"not json", `table: t`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("Parse(%s) should fail", tc.doc)
			}
		})
	}
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New("t", []ColumnMeta{
		{Name: "region", Type: TypeText},
		{Name: "Region", Type: TypeText},
	})
	if err == nil {
		t.Fatal("New() should reject duplicate column names")
	}
}

func TestColumnTypeUnknownColumn(t *testing.T) {
	descriptor, err := New("t", []ColumnMeta{{Name: "name", Type: TypeText}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := descriptor.ColumnType("area"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("ColumnType(area) error = %v, want ErrUnknownColumn", err)
	}
}

func TestColumnsPreserveDeclarationOrder(t *testing.T) {
	descriptor, err := New("t", []ColumnMeta{
		{Name: "zeta", Type: TypeText},
		{Name: "alpha", Type: TypeInteger},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	columns := descriptor.Columns()
	if columns[0] != "zeta" || columns[1] != "alpha" {
		t.Fatalf("Columns() = %v", columns)
	}
}
