// Package dataset builds the bundled sample table used for local
// development: a deterministic set of Indian desserts, encodable to parquet
// for loading into the store.
package dataset

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/duckask/duckask/internal/schema"
)

const TableName = "indian_desserts"

type Dessert struct {
	DessertName    string  `parquet:"dessert_name"`
	Region         string  `parquet:"region"`
	MainIngredient string  `parquet:"main_ingredient"`
	PrepTime       int64   `parquet:"prep_time"`
	Rating         float64 `parquet:"rating"`
}

var baseDesserts = []Dessert{
	{DessertName: "Gulab Jamun", Region: "North", MainIngredient: "Khoya", PrepTime: 60},
	{DessertName: "Rasgulla", Region: "East", MainIngredient: "Chhena", PrepTime: 45},
	{DessertName: "Jalebi", Region: "North", MainIngredient: "Maida", PrepTime: 40},
	{DessertName: "Mysore Pak", Region: "South", MainIngredient: "Gram Flour", PrepTime: 35},
	{DessertName: "Kheer", Region: "North", MainIngredient: "Rice", PrepTime: 50},
	{DessertName: "Shrikhand", Region: "West", MainIngredient: "Yogurt", PrepTime: 30},
	{DessertName: "Sandesh", Region: "East", MainIngredient: "Chhena", PrepTime: 25},
	{DessertName: "Payasam", Region: "South", MainIngredient: "Vermicelli", PrepTime: 45},
	{DessertName: "Modak", Region: "West", MainIngredient: "Rice Flour", PrepTime: 55},
	{DessertName: "Barfi", Region: "North", MainIngredient: "Condensed Milk", PrepTime: 40},
	{DessertName: "Ladoo", Region: "North", MainIngredient: "Gram Flour", PrepTime: 35},
	{DessertName: "Rabri", Region: "North", MainIngredient: "Milk", PrepTime: 90},
	{DessertName: "Malpua", Region: "East", MainIngredient: "Maida", PrepTime: 45},
	{DessertName: "Kulfi", Region: "North", MainIngredient: "Milk", PrepTime: 240},
	{DessertName: "Ghevar", Region: "West", MainIngredient: "Maida", PrepTime: 75},
}

// Generate returns the sample rows with ratings drawn from the given seed.
// The same seed always yields the same dataset.
func Generate(seed int64) []Dessert {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Dessert, len(baseDesserts))
	copy(rows, baseDesserts)
	for i := range rows {
		rows[i].Rating = float64(int(rng.Float64()*20+30)) / 10.0
	}
	return rows
}

// EncodeParquet renders rows as a single parquet file in memory.
func EncodeParquet(rows []Dessert) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Dessert](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteParquetFile encodes rows and writes them to path, creating parent
// directories as needed.
func WriteParquetFile(path string, rows []Dessert) error {
	data, err := EncodeParquet(rows)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	return nil
}

// WriteSchemaFile emits the schema document for the sample table so the API
// can load it without introspecting the database.
func WriteSchemaFile(path string) error {
	desc, err := Descriptor()
	if err != nil {
		return err
	}
	data, err := schema.Marshal(desc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema document: %w", err)
	}
	return nil
}

// Descriptor returns the schema metadata for the sample table, with examples
// drawn from the first row.
func Descriptor() (schema.Descriptor, error) {
	first := baseDesserts[0]
	return schema.New(TableName, []schema.ColumnMeta{
		{Name: "dessert_name", Type: schema.TypeText, Example: first.DessertName},
		{Name: "region", Type: schema.TypeText, Example: first.Region},
		{Name: "main_ingredient", Type: schema.TypeText, Example: first.MainIngredient},
		{Name: "prep_time", Type: schema.TypeInteger, Example: first.PrepTime},
		{Name: "rating", Type: schema.TypeReal, Example: 4.5},
	})
}
