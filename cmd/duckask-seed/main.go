// duckask-seed writes the bundled sample dataset into the single-file
// database and emits the matching schema document, giving a fresh checkout
// something to ask questions about.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/duckask/duckask/internal/dataset"
	"github.com/duckask/duckask/internal/store"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("DUCKASK_DB_PATH", "duckask.db"), "path of the database file to seed")
	schemaPath := flag.String("schema", envOr("DUCKASK_SCHEMA_PATH", "schema.json"), "path of the schema document to write")
	seed := flag.Int64("seed", 1, "random seed for the generated ratings")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rows := dataset.Generate(*seed)
	parquetPath := filepath.Join(os.TempDir(), "duckask-seed.parquet")
	if err := dataset.WriteParquetFile(parquetPath, rows); err != nil {
		logger.Error("failed to write dataset parquet", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = os.Remove(parquetPath) }()

	db, err := store.Open(*dbPath)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.LoadParquet(ctx, dataset.TableName, []string{parquetPath}); err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}
	if err := dataset.WriteSchemaFile(*schemaPath); err != nil {
		logger.Error("failed to write schema document", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seeded sample dataset",
		slog.String("db", *dbPath),
		slog.String("schema", *schemaPath),
		slog.String("table", dataset.TableName),
		slog.Int("rows", len(rows)),
	)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
