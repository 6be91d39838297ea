package config

import (
	"log/slog"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("duckask-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Store.Path != "duckask.db" {
		t.Fatalf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Store.RowLimit != 200 {
		t.Fatalf("Store.RowLimit = %d", cfg.Store.RowLimit)
	}
	if cfg.AI.Provider != "openai" {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.Assist.MaxAttempts != 3 {
		t.Fatalf("Assist.MaxAttempts = %d", cfg.Assist.MaxAttempts)
	}
	if cfg.Assist.StrictTypes {
		t.Fatal("Assist.StrictTypes should default to false")
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("duckask-api", mapLookup(map[string]string{"DUCKASK_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	cfg, err := Load("duckask-api", mapLookup(map[string]string{
		"DUCKASK_HTTP_ADDR":              ":9999",
		"DUCKASK_DB_PATH":                "/data/desserts.db",
		"DUCKASK_SCHEMA_PATH":            "/data/desserts.json",
		"DUCKASK_SCHEMA_TABLE":           "desserts",
		"DUCKASK_AI_PROVIDER":            "gemini",
		"DUCKASK_AI_MODEL":               "gemini-2.5-flash",
		"DUCKASK_AI_TIMEOUT":             "30s",
		"DUCKASK_ASSIST_MAX_ATTEMPTS":    "5",
		"DUCKASK_ASSIST_STRICT_TYPES":    "true",
		"DUCKASK_ASSIST_EXECUTE_TIMEOUT": "2s",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Store.Path != "/data/desserts.db" {
		t.Fatalf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Schema.Table != "desserts" {
		t.Fatalf("Schema.Table = %q", cfg.Schema.Table)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.Assist.MaxAttempts != 5 || !cfg.Assist.StrictTypes || cfg.Assist.ExecuteTimeout != 2*time.Second {
		t.Fatalf("Assist = %+v", cfg.Assist)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
	}{
		{"invalid profile", map[string]string{"DUCKASK_PROFILE": "staging"}},
		{"invalid provider", map[string]string{"DUCKASK_AI_PROVIDER": "anthropic"}},
		{"invalid duration", map[string]string{"DUCKASK_AI_TIMEOUT": "soon"}},
		{"invalid int", map[string]string{"DUCKASK_ASSIST_MAX_ATTEMPTS": "many"}},
		{"zero attempts", map[string]string{"DUCKASK_ASSIST_MAX_ATTEMPTS": "0"}},
		{"invalid log level", map[string]string{"DUCKASK_LOG_LEVEL": "loud"}},
		{"empty db path", map[string]string{"DUCKASK_DB_PATH": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load("duckask-api", mapLookup(tc.values)); err == nil {
				t.Fatal("Load() should fail")
			}
		})
	}
}
