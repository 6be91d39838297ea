package nl2sql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duckask/duckask/internal/schema"
	"github.com/duckask/duckask/internal/sqlcheck"
)

func testSchema(t *testing.T) schema.Descriptor {
	t.Helper()
	descriptor, err := schema.New("indian_desserts", []schema.ColumnMeta{
		{Name: "name", Type: schema.TypeText, Example: "Gulab Jamun"},
		{Name: "region", Type: schema.TypeText},
	})
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return descriptor
}

func TestOpenAIGeneratorSanitizesResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt = payload.Messages[len(payload.Messages)-1].Content

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```sql\nSELECT name FROM indian_desserts;\n```"}},
			},
		})
	}))
	defer server.Close()

	generator, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator() error = %v", err)
	}

	candidate, err := generator.Generate(context.Background(), Request{
		Question: "list the desserts",
		Schema:   testSchema(t),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if candidate.SQL != "SELECT name FROM indian_desserts" {
		t.Fatalf("SQL = %q", candidate.SQL)
	}
	if candidate.Provider != "openai-compatible" || candidate.Model != "test-model" {
		t.Fatalf("candidate = %+v", candidate)
	}
	if !strings.Contains(capturedPrompt, "indian_desserts") || !strings.Contains(capturedPrompt, "name (TEXT)") {
		t.Fatalf("prompt missing schema description:\n%s", capturedPrompt)
	}
	if strings.Contains(capturedPrompt, "rejected") {
		t.Fatal("first attempt should carry no feedback")
	}
}

func TestOpenAIGeneratorCarriesFeedback(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &payload)
		capturedPrompt = payload.Messages[len(payload.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "SELECT region FROM indian_desserts"}}},
		})
	}))
	defer server.Close()

	generator, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator() error = %v", err)
	}

	feedback := sqlcheck.Reason{
		Kind:            sqlcheck.KindUndefinedColumn,
		OffendingColumn: "area",
		Message:         `column "area" doesn't exist; valid columns are [name, region]`,
	}
	if _, err := generator.Generate(context.Background(), Request{
		Question: "desserts by area",
		Schema:   testSchema(t),
		Feedback: &feedback,
	}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, feedback.Message) {
		t.Fatalf("prompt should carry the rejection reason:\n%s", capturedPrompt)
	}
}

func TestOpenAIGeneratorErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"empty choices", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}},
		{"unusable content", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]string{"content": "no query for you"}}},
			})
		}},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			generator, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
			if err != nil {
				t.Fatalf("NewOpenAIGenerator() error = %v", err)
			}
			if _, err := generator.Generate(context.Background(), Request{Question: "q", Schema: testSchema(t)}); err == nil {
				t.Fatal("Generate() should fail")
			}
		})
	}
}

func TestNewOpenAIGeneratorValidatesConfig(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("missing base URL should fail")
	}
	if _, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("missing api key should fail")
	}
}
