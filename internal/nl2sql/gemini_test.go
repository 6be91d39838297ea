package nl2sql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGeneratorSanitizesResponse(t *testing.T) {
	var capturedPath, capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.Unmarshal(body, &payload)
		capturedPrompt = payload.Contents[0].Parts[0].Text

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "```sql\nSELECT name FROM indian_desserts\n```"}}}},
			},
		})
	}))
	defer server.Close()

	generator, err := NewGeminiGenerator(GeminiConfig{BaseURL: server.URL, APIKey: "k", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("NewGeminiGenerator() error = %v", err)
	}

	candidate, err := generator.Generate(context.Background(), Request{Question: "list desserts", Schema: testSchema(t)})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if candidate.SQL != "SELECT name FROM indian_desserts" {
		t.Fatalf("SQL = %q", candidate.SQL)
	}
	if candidate.Provider != "gemini" {
		t.Fatalf("Provider = %q", candidate.Provider)
	}
	if !strings.Contains(capturedPath, "models/gemini-2.5-flash") {
		t.Fatalf("path = %q", capturedPath)
	}
	if !strings.Contains(capturedPrompt, "region (TEXT)") {
		t.Fatalf("prompt missing schema description:\n%s", capturedPrompt)
	}
}

func TestGeminiGeneratorEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	generator, err := NewGeminiGenerator(GeminiConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewGeminiGenerator() error = %v", err)
	}
	if _, err := generator.Generate(context.Background(), Request{Question: "q", Schema: testSchema(t)}); err == nil {
		t.Fatal("Generate() should fail on empty candidates")
	}
}

func TestNewGeminiGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiGenerator(GeminiConfig{}); err == nil {
		t.Fatal("missing api key should fail")
	}
}
