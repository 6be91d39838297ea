package nl2sql

import (
	"context"

	"github.com/duckask/duckask/internal/schema"
	"github.com/duckask/duckask/internal/sqlcheck"
)

// Request carries one generation call: the user's question, the authoritative
// schema, and on retries the reason the previous candidate was rejected.
type Request struct {
	Question string
	Schema   schema.Descriptor
	Feedback *sqlcheck.Reason
}

// Candidate is one SQL string produced for a single attempt.
type Candidate struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Generator is the external language-model boundary. An error return means
// the service was unreachable or its response unusable; the controller treats
// that as fatal for the question, never as a retryable verdict.
type Generator interface {
	Generate(ctx context.Context, req Request) (Candidate, error)
}
