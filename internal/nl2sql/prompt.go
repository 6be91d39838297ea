package nl2sql

import (
	"fmt"
	"strings"
)

const systemPrompt = "You convert natural language questions into a single SQL query " +
	"against one DuckDB table. " +
	"Return ONLY SQL. No markdown, no explanation, no trailing semicolon."

// buildUserPrompt renders the schema, the question, and any validator
// feedback from the previous attempt into the model's user message.
func buildUserPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Table: %s\nColumns:\n", req.Schema.TableName())
	for _, column := range req.Schema.ColumnMetas() {
		fmt.Fprintf(&b, "- %s (%s)", column.Name, column.Type)
		if column.Example != nil {
			fmt.Fprintf(&b, ", e.g. %v", column.Example)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nQuestion:\n%s\n", strings.TrimSpace(req.Question))

	if req.Feedback != nil {
		fmt.Fprintf(&b, "\nYour previous query was rejected: %s\nFix that issue and return a corrected query.\n", req.Feedback.String())
	}

	b.WriteString("\nRules:\n- Use only the listed table and columns.\n- Output a single SELECT query only.")
	return b.String()
}
