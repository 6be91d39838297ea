package nl2sql

import (
	"regexp"
	"strings"
)

var (
	leadingLabelPattern = regexp.MustCompile(`(?i)^\s*(sqlite|sql)\b[:\s]*`)
	selectPattern       = regexp.MustCompile(`(?i)\bSELECT\b`)
)

// sanitizeSQL strips the artifacts language models wrap around query text:
// markdown fences, "sql"/"sqlite" labels, trailing semicolons, and stray
// prose before the query itself.
func sanitizeSQL(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```sql")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	text = leadingLabelPattern.ReplaceAllString(text, "")
	text = strings.TrimRight(text, "; \n\t")

	if !strings.HasPrefix(strings.ToUpper(text), "SELECT") {
		loc := selectPattern.FindStringIndex(text)
		if loc == nil {
			return ""
		}
		text = text[loc[0]:]
	}
	return strings.TrimSpace(text)
}
