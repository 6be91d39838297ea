package sqlcheck

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenString
	tokenSymbol
)

type token struct {
	kind   tokenKind
	text   string
	quoted bool
}

// keyword reports whether the token is the given unquoted SQL keyword.
func (t token) keyword(word string) bool {
	return t.kind == tokenIdent && !t.quoted && strings.EqualFold(t.text, word)
}

func (t token) symbol(s string) bool {
	return t.kind == tokenSymbol && t.text == s
}

var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "DISTINCT": {}, "ALL": {}, "AS": {}, "FROM": {},
	"WHERE": {}, "GROUP": {}, "BY": {}, "HAVING": {}, "ORDER": {},
	"LIMIT": {}, "OFFSET": {}, "AND": {}, "OR": {}, "NOT": {}, "IN": {},
	"IS": {}, "NULL": {}, "LIKE": {}, "ILIKE": {}, "BETWEEN": {},
	"CASE": {}, "WHEN": {}, "THEN": {}, "ELSE": {}, "END": {},
	"ASC": {}, "DESC": {}, "TRUE": {}, "FALSE": {}, "ESCAPE": {},
	"COLLATE": {}, "NULLS": {}, "FIRST": {}, "LAST": {},
	"JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {}, "OUTER": {},
	"CROSS": {}, "ON": {}, "USING": {},
}

func isKeyword(t token) bool {
	if t.kind != tokenIdent || t.quoted {
		return false
	}
	_, ok := sqlKeywords[strings.ToUpper(t.text)]
	return ok
}

// lex splits a candidate query into tokens. It is deliberately shallow: just
// enough structure to find identifiers in column position and to catch gross
// malformation (unterminated literals, stray characters).
func lex(input string) ([]token, error) {
	runes := []rune(input)
	tokens := make([]token, 0, 32)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end := strings.Index(string(runes[i+2:]), "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment")
			}
			i += 2 + end + 2
		case r == '\'':
			text, next, err := scanString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: text})
			i = next
		case r == '"' || r == '`':
			text, next, err := scanQuotedIdent(runes, i, r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenIdent, text: text, quoted: true})
			i = next
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '$') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i])})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E' ||
				((runes[i] == '+' || runes[i] == '-') && (runes[i-1] == 'e' || runes[i-1] == 'E'))) {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[start:i])})
		default:
			if sym, width := scanSymbol(runes, i); width > 0 {
				tokens = append(tokens, token{kind: tokenSymbol, text: sym})
				i += width
				continue
			}
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return tokens, nil
}

func scanString(runes []rune, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(runes) {
		if runes[i] == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteRune(runes[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func scanQuotedIdent(runes []rune, start int, quote rune) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				b.WriteRune(quote)
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteRune(runes[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted identifier")
}

var twoCharSymbols = []string{"<=", ">=", "<>", "!=", "||"}

func scanSymbol(runes []rune, i int) (string, int) {
	if i+1 < len(runes) {
		pair := string(runes[i : i+2])
		for _, sym := range twoCharSymbols {
			if pair == sym {
				return sym, 2
			}
		}
	}
	switch runes[i] {
	case '(', ')', ',', '.', '*', '=', '<', '>', '+', '-', '/', '%', ';', '?':
		return string(runes[i]), 1
	}
	return "", 0
}
