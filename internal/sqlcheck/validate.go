package sqlcheck

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/duckask/duckask/internal/schema"
)

// Options controls optional strictness of Validate.
type Options struct {
	// StrictTypes also rejects comparisons whose literal cannot coerce to
	// the declared column type, instead of leaving them to execution.
	StrictTypes bool
}

type clause struct {
	name   string
	tokens []token
}

// Validate statically decides whether a candidate query can plausibly succeed
// against the described schema, without executing it. Undefined columns are
// reported first-encountered in select, filter, grouping, ordering order, so
// the loop corrects one issue at a time. Deterministic and side-effect free.
func Validate(candidate string, desc schema.Descriptor, opts Options) Verdict {
	tokens, err := lex(candidate)
	if err != nil {
		return invalid(syntaxReason(err.Error()))
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].symbol(";") {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return invalid(syntaxReason("empty query"))
	}
	if !tokens[0].keyword("SELECT") {
		return invalid(syntaxReason(fmt.Sprintf("query must start with SELECT, got %q", tokens[0].text)))
	}
	if detail := checkParens(tokens); detail != "" {
		return invalid(syntaxReason(detail))
	}

	clauses, detail := splitClauses(tokens[1:])
	if detail != "" {
		return invalid(syntaxReason(detail))
	}

	selectList := clauses["select"]
	if len(selectList) == 0 {
		return invalid(syntaxReason("empty select list"))
	}
	fromClause, ok := clauses["from"]
	if !ok {
		return invalid(syntaxReason("missing FROM clause"))
	}

	tableAlias, detail := checkFromClause(fromClause, desc)
	if detail != "" {
		return invalid(syntaxReason(detail))
	}

	refs, aliases := collectSelectRefs(selectList)
	scope := referenceScope{desc: desc, tableAlias: tableAlias, selectAliases: aliases}

	ordered := []clause{
		{"select", nil}, // refs already collected
		{"where", clauses["where"]},
		{"group by", clauses["group by"]},
		{"having", clauses["having"]},
		{"order by", clauses["order by"]},
	}
	for _, c := range ordered {
		clauseRefs := refs
		if c.name != "select" {
			clauseRefs = collectRefs(c.tokens)
		}
		for _, ref := range clauseRefs {
			if reason, bad := scope.check(ref, c.name != "select"); bad {
				return invalid(reason)
			}
		}
	}

	if opts.StrictTypes {
		for _, name := range []string{"where", "having"} {
			if reason, bad := checkLiteralTypes(clauses[name], scope); bad {
				return invalid(reason)
			}
		}
	}
	return valid()
}

func checkParens(tokens []token) string {
	depth := 0
	for _, t := range tokens {
		switch {
		case t.symbol("("):
			depth++
		case t.symbol(")"):
			depth--
			if depth < 0 {
				return "unbalanced parentheses"
			}
		}
	}
	if depth != 0 {
		return "unbalanced parentheses"
	}
	return ""
}

var clauseOrder = []string{"select", "from", "where", "group by", "having", "order by", "limit"}

// splitClauses cuts the token stream after SELECT into top-level clauses.
// Clause keywords inside parentheses (subexpressions) are left alone.
func splitClauses(tokens []token) (map[string][]token, string) {
	clauses := map[string][]token{"select": nil}
	current := "select"
	currentIndex := 0
	depth := 0

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.symbol("("):
			depth++
		case t.symbol(")"):
			depth--
		}
		if depth > 0 || t.kind != tokenIdent || t.quoted {
			clauses[current] = append(clauses[current], t)
			continue
		}

		name := ""
		skip := 0
		switch {
		case t.keyword("FROM"):
			name = "from"
		case t.keyword("WHERE"):
			name = "where"
		case t.keyword("GROUP"), t.keyword("ORDER"):
			if i+1 >= len(tokens) || !tokens[i+1].keyword("BY") {
				return nil, fmt.Sprintf("%s must be followed by BY", strings.ToUpper(t.text))
			}
			name = strings.ToLower(t.text) + " by"
			skip = 1
		case t.keyword("HAVING"):
			name = "having"
		case t.keyword("LIMIT"):
			name = "limit"
		}
		if name == "" {
			clauses[current] = append(clauses[current], t)
			continue
		}

		if _, seen := clauses[name]; seen {
			return nil, fmt.Sprintf("duplicate %s clause", strings.ToUpper(name))
		}
		nameIndex := clausePosition(name)
		if nameIndex < currentIndex {
			return nil, fmt.Sprintf("%s clause out of order", strings.ToUpper(name))
		}
		clauses[name] = []token{}
		current = name
		currentIndex = nameIndex
		i += skip
	}
	return clauses, ""
}

func clausePosition(name string) int {
	for i, candidate := range clauseOrder {
		if candidate == name {
			return i
		}
	}
	return -1
}

// checkFromClause validates the single-table FROM shape: table [AS] [alias].
func checkFromClause(tokens []token, desc schema.Descriptor) (alias string, detail string) {
	if len(tokens) == 0 {
		return "", "missing table name after FROM"
	}
	if tokens[0].kind != tokenIdent || isKeyword(tokens[0]) {
		return "", fmt.Sprintf("expected table name after FROM, got %q", tokens[0].text)
	}
	tableName := tokens[0].text
	rest := tokens[1:]
	if len(rest) > 0 && rest[0].keyword("AS") {
		rest = rest[1:]
		if len(rest) == 0 {
			return "", "missing alias after AS"
		}
	}
	if len(rest) > 0 {
		if rest[0].kind != tokenIdent || isKeyword(rest[0]) {
			return "", fmt.Sprintf("unexpected token %q in FROM clause", rest[0].text)
		}
		alias = rest[0].text
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return "", "only single-table queries are supported"
	}
	if !strings.EqualFold(tableName, desc.TableName()) {
		return "", fmt.Sprintf("unknown table %q; the queryable table is %q", tableName, desc.TableName())
	}
	return alias, ""
}

type columnRef struct {
	qualifier string
	name      string
}

type referenceScope struct {
	desc          schema.Descriptor
	tableAlias    string
	selectAliases map[string]struct{}
}

// check resolves one column reference. Select-list aliases are only legal in
// the later clauses (grouping, ordering, having).
func (s referenceScope) check(ref columnRef, allowAliases bool) (Reason, bool) {
	if ref.qualifier != "" &&
		!strings.EqualFold(ref.qualifier, s.desc.TableName()) &&
		!strings.EqualFold(ref.qualifier, s.tableAlias) {
		full := ref.qualifier + "." + ref.name
		return Reason{
			Kind:            KindUndefinedColumn,
			OffendingColumn: full,
			Message:         fmt.Sprintf("unknown table qualifier %q; the queryable table is %q", ref.qualifier, s.desc.TableName()),
		}, true
	}
	if s.desc.Has(ref.name) {
		return Reason{}, false
	}
	if allowAliases && ref.qualifier == "" {
		if _, ok := s.selectAliases[strings.ToLower(ref.name)]; ok {
			return Reason{}, false
		}
	}
	return undefinedColumnReason(ref.name, s.desc.Columns()), true
}

// collectSelectRefs walks the select list gathering column references in
// left-to-right order and the aliases it defines. Function names (identifier
// followed by an open paren) are not columns; neither are AS aliases nor bare
// aliases trailing an expression.
func collectSelectRefs(tokens []token) ([]columnRef, map[string]struct{}) {
	refs := make([]columnRef, 0, len(tokens))
	aliases := map[string]struct{}{}

	prevWasExpr := false
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.symbol(","):
			prevWasExpr = false
			continue
		case t.kind != tokenIdent:
			prevWasExpr = t.kind == tokenNumber || t.kind == tokenString || t.symbol(")") || t.symbol("*")
			continue
		case t.keyword("AS"):
			if i+1 < len(tokens) && tokens[i+1].kind == tokenIdent {
				aliases[strings.ToLower(tokens[i+1].text)] = struct{}{}
				i++
			}
			prevWasExpr = true
			continue
		case isKeyword(t):
			prevWasExpr = false
			continue
		}

		ref, width, isRef := scanRef(tokens, i)
		if !isRef {
			// function name
			prevWasExpr = false
			i += width - 1
			continue
		}
		if prevWasExpr && ref.qualifier == "" && !nextIsSymbol(tokens, i+width, ".", "(") {
			// bare alias: SELECT name n FROM ...
			aliases[strings.ToLower(ref.name)] = struct{}{}
			i += width - 1
			continue
		}
		refs = append(refs, ref)
		prevWasExpr = true
		i += width - 1
	}
	return refs, aliases
}

// collectRefs gathers column references from a non-select clause.
func collectRefs(tokens []token) []columnRef {
	refs := make([]columnRef, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind != tokenIdent || isKeyword(t) {
			continue
		}
		ref, width, isRef := scanRef(tokens, i)
		i += width - 1
		if isRef {
			refs = append(refs, ref)
		}
	}
	return refs
}

// scanRef reads one identifier (possibly qualified) starting at position i.
// Returns isRef=false for function names and wildcard projections.
func scanRef(tokens []token, i int) (ref columnRef, width int, isRef bool) {
	if i+1 < len(tokens) && tokens[i+1].symbol("(") {
		return columnRef{}, 1, false
	}
	if i+2 < len(tokens) && tokens[i+1].symbol(".") {
		if tokens[i+2].symbol("*") {
			return columnRef{}, 3, false
		}
		if tokens[i+2].kind == tokenIdent {
			if i+3 < len(tokens) && tokens[i+3].symbol("(") {
				return columnRef{}, 4, false
			}
			return columnRef{qualifier: tokens[i].text, name: tokens[i+2].text}, 3, true
		}
	}
	return columnRef{name: tokens[i].text}, 1, true
}

func nextIsSymbol(tokens []token, i int, symbols ...string) bool {
	if i >= len(tokens) {
		return false
	}
	for _, s := range symbols {
		if tokens[i].symbol(s) {
			return true
		}
	}
	return false
}

var comparisonSymbols = map[string]struct{}{
	"=": {}, "<": {}, ">": {}, "<=": {}, ">=": {}, "!=": {}, "<>": {},
}

// checkLiteralTypes scans a filter clause for `column <cmp> literal` pairs and
// rejects literals that cannot coerce to the declared column type.
func checkLiteralTypes(tokens []token, scope referenceScope) (Reason, bool) {
	for i := 1; i+1 < len(tokens); i++ {
		if _, ok := comparisonSymbols[tokens[i].text]; !ok || tokens[i].kind != tokenSymbol {
			continue
		}
		left, right := tokens[i-1], tokens[i+1]
		if ref, lit, ok := refAndLiteral(left, right); ok {
			if reason, bad := checkLiteral(ref, lit, scope); bad {
				return reason, true
			}
		} else if ref, lit, ok := refAndLiteral(right, left); ok {
			if reason, bad := checkLiteral(ref, lit, scope); bad {
				return reason, true
			}
		}
	}
	return Reason{}, false
}

func refAndLiteral(refTok, litTok token) (string, token, bool) {
	if refTok.kind != tokenIdent || isKeyword(refTok) {
		return "", token{}, false
	}
	if litTok.kind != tokenNumber && litTok.kind != tokenString {
		return "", token{}, false
	}
	return refTok.text, litTok, true
}

func checkLiteral(column string, lit token, scope referenceScope) (Reason, bool) {
	columnType, err := scope.desc.ColumnType(column)
	if err != nil {
		// Undefined columns are reported by the reference pass.
		return Reason{}, false
	}
	switch columnType {
	case schema.TypeInteger, schema.TypeReal:
		if lit.kind == tokenString {
			if _, convErr := strconv.ParseFloat(strings.TrimSpace(lit.text), 64); convErr != nil {
				return Reason{
					Kind:            KindTypeMismatch,
					OffendingColumn: column,
					Message:         fmt.Sprintf("literal %q is not compatible with %s column %q", lit.text, columnType, column),
				}, true
			}
		}
	case schema.TypeText:
		if lit.kind == tokenNumber {
			return Reason{
				Kind:            KindTypeMismatch,
				OffendingColumn: column,
				Message:         fmt.Sprintf("numeric literal %s compared against TEXT column %q", lit.text, column),
			}, true
		}
	}
	return Reason{}, false
}
