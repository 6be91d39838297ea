package sqlcheck

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindSyntax          Kind = "syntax"
	KindUndefinedColumn Kind = "undefined_column"
	KindTypeMismatch    Kind = "type_mismatch"
	KindExecution       Kind = "execution"
)

// Reason describes why a candidate query was rejected. It doubles as the
// feedback payload handed back to the generator on the next attempt.
type Reason struct {
	Kind            Kind   `json:"kind"`
	OffendingColumn string `json:"offending_column,omitempty"`
	Message         string `json:"message"`
	Detail          string `json:"detail,omitempty"`
}

func (r Reason) String() string {
	if r.Detail == "" {
		return r.Message
	}
	return r.Message + ": " + r.Detail
}

type Verdict struct {
	Valid  bool    `json:"valid"`
	Reason *Reason `json:"reason,omitempty"`
}

func valid() Verdict {
	return Verdict{Valid: true}
}

func invalid(reason Reason) Verdict {
	return Verdict{Reason: &reason}
}

func syntaxReason(detail string) Reason {
	return Reason{Kind: KindSyntax, Message: "syntax error", Detail: detail}
}

func undefinedColumnReason(column string, validColumns []string) Reason {
	return Reason{
		Kind:            KindUndefinedColumn,
		OffendingColumn: column,
		Message:         fmt.Sprintf("column %q doesn't exist; valid columns are [%s]", column, strings.Join(validColumns, ", ")),
	}
}

// ExecutionReason wraps a database error so it can drive the regenerate loop
// the same way a validation failure does.
func ExecutionReason(err error) Reason {
	return Reason{Kind: KindExecution, Message: "query execution failed", Detail: err.Error()}
}
