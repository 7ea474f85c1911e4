package model

import "fmt"

// SchemaErrorKind classifies why a schema document could not be produced.
type SchemaErrorKind int

const (
	ErrIncomplete SchemaErrorKind = iota + 1
	ErrGrammar
	ErrDuplicateMultiplexor
)

func (k SchemaErrorKind) String() string {
	switch k {
	case ErrIncomplete:
		return "document incomplete"
	case ErrGrammar:
		return "grammar error"
	case ErrDuplicateMultiplexor:
		return "duplicate multiplexor definitions"
	default:
		return "schema error"
	}
}

// SchemaError is returned when no model can be built. Line is the 1-based
// source line or row when known, zero otherwise.
type SchemaError struct {
	Kind   SchemaErrorKind
	Detail string
	Line   int
}

func (e *SchemaError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Is matches any *SchemaError of the same kind, so callers can write
// errors.Is(err, &SchemaError{Kind: ErrGrammar}).
func (e *SchemaError) Is(target error) bool {
	t, ok := target.(*SchemaError)
	return ok && t.Kind == e.Kind
}
