package jsonsql

import "fmt"

// ErrorKind classifies a compile failure so callers can distinguish
// policy refusals from malformed input without parsing messages.
type ErrorKind int

const (
	// ErrPolicyViolation means a named entity (query verb, item, table,
	// connection, join type, column) is not admitted by the policy.
	ErrPolicyViolation ErrorKind = iota
	// ErrStructural means a required field is missing or a field has the
	// wrong shape (e.g. items is not a list).
	ErrStructural
	// ErrComparison means an unknown comparator, wrong BETWEEN/IN arity,
	// or an operand that does not match the column's declared kind.
	ErrComparison
	// ErrBooleanStructure means an AND/OR group payload is not a list or
	// has fewer than two children.
	ErrBooleanStructure
	// ErrInjectionRejected means a raw join ON condition matched the
	// unsafe-pattern screen.
	ErrInjectionRejected
	// ErrUnclassified wraps any unexpected internal fault with a generic
	// message. It never carries internal state.
	ErrUnclassified
)

// String returns the snake_case name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrPolicyViolation:
		return "policy_violation"
	case ErrStructural:
		return "structural_error"
	case ErrComparison:
		return "comparison_error"
	case ErrBooleanStructure:
		return "boolean_structure_error"
	case ErrInjectionRejected:
		return "injection_rejected"
	case ErrUnclassified:
		return "unclassified_failure"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind as its snake_case name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Error is the failure result of a compile call. Entity names the
// offending value when one exists (a denied table name, an unknown
// comparator) so callers can build suggestions from it.
type Error struct {
	Kind    ErrorKind
	Entity  string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// newError builds an Error with a formatted message.
func newError(kind ErrorKind, entity, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsError returns err as a *Error, wrapping foreign errors as
// unclassified failures so the public surface is uniform.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{
		Kind:    ErrUnclassified,
		Message: "internal error during compilation",
	}
}
