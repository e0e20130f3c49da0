package jsonsql

import "strings"

// aggregateFunctions are the SQL aggregate functions accepted as inline
// operands. Aggregates render as function-call text and never become
// placeholders.
var aggregateFunctions = map[string]struct{}{
	"MIN":   {},
	"MAX":   {},
	"SUM":   {},
	"AVG":   {},
	"COUNT": {},
}

// isColumnRef reports whether an operand should be treated as a
// reference to another column rather than a literal value.
//
// Without wildcard columns, a string is a column reference iff it is
// independently admitted as a column. With a "*" column entry the call
// becomes a heuristic: explicit entries win, denied names are literals,
// and surface syntax (pure digits, embedded spaces, true/false/null,
// matching quotes) marks a literal. The heuristic guesses intent from
// text shape; it is best-effort, not syntactic ground truth. Callers
// that need an exact literal/column distinction should avoid wildcard
// column configurations.
func (p *Policy) isColumnRef(operand interface{}) bool {
	value, ok := operand.(string)
	if !ok {
		return false
	}

	if !p.wildcardColumns() {
		return p.AllowColumn(value)
	}

	if p.denied.columns.contains(value) {
		return false
	}

	// Explicit non-wildcard entries always classify as columns.
	if _, ok := p.columns[value]; ok && value != Wildcard {
		return true
	}

	if looksLikeLiteral(value) {
		return false
	}

	return true
}

// looksLikeLiteral applies the wildcard-mode literal heuristics.
func looksLikeLiteral(value string) bool {
	if isAllDigits(value) {
		return true
	}
	if strings.Contains(value, " ") {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "false", "null":
		return true
	}
	if len(value) >= 2 {
		if value[0] == '\'' && value[len(value)-1] == '\'' {
			return true
		}
		if value[0] == '"' && value[len(value)-1] == '"' {
			return true
		}
	}
	return false
}

// isAllDigits reports whether s is non-empty and purely numeric.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// asAggregate returns the function name and argument of an aggregate
// operand. An operand is an aggregate iff it is a one-entry object whose
// key is a known aggregate function and whose argument classifies as a
// column reference.
func (p *Policy) asAggregate(operand interface{}) (fn string, arg string, ok bool) {
	m, isMap := operand.(map[string]interface{})
	if !isMap || len(m) != 1 {
		return "", "", false
	}
	for key, value := range m {
		if _, known := aggregateFunctions[key]; !known {
			return "", "", false
		}
		argument, isString := value.(string)
		if !isString || !p.isColumnRef(argument) {
			return "", "", false
		}
		return key, argument, true
	}
	return "", "", false
}
