package jsonsql

import "strings"

// Condition is one node of a condition tree: either a comparison
// (column name mapped to a one-entry operator object) or a boolean group
// ("AND"/"OR" mapped to a list of child nodes). A node object must have
// exactly one key.
type Condition map[string]interface{}

// maxConditionDepth bounds condition-tree recursion so adversarially
// nested input cannot grow the stack without limit.
const maxConditionDepth = 32

// scalarComparators are the two-operand comparison operators.
var scalarComparators = map[string]struct{}{
	"=":  {},
	">":  {},
	"<":  {},
	">=": {},
	"<=": {},
	"<>": {},
	"!=": {},
}

// isConnective reports whether key is a boolean connective.
func isConnective(key string) bool {
	return key == "AND" || key == "OR"
}

// isComparator reports whether key is a scalar or special comparator.
func isComparator(key string) bool {
	if _, ok := scalarComparators[key]; ok {
		return true
	}
	return key == "BETWEEN" || key == "IN"
}

// sqlComparator normalizes a comparator for output. != always renders
// as <>.
func sqlComparator(comparator string) string {
	if comparator == "!=" {
		return "<>"
	}
	return comparator
}

// compileCondition compiles one condition node into a SQL boolean
// fragment and the parameters backing its placeholders, in placeholder
// order. Failures are returned, never partial output.
func (c *Compiler) compileCondition(node Condition, depth int) (string, []interface{}, *Error) {
	if depth > maxConditionDepth {
		return "", nil, newError(ErrStructural, "", "condition tree exceeds maximum depth of %d", maxConditionDepth)
	}

	if len(node) == 0 {
		return "", nil, newError(ErrStructural, "", "nothing to compute")
	}
	if len(node) != 1 {
		return "", nil, newError(ErrStructural, "", "condition node must have exactly one key, got %d", len(node))
	}

	var key string
	var payload interface{}
	for k, v := range node {
		key, payload = k, v
	}

	switch {
	case isConnective(key):
		return c.compileGroup(key, payload, depth)
	case c.policy.AllowColumn(key):
		return c.compileComparison(key, payload)
	case isComparator(key):
		// A bare operator is recognized but cannot root a condition.
		return "", nil, newError(ErrStructural, key, "operator %s cannot be a condition key", key)
	default:
		return "", nil, newError(ErrPolicyViolation, key, "invalid input: %s", key)
	}
}

// compileGroup compiles an AND/OR group. Children compile in order and
// the first failing child aborts the whole group with its own error.
func (c *Compiler) compileGroup(connective string, payload interface{}, depth int) (string, []interface{}, *Error) {
	children, ok := payload.([]interface{})
	if !ok {
		return "", nil, newError(ErrBooleanStructure, connective, "%s payload must be a list", connective)
	}
	if len(children) < 2 {
		return "", nil, newError(ErrBooleanStructure, connective, "boolean group needs at least 2 children")
	}

	fragments := make([]string, 0, len(children))
	var params []interface{}
	for _, child := range children {
		childNode, ok := toCondition(child)
		if !ok {
			return "", nil, newError(ErrBooleanStructure, connective, "%s children must be condition objects", connective)
		}
		fragment, childParams, err := c.compileCondition(childNode, depth+1)
		if err != nil {
			return "", nil, err
		}
		fragments = append(fragments, fragment)
		params = append(params, childParams...)
	}

	return "(" + strings.Join(fragments, " "+connective+" ") + ")", params, nil
}

// toCondition normalizes a decoded child node.
func toCondition(v interface{}) (Condition, bool) {
	switch n := v.(type) {
	case Condition:
		return n, true
	case map[string]interface{}:
		return Condition(n), true
	default:
		return nil, false
	}
}

// compileComparison compiles a single column comparison. The operand
// resolves in precedence order: aggregate expressions render inline with
// no placeholder, column references render inline with no placeholder,
// and any remaining scalar becomes one placeholder with a kind-checked
// parameter. Objects and lists that resolve to none of these are
// rejected, never emitted as parameters.
func (c *Compiler) compileComparison(column string, payload interface{}) (string, []interface{}, *Error) {
	kind := c.policy.ColumnKind(column)

	comparison, ok := payload.(map[string]interface{})
	if !ok {
		return "", nil, newError(ErrComparison, column, "bad %s, expected %s value", column, kind)
	}
	if len(comparison) != 1 {
		return "", nil, newError(ErrComparison, column, "comparison for %s must have exactly one operator", column)
	}

	var comparator string
	var operand interface{}
	for k, v := range comparison {
		comparator, operand = k, v
	}

	if !isComparator(comparator) {
		return "", nil, newError(ErrComparison, comparator, "unknown comparator: %s", comparator)
	}

	switch comparator {
	case "BETWEEN":
		return c.compileRange(column, kind, operand)
	case "IN":
		return c.compileMembership(column, kind, operand)
	}

	op := sqlComparator(comparator)

	if fn, arg, ok := c.policy.asAggregate(operand); ok {
		return column + " " + op + " " + fn + "(" + arg + ")", nil, nil
	}
	if c.policy.isColumnRef(operand) {
		return column + " " + op + " " + operand.(string), nil, nil
	}
	switch operand.(type) {
	case map[string]interface{}, []interface{}:
		return "", nil, newError(ErrComparison, column, "bad %s, expected %s value", column, kind)
	}
	if !kind.Matches(operand) {
		return "", nil, newError(ErrComparison, column, "bad %s, expected %s value", column, kind)
	}

	return column + " " + op + " ?", []interface{}{operand}, nil
}

// compileRange compiles a BETWEEN comparison. Both bounds ride as
// parameters in the given order.
func (c *Compiler) compileRange(column string, kind ValueKind, operand interface{}) (string, []interface{}, *Error) {
	values, ok := operand.([]interface{})
	if !ok {
		return "", nil, newError(ErrComparison, column, "BETWEEN for %s requires a list of 2 values", column)
	}
	if len(values) != 2 {
		return "", nil, newError(ErrComparison, column, "BETWEEN for %s requires exactly 2 values, got %d", column, len(values))
	}
	if err := c.checkElements(column, kind, values); err != nil {
		return "", nil, err
	}
	return column + " BETWEEN ? AND ?", values, nil
}

// compileMembership compiles an IN comparison with one placeholder per
// element.
func (c *Compiler) compileMembership(column string, kind ValueKind, operand interface{}) (string, []interface{}, *Error) {
	values, ok := operand.([]interface{})
	if !ok {
		return "", nil, newError(ErrComparison, column, "IN for %s requires a list of values", column)
	}
	if len(values) == 0 {
		return "", nil, newError(ErrComparison, column, "IN for %s requires at least 1 value", column)
	}
	if err := c.checkElements(column, kind, values); err != nil {
		return "", nil, err
	}

	placeholders := make([]string, len(values))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return column + " IN (" + strings.Join(placeholders, ",") + ")", values, nil
}

// checkElements validates each list element against the column's kind.
// Column references and aggregate forms inside the list are admitted as
// well; they still ride as parameters with the rest of the list.
func (c *Compiler) checkElements(column string, kind ValueKind, values []interface{}) *Error {
	for _, v := range values {
		if kind.Matches(v) {
			continue
		}
		if c.policy.isColumnRef(v) {
			continue
		}
		if _, _, ok := c.policy.asAggregate(v); ok {
			continue
		}
		return newError(ErrComparison, column, "bad %s, expected %s value", column, kind)
	}
	return nil
}
