package jsonsql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Materialize substitutes one literal per ? placeholder in left-to-right
// order: nil renders as NULL, strings single-quoted with embedded quotes
// doubled, numbers and booleans as bare literals, and anything else
// stringified and quoted like a string. The scan skips ? characters
// inside single-quoted runs so an earlier string literal cannot absorb a
// later placeholder.
//
// Materialized text is for display and diagnostics only. The
// parameterized path is the execution default, and materialized output
// must never be fed back in as a condition tree.
func Materialize(sql string, params []interface{}) string {
	if len(params) == 0 {
		return sql
	}

	var out strings.Builder
	out.Grow(len(sql))

	next := 0
	inQuote := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inQuote = !inQuote
			out.WriteRune(r)
		case r == '?' && !inQuote && next < len(params):
			out.WriteString(renderLiteral(params[next]))
			next++
		default:
			out.WriteRune(r)
		}
	}

	return out.String()
}

// renderLiteral renders one parameter as SQL literal text.
func renderLiteral(param interface{}) string {
	switch v := param.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case json.Number:
		return v.String()
	default:
		return quoteString(fmt.Sprintf("%v", v))
	}
}

// quoteString single-quotes a string with embedded single quotes
// doubled.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
