package jsonsql

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValueKind identifies the kind of literal value a column admits.
type ValueKind int

const (
	// KindAny admits every value.
	KindAny ValueKind = iota
	// KindString admits string values.
	KindString
	// KindInteger admits integral numeric values.
	KindInteger
	// KindFloat admits any numeric value.
	KindFloat
	// KindBoolean admits boolean values.
	KindBoolean
	// KindNull admits only null.
	KindNull
)

// String returns the configuration name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for ValueKind
func (k ValueKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for ValueKind
func (k *ValueKind) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	kind, err := ParseValueKind(str)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseValueKind maps a configuration name to its ValueKind.
func ParseValueKind(name string) (ValueKind, error) {
	switch strings.ToLower(name) {
	case "any", "*":
		return KindAny, nil
	case "string", "str", "text":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "float", "number":
		return KindFloat, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "null":
		return KindNull, nil
	default:
		return KindAny, fmt.Errorf("unknown value kind: %q", name)
	}
}

// Matches reports whether v is compatible with the kind. Numbers may
// arrive as float64 (encoding/json default), json.Number, or native Go
// integer types; KindInteger requires an integral value, KindFloat admits
// any numeric. Booleans never satisfy a numeric kind.
func (k ValueKind) Matches(v interface{}) bool {
	switch k {
	case KindAny:
		return true
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInteger:
		return isIntegral(v)
	case KindFloat:
		return isNumeric(v)
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindNull:
		return v == nil
	default:
		return false
	}
}

func isNumeric(v interface{}) bool {
	switch n := v.(type) {
	case float64, float32, int, int32, int64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	default:
		return false
	}
}

func isIntegral(v interface{}) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == math.Trunc(n)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	default:
		return false
	}
}
