package jsonsql

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TableRef names a table source with an optional alias. It decodes from
// either a bare string or a {"table": ..., "alias": ...} object.
type TableRef struct {
	Table string `json:"table"`
	Alias string `json:"alias,omitempty"`
}

// UnmarshalJSON accepts both wire spellings of a table source.
func (t *TableRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Table)
	}
	type plain TableRef
	return json.Unmarshal(data, (*plain)(t))
}

// clause renders the table source with its optional alias.
func (t TableRef) clause() string {
	if t.Alias != "" {
		return t.Table + " AS " + t.Alias
	}
	return t.Table
}

// OrderBy is one ORDER BY entry. It decodes from either a bare column
// string or a {"column": ..., "direction": ...} object. An absent or
// unrecognized direction defaults to ascending.
type OrderBy struct {
	Column    string `json:"column"`
	Direction string `json:"direction,omitempty"`

	// bare marks an entry decoded from a plain string, which renders
	// without a direction.
	bare bool
}

// UnmarshalJSON accepts both wire spellings of an ORDER BY entry.
func (o *OrderBy) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		o.bare = true
		return json.Unmarshal(data, &o.Column)
	}
	type plain OrderBy
	return json.Unmarshal(data, (*plain)(o))
}

// Request is the typed envelope for one compile call. Field spellings
// are the wire compatibility surface. A request uses the extended shape
// iff it carries a from or joins field; otherwise it is the legacy
// single-table shape.
type Request struct {
	Query string        `json:"query"`
	Items []interface{} `json:"items"`

	// Legacy shape.
	Table      string    `json:"table,omitempty"`
	Connection string    `json:"connection,omitempty"`
	Logic      Condition `json:"logic,omitempty"`

	// Extended shape.
	From    *TableRef `json:"from,omitempty"`
	Joins   []Join    `json:"joins,omitempty"`
	Where   Condition `json:"where,omitempty"`
	GroupBy []string  `json:"group_by,omitempty"`
	Having  Condition `json:"having,omitempty"`
	OrderBy []OrderBy `json:"order_by,omitempty"`
	Limit   *int      `json:"limit,omitempty"`
	Offset  *int      `json:"offset,omitempty"`

	// hasJoins records whether the joins field was present at all, so an
	// explicitly empty joins list still selects the extended shape.
	hasJoins bool
}

// extended reports whether the request uses the extended shape.
func (r *Request) extended() bool {
	return r.From != nil || r.hasJoins || len(r.Joins) > 0
}

// UnmarshalJSON decodes a request, tracking presence of the joins field
// and dropping limit/offset values that are not integral numbers, the
// same way absent values are dropped.
func (r *Request) UnmarshalJSON(data []byte) error {
	type wire struct {
		Query      string          `json:"query"`
		Items      []interface{}   `json:"items"`
		Table      string          `json:"table"`
		Connection string          `json:"connection"`
		Logic      Condition       `json:"logic"`
		From       *TableRef       `json:"from"`
		Joins      json.RawMessage `json:"joins"`
		Where      Condition       `json:"where"`
		GroupBy    []string        `json:"group_by"`
		Having     Condition       `json:"having"`
		OrderBy    []OrderBy       `json:"order_by"`
		Limit      json.RawMessage `json:"limit"`
		Offset     json.RawMessage `json:"offset"`
	}

	var w wire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	r.Query = w.Query
	r.Items = w.Items
	r.Table = w.Table
	r.Connection = w.Connection
	r.Logic = w.Logic
	r.From = w.From
	r.Where = w.Where
	r.GroupBy = w.GroupBy
	r.Having = w.Having
	r.OrderBy = w.OrderBy

	if len(w.Joins) > 0 && !bytes.Equal(w.Joins, []byte("null")) {
		r.hasJoins = true
		if err := json.Unmarshal(w.Joins, &r.Joins); err != nil {
			return fmt.Errorf("joins: %w", err)
		}
	}

	r.Limit = decodeOptionalInt(w.Limit)
	r.Offset = decodeOptionalInt(w.Offset)

	return nil
}

// decodeOptionalInt decodes an optional integer field. Anything that is
// not an integral number decodes as absent, matching the clause-gating
// rule that only integral values produce LIMIT/OFFSET clauses.
func decodeOptionalInt(raw json.RawMessage) *int {
	var num json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &num) != nil {
		return nil
	}
	n, err := num.Int64()
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}

// ParseRequest decodes one JSON request. Numbers inside condition trees
// decode as json.Number so integral values survive the trip through the
// kind checks without float rounding.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}
