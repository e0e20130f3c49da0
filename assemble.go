package jsonsql

import (
	"fmt"
	"strings"
)

// assemble runs the full clause pipeline for one request: required-field
// checks, policy resolution for every named entity, condition
// compilation, and clause sequencing in the fixed order
// SELECT/FROM/JOIN/WHERE/GROUP BY/HAVING/ORDER BY/LIMIT/OFFSET.
// Parameters accumulate in clause order: joins contribute none, then
// WHERE, then HAVING.
func (c *Compiler) assemble(req *Request) (string, []interface{}, *Error) {
	if req == nil {
		return "", nil, newError(ErrStructural, "", "missing request")
	}
	if req.Query == "" {
		return "", nil, newError(ErrStructural, "query", "missing required field: query")
	}
	if !c.policy.AllowQuery(req.Query) {
		return "", nil, newError(ErrPolicyViolation, req.Query, "query not allowed: %s", req.Query)
	}
	if req.Items == nil {
		return "", nil, newError(ErrStructural, "items", "missing required field: items")
	}

	items, err := c.selectItems(req.Items)
	if err != nil {
		return "", nil, err
	}

	clauses := []string{req.Query + " " + strings.Join(items, ",")}
	var params []interface{}

	if req.extended() {
		fromClause, err := c.fromClause(req)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, fromClause)

		for _, join := range req.Joins {
			clause, err := c.joinClause(join)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
		}

		whereClause, whereParams, err := c.whereClause(req)
		if err != nil {
			return "", nil, err
		}
		if whereClause != "" {
			clauses = append(clauses, whereClause)
			params = append(params, whereParams...)
		}

		if len(req.GroupBy) > 0 {
			clauses = append(clauses, "GROUP BY "+strings.Join(req.GroupBy, ","))
		}

		if req.Having != nil {
			fragment, havingParams, err := c.compileCondition(req.Having, 0)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, "HAVING "+fragment)
			params = append(params, havingParams...)
		}

		if orderClause := orderByClause(req.OrderBy); orderClause != "" {
			clauses = append(clauses, orderClause)
		}

		if limitClause := limitClause(req.Limit, req.Offset); limitClause != "" {
			clauses = append(clauses, limitClause)
		}
	} else {
		if req.Table == "" {
			return "", nil, newError(ErrStructural, "table", "missing required field: table")
		}
		if !c.policy.AllowTable(req.Table) {
			return "", nil, newError(ErrPolicyViolation, req.Table, "table not allowed: %s", req.Table)
		}
		clauses = append(clauses, "FROM "+req.Table)

		if req.Connection != "" && req.Logic != nil {
			if !c.policy.AllowConnection(req.Connection) {
				return "", nil, newError(ErrPolicyViolation, req.Connection, "connection not allowed: %s", req.Connection)
			}
			fragment, logicParams, err := c.compileCondition(req.Logic, 0)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, req.Connection+" "+fragment)
			params = append(params, logicParams...)
		}
	}

	return strings.Join(clauses, " "), params, nil
}

// selectItems validates and renders the SELECT item list. An item may be
// a plain string or a one-entry aggregate object {FUNC: column}, which
// renders as FUNC(column) with the column checked against the items
// policy. Non-string items are stringified before the check.
func (c *Compiler) selectItems(items []interface{}) ([]string, *Error) {
	rendered := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if !c.policy.AllowItem(v) {
				return nil, newError(ErrPolicyViolation, v, "item not allowed: %s", v)
			}
			rendered = append(rendered, v)
		case map[string]interface{}:
			clause, err := c.aggregateItem(v)
			if err != nil {
				return nil, err
			}
			rendered = append(rendered, clause)
		default:
			name := fmt.Sprintf("%v", v)
			if !c.policy.AllowItem(name) {
				return nil, newError(ErrPolicyViolation, name, "item not allowed: %s", name)
			}
			rendered = append(rendered, name)
		}
	}
	return rendered, nil
}

// aggregateItem renders a {FUNC: column} SELECT item.
func (c *Compiler) aggregateItem(item map[string]interface{}) (string, *Error) {
	if len(item) != 1 {
		return "", newError(ErrStructural, "", "aggregate item must have exactly one function")
	}
	for fn, arg := range item {
		if _, known := aggregateFunctions[fn]; !known {
			return "", newError(ErrStructural, fn, "unknown aggregate function: %s", fn)
		}
		column, ok := arg.(string)
		if !ok {
			return "", newError(ErrStructural, fn, "aggregate %s argument must be a column name", fn)
		}
		if !c.policy.AllowItem(column) {
			return "", newError(ErrPolicyViolation, column, "item not allowed: %s", column)
		}
		return fn + "(" + column + ")", nil
	}
	return "", newError(ErrStructural, "", "aggregate item must have exactly one function")
}

// fromClause resolves the extended-shape table source: a from field with
// optional alias, or the legacy table field as fallback.
func (c *Compiler) fromClause(req *Request) (string, *Error) {
	if req.From != nil {
		if !c.policy.AllowTable(req.From.Table) {
			return "", newError(ErrPolicyViolation, req.From.Table, "table not allowed: %s", req.From.Table)
		}
		return "FROM " + req.From.clause(), nil
	}
	if req.Table != "" {
		if !c.policy.AllowTable(req.Table) {
			return "", newError(ErrPolicyViolation, req.Table, "table not allowed: %s", req.Table)
		}
		return "FROM " + req.Table, nil
	}
	return "", newError(ErrStructural, "from", "missing FROM clause (use 'from' or 'table')")
}

// whereClause builds the extended-shape WHERE clause. A where tree wins;
// otherwise the legacy connection+logic pair applies when both are
// present. An explicitly present but failing tree fails the compile.
func (c *Compiler) whereClause(req *Request) (string, []interface{}, *Error) {
	if req.Where != nil {
		fragment, params, err := c.compileCondition(req.Where, 0)
		if err != nil {
			return "", nil, err
		}
		return "WHERE " + fragment, params, nil
	}

	if req.Connection != "" && req.Logic != nil {
		if !c.policy.AllowConnection(req.Connection) {
			return "", nil, newError(ErrPolicyViolation, req.Connection, "connection not allowed: %s", req.Connection)
		}
		fragment, params, err := c.compileCondition(req.Logic, 0)
		if err != nil {
			return "", nil, err
		}
		return req.Connection + " " + fragment, params, nil
	}

	return "", nil, nil
}

// orderByClause renders ORDER BY entries. Object entries carry a
// direction that defaults to ASC when absent or unrecognized; bare
// string entries render as given.
func orderByClause(entries []OrderBy) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.bare {
			parts = append(parts, entry.Column)
			continue
		}
		direction := strings.ToUpper(entry.Direction)
		if direction != "ASC" && direction != "DESC" {
			direction = "ASC"
		}
		parts = append(parts, entry.Column+" "+direction)
	}
	return "ORDER BY " + strings.Join(parts, ",")
}

// limitClause renders LIMIT/OFFSET. LIMIT is emitted only for a positive
// integer; OFFSET only when LIMIT is emitted and the offset is
// non-negative.
func limitClause(limit, offset *int) string {
	if limit == nil || *limit <= 0 {
		return ""
	}
	clause := fmt.Sprintf("LIMIT %d", *limit)
	if offset != nil && *offset >= 0 {
		clause += fmt.Sprintf(" OFFSET %d", *offset)
	}
	return clause
}
