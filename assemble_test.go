package jsonsql

import (
	"reflect"
	"strings"
	"testing"
)

func intp(n int) *int { return &n }

func TestCompileLegacyMinimal(t *testing.T) {
	c := testCompiler(t)

	sql, params, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"*"},
		Table: "users",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT * FROM users" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
}

func TestCompileLegacyWithCondition(t *testing.T) {
	c := testCompiler(t)

	sql, params, err := c.Compile(&Request{
		Query:      "SELECT",
		Items:      []interface{}{"*"},
		Table:      "users",
		Connection: "WHERE",
		Logic:      Condition{"id": map[string]interface{}{"=": 1}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT * FROM users WHERE id = ?" {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(params, []interface{}{1}) {
		t.Errorf("params = %v", params)
	}
}

func TestCompileLegacyIgnoresHalfPair(t *testing.T) {
	c := testCompiler(t)

	// A connection without a logic tree (or vice versa) contributes no
	// WHERE clause.
	sql, _, err := c.Compile(&Request{
		Query:      "SELECT",
		Items:      []interface{}{"*"},
		Table:      "users",
		Connection: "WHERE",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT * FROM users" {
		t.Errorf("sql = %q", sql)
	}
}

func TestCompileExtendedFullShape(t *testing.T) {
	c := testCompiler(t)

	limit, offset := 10, 20
	sql, params, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"users.name", "orders.total"},
		From:  &TableRef{Table: "users", Alias: "u"},
		Joins: []Join{
			{Type: "INNER JOIN", Table: "orders", Alias: "o", On: "u.id = o.user_id"},
		},
		Where:   Condition{"id": map[string]interface{}{">": 5}},
		GroupBy: []string{"u.id"},
		Having:  Condition{"age": map[string]interface{}{">": 21}},
		OrderBy: []OrderBy{{Column: "u.name", Direction: "desc"}},
		Limit:   &limit,
		Offset:  &offset,
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	want := "SELECT users.name,orders.total" +
		" FROM users AS u" +
		" INNER JOIN orders AS o ON u.id = o.user_id" +
		" WHERE id > ?" +
		" GROUP BY u.id" +
		" HAVING age > ?" +
		" ORDER BY u.name DESC" +
		" LIMIT 10 OFFSET 20"
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}
	if !reflect.DeepEqual(params, []interface{}{5, 21}) {
		t.Errorf("params = %v, want WHERE params before HAVING params", params)
	}
}

func TestCompileJoinOrderPreserved(t *testing.T) {
	c := testCompiler(t)

	sql, params, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"*"},
		From:  &TableRef{Table: "users"},
		Joins: []Join{
			{Type: "INNER JOIN", Table: "orders", On: "users.id = orders.user_id"},
			{Type: "INNER JOIN", Table: "users", Alias: "m", On: "users.manager_id = m.id"},
		},
		Where: Condition{"id": map[string]interface{}{"=": 1}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	first := strings.Index(sql, "INNER JOIN orders")
	second := strings.Index(sql, "INNER JOIN users AS m")
	where := strings.Index(sql, "WHERE")
	if first == -1 || second == -1 || where == -1 {
		t.Fatalf("sql missing expected clauses: %q", sql)
	}
	if !(first < second && second < where) {
		t.Errorf("clause order wrong: %q", sql)
	}
	if !reflect.DeepEqual(params, []interface{}{1}) {
		t.Errorf("params = %v", params)
	}
}

func TestCompileExtendedLegacyTableFallback(t *testing.T) {
	c := testCompiler(t)

	sql, _, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"*"},
		Table: "users",
		Joins: []Join{{Type: "CROSS JOIN", Table: "orders"}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT * FROM users CROSS JOIN orders" {
		t.Errorf("sql = %q", sql)
	}
}

func TestCompileExtendedLegacyWhereFallback(t *testing.T) {
	c := testCompiler(t)

	sql, params, err := c.Compile(&Request{
		Query:      "SELECT",
		Items:      []interface{}{"*"},
		From:       &TableRef{Table: "users"},
		Connection: "WHERE",
		Logic:      Condition{"id": map[string]interface{}{"=": 3}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT * FROM users WHERE id = ?" {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(params, []interface{}{3}) {
		t.Errorf("params = %v", params)
	}
}

func TestCompileAggregateItems(t *testing.T) {
	c := testCompiler(t)

	sql, _, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"name", map[string]interface{}{"COUNT": "id"}},
		Table: "users",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sql != "SELECT name,COUNT(id) FROM users" {
		t.Errorf("sql = %q", sql)
	}

	_, _, err = c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{map[string]interface{}{"MEDIAN": "id"}},
		Table: "users",
	})
	if err == nil {
		t.Error("unknown aggregate function should fail")
	}
}

func TestCompileRequiredFieldFailures(t *testing.T) {
	c := testCompiler(t)

	tests := []struct {
		name     string
		req      *Request
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			"missing query",
			&Request{Items: []interface{}{"*"}, Table: "users"},
			ErrStructural, "missing required field: query",
		},
		{
			"query not allowed",
			&Request{Query: "INSERT", Items: []interface{}{"*"}, Table: "users"},
			ErrPolicyViolation, "query not allowed: INSERT",
		},
		{
			"missing items",
			&Request{Query: "SELECT", Table: "users"},
			ErrStructural, "missing required field: items",
		},
		{
			"missing table legacy",
			&Request{Query: "SELECT", Items: []interface{}{"*"}},
			ErrStructural, "missing required field: table",
		},
		{
			"table not allowed",
			&Request{Query: "SELECT", Items: []interface{}{"*"}, Table: "secrets"},
			ErrPolicyViolation, "table not allowed: secrets",
		},
		{
			"missing from extended",
			&Request{Query: "SELECT", Items: []interface{}{"*"}, Joins: []Join{{Table: "orders"}}, hasJoins: true},
			ErrStructural, "missing FROM clause (use 'from' or 'table')",
		},
		{
			"from table not allowed",
			&Request{Query: "SELECT", Items: []interface{}{"*"}, From: &TableRef{Table: "secrets"}},
			ErrPolicyViolation, "table not allowed: secrets",
		},
		{
			"connection not allowed",
			&Request{Query: "SELECT", Items: []interface{}{"*"}, Table: "users",
				Connection: "OR", Logic: Condition{"id": map[string]interface{}{"=": 1}}},
			ErrPolicyViolation, "connection not allowed: OR",
		},
		{
			"empty where fails",
			&Request{Query: "SELECT", Items: []interface{}{"*"}, From: &TableRef{Table: "users"},
				Where: Condition{}},
			ErrStructural, "nothing to compute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Compile(tt.req)
			if err == nil {
				t.Fatal("expected an error")
			}
			e := err.(*Error)
			if e.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", e.Kind, tt.wantKind)
			}
			if tt.wantMsg != "" && e.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestCompileItemPolicy(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{
		Queries: []string{"SELECT"},
		Items:   []string{"id", "name"},
		Tables:  []interface{}{"users"},
	})
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}
	c := New(p)

	_, _, cErr := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"id", "secret"},
		Table: "users",
	})
	if cErr == nil {
		t.Fatal("expected an error")
	}
	e := cErr.(*Error)
	if e.Kind != ErrPolicyViolation || e.Message != "item not allowed: secret" {
		t.Errorf("error = %+v", e)
	}

	// Non-string items are stringified before the policy check.
	_, _, cErr = c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{7},
		Table: "users",
	})
	if cErr == nil {
		t.Fatal("expected an error")
	}
	if cErr.(*Error).Entity != "7" {
		t.Errorf("entity = %q, want stringified item", cErr.(*Error).Entity)
	}
}

func TestCompileLimitOffsetGating(t *testing.T) {
	c := testCompiler(t)

	tests := []struct {
		name   string
		limit  *int
		offset *int
		want   string
	}{
		{"positive limit", intp(10), nil, " LIMIT 10"},
		{"limit with offset", intp(10), intp(0), " LIMIT 10 OFFSET 0"},
		{"zero limit dropped", intp(0), intp(5), ""},
		{"negative limit dropped", intp(-1), nil, ""},
		{"negative offset dropped", intp(10), intp(-5), " LIMIT 10"},
		{"offset without limit dropped", nil, intp(5), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _, err := c.Compile(&Request{
				Query:  "SELECT",
				Items:  []interface{}{"*"},
				From:   &TableRef{Table: "users"},
				Limit:  tt.limit,
				Offset: tt.offset,
			})
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			want := "SELECT * FROM users" + tt.want
			if sql != want {
				t.Errorf("sql = %q, want %q", sql, want)
			}
		})
	}
}

func TestCompileOrderByDirections(t *testing.T) {
	c := testCompiler(t)

	sql, _, err := c.Compile(&Request{
		Query: "SELECT",
		Items: []interface{}{"*"},
		From:  &TableRef{Table: "users"},
		OrderBy: []OrderBy{
			{Column: "name"},                          // defaults to ASC
			{Column: "age", Direction: "desc"},        // upper-cased
			{Column: "id", Direction: "SIDEWAYS"},     // invalid -> ASC
			{Column: "created_at", bare: true},        // bare entry, no direction
		},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := "SELECT * FROM users ORDER BY name ASC,age DESC,id ASC,created_at"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestCompilePlaceholderParamParity(t *testing.T) {
	c := testCompiler(t)

	requests := []*Request{
		{Query: "SELECT", Items: []interface{}{"*"}, Table: "users"},
		{
			Query: "SELECT", Items: []interface{}{"*"}, Table: "users",
			Connection: "WHERE",
			Logic: Condition{"AND": []interface{}{
				map[string]interface{}{"id": map[string]interface{}{"IN": []interface{}{1, 2, 3}}},
				map[string]interface{}{"col": map[string]interface{}{"BETWEEN": []interface{}{5, 10}}},
			}},
		},
		{
			Query: "SELECT", Items: []interface{}{"*"},
			From:  &TableRef{Table: "users"},
			Joins: []Join{{Type: "INNER JOIN", Table: "orders", On: "users.id = orders.user_id"}},
			Where: Condition{"name": map[string]interface{}{"=": "o'brien"}},
			Having: Condition{"age": map[string]interface{}{">": 21}},
		},
	}

	for i, req := range requests {
		sql, params, err := c.Compile(req)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if got := strings.Count(sql, "?"); got != len(params) {
			t.Errorf("request %d: %d placeholders but %d params in %q", i, got, len(params), sql)
		}
	}
}

func TestCompileWithValues(t *testing.T) {
	c := testCompiler(t)

	sql, err := c.CompileWithValues(&Request{
		Query:      "SELECT",
		Items:      []interface{}{"*"},
		Table:      "users",
		Connection: "WHERE",
		Logic: Condition{"AND": []interface{}{
			map[string]interface{}{"name": map[string]interface{}{"=": "o'brien"}},
			map[string]interface{}{"id": map[string]interface{}{"IN": []interface{}{1, 2}}},
		}},
	})
	if err != nil {
		t.Fatalf("CompileWithValues failed: %v", err)
	}
	want := "SELECT * FROM users WHERE (name = 'o''brien' AND id IN (1,2))"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if strings.Contains(strings.ReplaceAll(sql, "'o''brien'", ""), "?") {
		t.Errorf("materialized sql still contains a placeholder: %q", sql)
	}
}

func TestCompileNilRequest(t *testing.T) {
	c := testCompiler(t)
	_, _, err := c.Compile(nil)
	if err == nil {
		t.Fatal("expected an error for nil request")
	}
	if err.(*Error).Kind != ErrStructural {
		t.Errorf("kind = %v", err.(*Error).Kind)
	}
}
