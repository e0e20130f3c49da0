// Package jsonsql compiles JSON-structured query descriptions into
// parameterized SQL text plus an ordered parameter sequence, enforcing a
// configurable allow/deny policy on every named entity along the way. It
// lets an application expose query composition to semi-trusted callers
// without allowing arbitrary SQL.
//
// The package never talks to a database: it only emits text and
// parameters, with a strict invariant that the number of ? placeholders
// in the returned SQL equals the length of the returned parameter
// sequence.
package jsonsql

// Compiler compiles requests against one immutable Policy. A Compiler
// holds no per-call state and is safe for concurrent use.
type Compiler struct {
	policy *Policy
}

// New creates a Compiler over the given policy. The policy must not be
// mutated after construction; it is shared read-only across calls.
func New(policy *Policy) *Compiler {
	return &Compiler{policy: policy}
}

// Policy returns the compiler's policy.
func (c *Compiler) Policy() *Policy {
	return c.policy
}

// Compile compiles one request into SQL text and its ordered parameter
// sequence. On failure it returns a *Error; params are always nil on
// failure, never partial.
func (c *Compiler) Compile(req *Request) (sql string, params []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			sql, params = "", nil
			err = newError(ErrUnclassified, "", "internal error during compilation")
		}
	}()

	sql, params, cErr := c.assemble(req)
	if cErr != nil {
		return "", nil, cErr
	}
	return sql, params, nil
}

// CompileWithValues compiles one request and renders literal values
// inline instead of placeholders. The result is for display and
// diagnostics only; the parameter sequence is always empty in this mode.
func (c *Compiler) CompileWithValues(req *Request) (sql string, err error) {
	defer func() {
		if r := recover(); r != nil {
			sql = ""
			err = newError(ErrUnclassified, "", "internal error during compilation")
		}
	}()

	text, params, cErr := c.assemble(req)
	if cErr != nil {
		return "", cErr
	}
	return Materialize(text, params), nil
}

// CompileCondition compiles a bare condition tree into a SQL boolean
// fragment and its parameters, without the surrounding clause assembly.
func (c *Compiler) CompileCondition(cond Condition) (fragment string, params []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			fragment, params = "", nil
			err = newError(ErrUnclassified, "", "internal error during compilation")
		}
	}()

	fragment, params, cErr := c.compileCondition(cond, 0)
	if cErr != nil {
		return "", nil, cErr
	}
	return fragment, params, nil
}
