package jsonsql

import (
	"regexp"
	"strings"
)

// Join is one join specification. Type defaults to INNER JOIN and is
// upper-cased before the policy check. On is an opaque raw condition:
// it is never parsed, only screened for known unsafe shapes.
type Join struct {
	Type  string `json:"type"`
	Table string `json:"table"`
	Alias string `json:"alias,omitempty"`
	On    string `json:"on,omitempty"`
}

// unsafeJoinPatterns is the injection screen for raw ON conditions: a
// statement terminator followed by a mutating verb, SQL comment markers,
// and the extended-stored-procedure prefixes. This is a fixed denylist,
// not a parser; it rejects a known set of unsafe-looking shapes and can
// be evaded by sufficiently obfuscated input. It must not be treated as
// a security boundary on its own.
var unsafeJoinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*DROP`),
	regexp.MustCompile(`(?i);\s*DELETE`),
	regexp.MustCompile(`(?i);\s*INSERT`),
	regexp.MustCompile(`(?i);\s*UPDATE`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`(?i)xp_`),
	regexp.MustCompile(`(?i)sp_`),
}

// safeJoinCondition reports whether a raw ON condition passes the
// injection screen.
func safeJoinCondition(condition string) bool {
	for _, pattern := range unsafeJoinPatterns {
		if pattern.MatchString(condition) {
			return false
		}
	}
	return true
}

// joinClause validates one join against the policy and the injection
// screen, short-circuiting on the first failure, and returns its clause
// text: "<TYPE> <table>[ AS <alias>][ ON <condition>]". Join conditions
// are raw text and contribute no parameters.
func (c *Compiler) joinClause(join Join) (string, *Error) {
	joinType := strings.ToUpper(join.Type)
	if joinType == "" {
		joinType = "INNER JOIN"
	}
	if !c.policy.AllowJoinType(joinType) {
		return "", newError(ErrPolicyViolation, joinType, "JOIN type not allowed: %s", joinType)
	}

	if !c.policy.AllowTable(join.Table) {
		return "", newError(ErrPolicyViolation, join.Table, "table not allowed: %s", join.Table)
	}

	if join.On != "" && !safeJoinCondition(join.On) {
		return "", newError(ErrInjectionRejected, join.On, "invalid JOIN condition: %s", join.On)
	}

	var clause strings.Builder
	clause.WriteString(joinType)
	clause.WriteString(" ")
	clause.WriteString(join.Table)
	if join.Alias != "" {
		clause.WriteString(" AS ")
		clause.WriteString(join.Alias)
	}
	if join.On != "" {
		clause.WriteString(" ON ")
		clause.WriteString(join.On)
	}
	return clause.String(), nil
}
