package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDenial(t *testing.T) {
	out := FormatDenial(DenialOptions{
		Kind:         "policy violation",
		Message:      "table not allowed: user",
		Suggestions:  []string{"users"},
		HelpCommands: []string{"See the active policy: jsonsql policy show"},
		NoColor:      true,
	})

	assert.Contains(t, out, "POLICY VIOLATION: table not allowed: user")
	assert.Contains(t, out, "Did you mean: users?")
	assert.Contains(t, out, "→ See the active policy: jsonsql policy show")
}

func TestFormatDenialWithoutExtras(t *testing.T) {
	out := FormatDenial(DenialOptions{Message: "nothing to compute", NoColor: true})
	assert.Contains(t, out, "nothing to compute")
	assert.NotContains(t, out, "Did you mean")
	assert.NotContains(t, out, "→")
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"CATEGORY", "ALLOWED"}, true)
	table.AddRow("queries", "SELECT")
	table.AddRow("tables", "users, orders")
	table.Render()

	out := buf.String()
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "users, orders")
}
