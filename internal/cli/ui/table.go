package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned tabular output, used by `jsonsql policy show`
// to print the per-category allow and deny lists.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers.
func NewTable(w io.Writer, headers []string, noColor bool) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table: a cyan header line, one rule spanning the
// full table width, then the rows.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := t.columnWidths()

	heading := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		heading.DisableColor()
		rule.DisableColor()
	}

	heading.Fprintln(t.writer, formatRow(t.headers, widths))

	ruleWidth := 2 * (len(widths) - 1)
	for _, w := range widths {
		ruleWidth += w
	}
	rule.Fprintln(t.writer, strings.Repeat("─", ruleWidth))

	for _, row := range t.rows {
		fmt.Fprintln(t.writer, formatRow(row, widths))
	}
}

// columnWidths sizes each column to its widest cell, headers included.
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

// formatRow left-aligns cells to their column widths with a two-space
// gutter. Cells beyond the header count are dropped.
func formatRow(cells []string, widths []int) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
