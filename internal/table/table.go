// Package table provides row-oriented result tables with a fixed column
// set. Every read operation of the client returns its rows through a
// Table so that empty results still carry the full column schema.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of rows sharing one fixed column set.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given column set.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds one row. The number of values must match the column count;
// mismatched rows are padded or truncated to keep rendering aligned.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows. The column set is retained
// either way.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Render formats the table as aligned plain text, one row per line with a
// header row first. An empty table renders just the header.
func (t *Table) Render() string {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteByte('\n')
	}

	writeRow(t.Columns)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return b.String()
}
