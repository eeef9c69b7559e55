// Package columnar holds the string table model shared by the downloader and the
// compiler, its parquet encoding over afero and the AEMO CSV cleaner
package columnar

import (
	"slices"
	"strings"

	pstrings "nemseer/internal/platform/strings"
)

// Table is a rectangular string table. A nil cell is null
type Table struct {
	Columns []string
	Rows    [][]*string
}

// NewTable returns an empty table with the given columns
func NewTable(cols ...string) *Table {
	return &Table{Columns: slices.Clone(cols)}
}

// Len is the row count
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col or -1
func (t *Table) Index(col string) int { return slices.Index(t.Columns, col) }

// Has reports whether the table carries col
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Append adds one row of plain values; "" is stored as null
func (t *Table) Append(vals ...string) {
	row := make([]*string, len(t.Columns))
	for i := 0; i < len(vals) && i < len(row); i++ {
		row[i] = pstrings.Ptr(vals[i])
	}
	t.Rows = append(t.Rows, row)
}

// Value returns the cell at row i of col and whether it is non null
func (t *Table) Value(i int, col string) (string, bool) {
	j := t.Index(col)
	if j < 0 || i < 0 || i >= len(t.Rows) || t.Rows[i][j] == nil {
		return "", false
	}
	return *t.Rows[i][j], true
}

// Filter keeps the rows for which keep returns true
func (t *Table) Filter(keep func(row []*string) bool) {
	out := t.Rows[:0]
	for _, r := range t.Rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	clear(t.Rows[len(out):])
	t.Rows = out
}

// Dedupe drops repeated rows keeping the first, returning how many were dropped
func (t *Table) Dedupe() int {
	seen := make(map[string]struct{}, len(t.Rows))
	before := len(t.Rows)
	t.Filter(func(row []*string) bool {
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return before - len(t.Rows)
}

// AddColumn appends a column computed per row
func (t *Table) AddColumn(name string, fn func(row []*string) *string) {
	t.Columns = append(t.Columns, name)
	for i, r := range t.Rows {
		t.Rows[i] = append(r, fn(r))
	}
}

// DropColumns removes the first n columns
func (t *Table) DropColumns(n int) {
	if n <= 0 {
		return
	}
	n = min(n, len(t.Columns))
	t.Columns = t.Columns[n:]
	for i, r := range t.Rows {
		t.Rows[i] = r[min(n, len(r)):]
	}
}

// Concat stacks tables. Columns are the union in first seen order; cells a
// table lacks are null
func Concat(tables ...*Table) *Table {
	out := &Table{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if !slices.Contains(out.Columns, c) {
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		pos := make([]int, len(t.Columns))
		for j, c := range t.Columns {
			pos[j] = out.Index(c)
		}
		for _, r := range t.Rows {
			row := make([]*string, len(out.Columns))
			for j, v := range r {
				if j < len(pos) {
					row[pos[j]] = v
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func rowKey(row []*string) string {
	var b strings.Builder
	for _, v := range row {
		if v == nil {
			b.WriteString("\x00")
		} else {
			b.WriteString(*v)
		}
		b.WriteString("\x1f")
	}
	return b.String()
}
