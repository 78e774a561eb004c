// Package table holds the in-memory tabular data exchanged between the table
// file readers, the loadsheet pipeline and its writers.
package table

import (
	"fmt"
	"strings"
)

// Table is a rectangular set of string cells addressed by column name.
// Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates a table with the given header. Rows appended later are padded or
// truncated to the header width.
func New(name string, columns []string) *Table {
	t := &Table{
		Name:    name,
		Columns: make([]string, len(columns)),
	}
	for i, c := range columns {
		t.Columns[i] = normalizeHeader(c)
	}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		key := strings.ToLower(c)
		// First occurrence wins for duplicate headers
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
}

// normalizeHeader strips a UTF-8 byte order mark and surrounding whitespace.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

// Append adds a row, padding missing cells with empty strings.
func (t *Table) Append(cells []string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column. Lookup ignores case and
// surrounding whitespace.
func (t *Table) Index(column string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[strings.ToLower(strings.TrimSpace(column))]
	return i, ok
}

// Has reports whether the named column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.Index(column)
	return ok
}

// Value returns the cell at row for the named column, or "" if the column
// does not exist.
func (t *Table) Value(row int, column string) string {
	i, ok := t.Index(column)
	if !ok {
		return ""
	}
	return t.Rows[row][i]
}

// Require checks that every named column exists and returns a *SchemaError
// listing all missing ones otherwise.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Table: t.Name, Missing: missing}
	}
	return nil
}

// SchemaError reports required columns absent from an input table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	name := e.Table
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("%s table is missing required columns: %s", name, strings.Join(e.Missing, ", "))
}
