package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_NormalizesHeader(t *testing.T) {
	tbl := New("products", []string{"\ufeffProductCode ", " productname"})

	assert.Equal(t, []string{"ProductCode", "productname"}, tbl.Columns)
	i, ok := tbl.Index("PRODUCTCODE")
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestAppend_PadsAndTruncates(t *testing.T) {
	tbl := New("t", []string{"a", "b"})
	tbl.Append([]string{"1"})
	tbl.Append([]string{"1", "2", "3"})

	assert.Equal(t, [][]string{{"1", ""}, {"1", "2"}}, tbl.Rows)
}

func TestValue_UnknownColumn(t *testing.T) {
	tbl := New("t", []string{"a"})
	tbl.Append([]string{"x"})

	assert.Equal(t, "x", tbl.Value(0, "A"))
	assert.Equal(t, "", tbl.Value(0, "b"))
}

func TestDuplicateHeaderFirstWins(t *testing.T) {
	tbl := New("t", []string{"a", "A"})
	tbl.Append([]string{"first", "second"})

	assert.Equal(t, "first", tbl.Value(0, "a"))
}

func TestRequire(t *testing.T) {
	tbl := New("categories", []string{"categoryid"})

	err := tbl.Require("categoryid", "categoryname", "parentid")

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	assert.Equal(t, []string{"categoryname", "parentid"}, schemaErr.Missing)
	assert.Equal(t, "categories table is missing required columns: categoryname, parentid", err.Error())
	assert.NoError(t, tbl.Require("CategoryID"))
}

func TestCell(t *testing.T) {
	tests := map[string]string{
		"  value ":  "value",
		"NaN":       "",
		" N/A ":     "",
		"#N/A":      "",
		"null":      "",
		"0":         "0",
		"Nan bread": "Nan bread",
	}
	for in, want := range tests {
		assert.Equal(t, want, Cell(in), in)
	}
}
