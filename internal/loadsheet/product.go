// Package loadsheet turns a product export into a catalog loadsheet: variant
// parents are folded away, prices formatted, descriptions sanitized and each
// product assigned a category.
package loadsheet

import (
	"github.com/raine/loadsheet-bot/internal/table"
)

// Column names of the product export.
const (
	ColumnCode        = "productcode"
	ColumnName        = "productname"
	ColumnChildOf     = "ischildofproductcode"
	ColumnPrice       = "productprice"
	ColumnLength      = "length"
	ColumnWidth       = "width"
	ColumnHeight      = "height"
	ColumnWeight      = "productweight"
	ColumnDescription = "productdescriptionshort"
	ColumnPhotoURL    = "photourl"
	ColumnProductURL  = "producturl"
	ColumnCategoryIDs = "categoryids"
)

// RequiredColumns must be present in every product table.
var RequiredColumns = []string{ColumnCode, ColumnName, ColumnChildOf}

// Product is one row of the product export. Empty strings mean the value is
// absent, either because the column is missing or the cell is blank.
type Product struct {
	Code        string
	Name        string
	ChildOf     string
	Price       string
	Length      string
	Width       string
	Height      string
	Weight      string
	Description string
	ImageURL    string
	ProductURL  string
	CategoryIDs string

	// HasCategoryIDs is true when the export carries a category ids column.
	HasCategoryIDs bool
}

// ParseProducts validates the product table once and converts its rows to
// typed records. It fails with a *table.SchemaError when a required column is
// absent.
func ParseProducts(t *table.Table) ([]Product, error) {
	if err := t.Require(RequiredColumns...); err != nil {
		return nil, err
	}

	cell := func(row []string, column string) string {
		i, ok := t.Index(column)
		if !ok {
			return ""
		}
		return table.Cell(row[i])
	}
	hasCategoryIDs := t.Has(ColumnCategoryIDs)

	products := make([]Product, 0, t.Len())
	for _, row := range t.Rows {
		products = append(products, Product{
			Code:           cell(row, ColumnCode),
			Name:           cell(row, ColumnName),
			ChildOf:        cell(row, ColumnChildOf),
			Price:          cell(row, ColumnPrice),
			Length:         cell(row, ColumnLength),
			Width:          cell(row, ColumnWidth),
			Height:         cell(row, ColumnHeight),
			Weight:         cell(row, ColumnWeight),
			Description:    cell(row, ColumnDescription),
			ImageURL:       cell(row, ColumnPhotoURL),
			ProductURL:     cell(row, ColumnProductURL),
			CategoryIDs:    cell(row, ColumnCategoryIDs),
			HasCategoryIDs: hasCategoryIDs,
		})
	}
	return products, nil
}
