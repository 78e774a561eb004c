package loadsheet

import (
	"strings"

	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/table"
)

// NotAvailable fills every blank loadsheet cell except the category.
const NotAvailable = "#N/A"

// Columns is the fixed loadsheet header.
var Columns = []string{
	"Part #",
	"Full Title",
	"Parent #",
	"Title",
	"Retail Price",
	"Length (in)",
	"Width (in)",
	"Height (in)",
	"Weight (in)",
	"Description",
	"Image Link",
	"Product Link",
	"Category",
}

// Row is one loadsheet line. Every field is a display string.
type Row struct {
	PartNumber   string
	FullTitle    string
	ParentNumber string
	Title        string
	RetailPrice  string
	Length       string
	Width        string
	Height       string
	Weight       string
	Description  string
	Image        string
	ProductLink  string
	Category     string
}

// Values returns the row cells in Columns order.
func (r Row) Values() []string {
	return []string{
		r.PartNumber,
		r.FullTitle,
		r.ParentNumber,
		r.Title,
		r.RetailPrice,
		r.Length,
		r.Width,
		r.Height,
		r.Weight,
		r.Description,
		r.Image,
		r.ProductLink,
		r.Category,
	}
}

// fillDefaults replaces blank cells with the sentinel of their column.
func (r *Row) fillDefaults() {
	for _, f := range []*string{
		&r.PartNumber, &r.FullTitle, &r.ParentNumber, &r.Title, &r.RetailPrice,
		&r.Length, &r.Width, &r.Height, &r.Weight, &r.Description, &r.Image,
		&r.ProductLink,
	} {
		*f = orDefault(*f, NotAvailable)
	}
	r.Category = orDefault(r.Category, category.Fallback)
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// ToTable converts rows to a table with the loadsheet header.
func ToTable(rows []Row) *table.Table {
	t := table.New("loadsheet", Columns)
	for _, r := range rows {
		t.Append(r.Values())
	}
	return t
}
