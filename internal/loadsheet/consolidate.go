package loadsheet

import (
	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/sanitize"
)

// Stats summarizes a consolidation.
type Stats struct {
	InputRows         int
	OutputRows        int
	DroppedParents    int
	InvalidPrices     int
	CategoryFallbacks int
}

// Consolidate folds variant parents away and builds the loadsheet rows.
//
// Every product whose code is referenced as another product's parent is
// dropped; the remaining rows carry their parent's name as Title (their own
// name when the parent code matches no row). Only direct references count,
// chains are not followed. resolver may be nil, in which case every row gets the fallback
// category.
func Consolidate(products []Product, resolver *category.Resolver, targetDepth int) ([]Row, Stats) {
	stats := Stats{InputRows: len(products)}

	// Code to name over all rows, parents and children alike. Last row wins
	// for duplicate codes.
	nameByCode := make(map[string]string, len(products))
	// Codes referenced as a parent by some row
	parentCodes := make(map[string]bool)
	for _, p := range products {
		if p.Code != "" {
			nameByCode[p.Code] = p.Name
		}
		if p.ChildOf != "" {
			parentCodes[p.ChildOf] = true
		}
	}

	rows := make([]Row, 0, len(products))
	for _, p := range products {
		if p.Code != "" && parentCodes[p.Code] {
			stats.DroppedParents++
			continue
		}

		title := p.Name
		if parentName, ok := nameByCode[p.ChildOf]; ok && p.ChildOf != "" {
			title = parentName
		}

		price := ParsePrice(p.Price)
		if p.Price != "" && !price.Valid {
			stats.InvalidPrices++
		}

		cat := category.Fallback
		if p.HasCategoryIDs && resolver != nil {
			res := resolver.ResolveDetail(p.CategoryIDs, targetDepth)
			cat = res.Name
			if res.Fallback {
				stats.CategoryFallbacks++
			}
		} else {
			stats.CategoryFallbacks++
		}

		row := Row{
			PartNumber:   p.Code,
			FullTitle:    p.Name,
			ParentNumber: p.ChildOf,
			Title:        title,
			RetailPrice:  FormatPrice(price),
			Length:       p.Length,
			Width:        p.Width,
			Height:       p.Height,
			Weight:       p.Weight,
			Description:  sanitize.Text(p.Description),
			Image:        p.ImageURL,
			ProductLink:  p.ProductURL,
			Category:     cat,
		}
		row.fillDefaults()
		rows = append(rows, row)
	}

	stats.OutputRows = len(rows)
	return rows, stats
}
