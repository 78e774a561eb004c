// Package pipeline sequences the loadsheet build: category tree, product
// parsing and consolidation.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/loadsheet"
	"github.com/raine/loadsheet-bot/internal/table"
)

// DefaultTargetDepth is the category depth products are annotated with.
const DefaultTargetDepth = 3

// ErrInvalidDepth is returned for a target depth below 1.
var ErrInvalidDepth = errors.New("target depth must be a positive integer")

// Options configures a run.
type Options struct {
	TargetDepth int
	// Excluded category names never chosen as a product category
	Excluded []string
}

// DefaultOptions returns depth 3 and the default bucket exclusions.
func DefaultOptions() Options {
	return Options{
		TargetDepth: DefaultTargetDepth,
		Excluded:    append([]string(nil), category.DefaultExcluded...),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.TargetDepth < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidDepth, o.TargetDepth)
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	Table      *table.Table
	Rows       []loadsheet.Row
	Stats      loadsheet.Stats
	Categories int
	Duration   time.Duration
}

// Run builds the loadsheet from a product table and an optional category
// table. A nil categories table skips category resolution. Missing required
// columns in either input fail the whole run with a *table.SchemaError per
// table, joined when both are incomplete; row-level problems never do.
func Run(products, categories *table.Table, opts Options) (*Result, error) {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if products == nil {
		return nil, errors.New("product table is required")
	}

	// Both inputs are checked before failing so one reply names every
	// missing column. The product error comes first.
	items, productErr := loadsheet.ParseProducts(products)
	var (
		tree        *category.Tree
		categoryErr error
	)
	if categories != nil {
		tree, categoryErr = category.Build(categories)
	}
	if err := errors.Join(productErr, categoryErr); err != nil {
		return nil, err
	}

	var resolver *category.Resolver
	if tree != nil {
		resolver = category.NewResolver(tree, opts.Excluded)
	}

	rows, stats := loadsheet.Consolidate(items, resolver, opts.TargetDepth)

	res := &Result{
		Table:      loadsheet.ToTable(rows),
		Rows:       rows,
		Stats:      stats,
		Categories: tree.Len(),
		Duration:   time.Since(start),
	}

	log.Debug().
		Int("inputRows", stats.InputRows).
		Int("outputRows", stats.OutputRows).
		Int("categories", res.Categories).
		Int("targetDepth", opts.TargetDepth).
		Dur("duration", res.Duration).
		Msg("loadsheet built")

	return res, nil
}
