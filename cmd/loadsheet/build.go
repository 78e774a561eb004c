package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/raine/loadsheet-bot/config"
	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/pipeline"
	"github.com/raine/loadsheet-bot/internal/storage"
	"github.com/raine/loadsheet-bot/internal/table"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

type buildOptions struct {
	products   string
	categories string
	out        string
	depth      int
	exclude    string
	noExclude  bool
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a loadsheet from a product export and an optional category export",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), cmd.Flags(), root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.products, "products", "p", "", "Product export CSV (required)")
	cmd.Flags().StringVarP(&opts.categories, "categories", "c", "", "Category export CSV")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file, .csv or .xlsx (default: <products>_loadsheet in "+config.EnvOutputFormat+" format)")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "Category depth products are labelled with (default: "+config.EnvTargetDepth+" or 3)")
	cmd.Flags().StringVar(&opts.exclude, "exclude", "", "Comma-separated category names never used as a label (default: "+config.EnvExcludeCategories+" or Shop)")
	cmd.Flags().BoolVar(&opts.noExclude, "no-exclude", false, "Do not exclude any category names")

	_ = cmd.MarkFlagRequired("products")

	return cmd
}

func runBuild(ctx context.Context, w io.Writer, flags flagSet, root *rootOptions, opts buildOptions) error {
	start := time.Now()

	buildOpts, format, err := buildSettings(flags, opts.depth, opts.exclude, opts.noExclude)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = defaultOutputPath(opts.products, format)
	}

	run := &storage.Run{
		ProductFile:  opts.products,
		CategoryFile: opts.categories,
		TargetDepth:  buildOpts.TargetDepth,
	}

	res, err := buildLoadsheet(ctx, opts.products, opts.categories, buildOpts)
	if err == nil {
		err = tablefile.WriteFile(out, res.Table)
	}
	run.Duration = time.Since(start)

	if err != nil {
		run.Status = storage.RunFailed
		run.Error = err.Error()
		recordRun(root.dbPath, run)
		return err
	}

	run.Status = storage.RunSucceeded
	run.InputRows = res.Stats.InputRows
	run.OutputRows = res.Stats.OutputRows
	recordRun(root.dbPath, run)

	info, statErr := os.Stat(out)
	size := "?"
	if statErr == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}

	log.Debug().Str("path", out).Msg("loadsheet written")
	fmt.Fprintf(w, "Wrote %s (%s rows, %s)\n", tablefile.ShortenFilename(out, maxDisplayNameLength), humanize.Comma(int64(res.Stats.OutputRows)), size)
	fmt.Fprintf(w, "  input rows:          %s\n", humanize.Comma(int64(res.Stats.InputRows)))
	fmt.Fprintf(w, "  parents dropped:     %d\n", res.Stats.DroppedParents)
	fmt.Fprintf(w, "  invalid prices:      %d\n", res.Stats.InvalidPrices)
	fmt.Fprintf(w, "  category fallbacks:  %d\n", res.Stats.CategoryFallbacks)
	fmt.Fprintf(w, "  categories:          %d\n", res.Categories)
	return nil
}

// buildLoadsheet reads both inputs concurrently and runs the pipeline.
func buildLoadsheet(ctx context.Context, productsPath, categoriesPath string, opts pipeline.Options) (*pipeline.Result, error) {
	var products, categories *table.Table

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := tablefile.ReadFile(productsPath)
		if err != nil {
			return fmt.Errorf("failed to read products: %w", err)
		}
		products = t
		return nil
	})
	if categoriesPath != "" {
		g.Go(func() error {
			t, err := tablefile.ReadFile(categoriesPath)
			if err != nil {
				return fmt.Errorf("failed to read categories: %w", err)
			}
			categories = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("products", products.Len()).
		Bool("categories", categories != nil).
		Msg("inputs read")

	return pipeline.Start(products, categories, opts).Wait(ctx)
}

// recordRun saves the run to the history database. Failures only warn.
func recordRun(dbPath string, run *storage.Run) {
	if dbPath == "" {
		return
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to open history database")
		return
	}
	defer store.Close()

	if err := store.SaveRun(run); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}

func defaultOutputPath(productsPath string, format tablefile.Format) string {
	return strings.TrimSuffix(productsPath, filepath.Ext(productsPath)) + "_loadsheet" + format.Ext()
}

// flagSet is the part of a command's flags buildSettings reads.
type flagSet interface {
	Changed(name string) bool
}

// buildSettings starts from the configured build options, the same ones the
// bot uses, and applies the flags the user set.
func buildSettings(flags flagSet, depth int, exclude string, noExclude bool) (pipeline.Options, tablefile.Format, error) {
	settings, err := config.Load()
	if err != nil {
		return pipeline.Options{}, "", fmt.Errorf("invalid config: %w", err)
	}

	opts := settings.Build
	if flags.Changed("depth") {
		opts.TargetDepth = depth
	}
	if flags.Changed("exclude") {
		opts.Excluded = category.SplitNames(exclude)
	}
	if noExclude {
		opts.Excluded = nil
	}
	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, "", err
	}
	return opts, settings.OutputFormat, nil
}
