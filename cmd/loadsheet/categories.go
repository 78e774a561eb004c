package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raine/loadsheet-bot/config"
	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

type categoriesOptions struct {
	categories string
	depth      int
	resolve    string
	exclude    string
}

func newCategoriesCmd() *cobra.Command {
	var opts categoriesOptions

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect a category export: print the tree, list one depth or resolve an id list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategories(cmd.OutOrStdout(), cmd.Flags(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.categories, "categories", "c", "", "Category export CSV (required)")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "List the categories at this depth with their paths")
	cmd.Flags().StringVar(&opts.resolve, "resolve", "", "Resolve a comma-separated id list at --depth (default: "+config.EnvTargetDepth+" or 3)")
	cmd.Flags().StringVar(&opts.exclude, "exclude", "", "Category names excluded when resolving (default: "+config.EnvExcludeCategories+" or Shop)")

	_ = cmd.MarkFlagRequired("categories")

	return cmd
}

func runCategories(w io.Writer, flags flagSet, opts categoriesOptions) error {
	t, err := tablefile.ReadFile(opts.categories)
	if err != nil {
		return fmt.Errorf("failed to read categories: %w", err)
	}
	tree, err := category.Build(t)
	if err != nil {
		return err
	}

	switch {
	case opts.resolve != "":
		buildOpts, _, err := buildSettings(flags, opts.depth, opts.exclude, false)
		if err != nil {
			return err
		}
		depth := buildOpts.TargetDepth
		r := category.NewResolver(tree, buildOpts.Excluded)
		res := r.ResolveDetail(opts.resolve, depth)
		if res.Fallback {
			fmt.Fprintf(w, "%s (no category at depth %d or %d)\n", res.Name, depth, depth-1)
			return nil
		}
		fmt.Fprintf(w, "%s (id %s, depth %d): %s\n", res.Name, res.ID, res.Depth, strings.Join(tree.Path(res.ID), " > "))
	case opts.depth > 0:
		printDepth(w, tree, tree.Roots(), opts.depth)
	default:
		printTree(w, tree.Roots(), 0)
		fmt.Fprintf(w, "%d categories\n", tree.Len())
	}
	return nil
}

func printTree(w io.Writer, nodes []*category.Node, indent int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", indent), n.ID, n.Name)
		printTree(w, n.Children, indent+1)
	}
}

func printDepth(w io.Writer, tree *category.Tree, nodes []*category.Node, depth int) {
	for _, n := range nodes {
		if n.Depth == depth {
			fmt.Fprintf(w, "%s  %s\n", n.ID, strings.Join(tree.Path(n.ID), " > "))
			continue
		}
		printDepth(w, tree, n.Children, depth)
	}
}
