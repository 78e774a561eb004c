package category

import (
	"strings"
)

// Fallback is the category assigned when no category of a usable depth is
// found.
const Fallback = "Other"

// DefaultExcluded lists category names that are catch-all buckets rather than
// real categories.
var DefaultExcluded = []string{"Shop"}

// Resolver picks one display category for a product from its assigned
// category ids.
type Resolver struct {
	tree     *Tree
	excluded map[string]bool
}

// Resolution describes how a category list was resolved.
type Resolution struct {
	Name     string
	ID       string // empty when the fallback was used
	Depth    int
	Fallback bool
}

// NewResolver creates a resolver over tree. Categories whose name matches an
// entry of excluded (case-insensitive) never match. A nil tree resolves every
// list to Fallback.
func NewResolver(tree *Tree, excluded []string) *Resolver {
	r := &Resolver{
		tree:     tree,
		excluded: make(map[string]bool, len(excluded)),
	}
	for _, name := range excluded {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			r.excluded[name] = true
		}
	}
	return r
}

// Resolve returns the display name for a comma-separated list of category ids.
// The first id whose depth equals targetDepth wins; otherwise the first id one
// level above it; otherwise Fallback.
func (r *Resolver) Resolve(idsCSV string, targetDepth int) string {
	return r.ResolveDetail(idsCSV, targetDepth).Name
}

// ResolveDetail is like Resolve but also reports the matched id and depth.
func (r *Resolver) ResolveDetail(idsCSV string, targetDepth int) Resolution {
	candidates := r.candidates(idsCSV)

	for _, want := range []int{targetDepth, targetDepth - 1} {
		if want < 1 {
			continue
		}
		for _, node := range candidates {
			if node.Depth == want {
				return Resolution{Name: node.Name, ID: node.ID, Depth: node.Depth}
			}
		}
	}

	return Resolution{Name: Fallback, Fallback: true}
}

// candidates returns the known, non-excluded nodes of idsCSV in list order.
func (r *Resolver) candidates(idsCSV string) []*Node {
	if r == nil || r.tree == nil {
		return nil
	}
	var nodes []*Node
	for _, id := range SplitIDs(idsCSV) {
		node := r.tree.GetNode(id)
		if node == nil {
			continue
		}
		if r.IsExcluded(node.Name) {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// IsExcluded reports whether name is one of the resolver's bucket labels.
func (r *Resolver) IsExcluded(name string) bool {
	return r.excluded[strings.ToLower(strings.TrimSpace(name))]
}

// SplitIDs splits a comma-separated id list, trimming whitespace and dropping
// empty entries.
func SplitIDs(idsCSV string) []string {
	var ids []string
	for _, part := range strings.Split(idsCSV, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// SplitNames splits a comma-separated list of category names, as used for
// exclusion lists in settings and flags.
func SplitNames(namesCSV string) []string {
	return SplitIDs(namesCSV)
}
