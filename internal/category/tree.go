// Package category models a product category hierarchy given as a flat list of
// parent pointers and picks a display category for products.
package category

import (
	"github.com/raine/loadsheet-bot/internal/table"
)

// Column names of the category table.
const (
	ColumnID       = "categoryid"
	ColumnName     = "categoryname"
	ColumnParentID = "parentid"
)

// RequiredColumns must be present in every category table.
var RequiredColumns = []string{ColumnID, ColumnName, ColumnParentID}

// RootParentID is the parent id the category export uses for top-level
// categories.
const RootParentID = "0"

// Record is one row of the category table. IDs are opaque strings.
type Record struct {
	ID       string
	Name     string
	ParentID string
}

// Node represents a category in the hierarchy.
type Node struct {
	ID       string
	Name     string
	ParentID string
	Depth    int
	Children []*Node
}

// Tree is an immutable category hierarchy. Depths are computed once when the
// tree is built, so a Tree can be shared by concurrent resolutions.
type Tree struct {
	// roots contains the nodes without a known parent, in input order
	roots []*Node
	// nodeByID allows quick lookup of any node by category ID
	nodeByID map[string]*Node
}

// Build constructs a tree from a category table. It fails with a
// *table.SchemaError if the id, name or parent id column is absent.
func Build(t *table.Table) (*Tree, error) {
	if err := t.Require(RequiredColumns...); err != nil {
		return nil, err
	}

	idCol, _ := t.Index(ColumnID)
	nameCol, _ := t.Index(ColumnName)
	parentCol, _ := t.Index(ColumnParentID)

	records := make([]Record, 0, t.Len())
	for _, row := range t.Rows {
		id := table.Cell(row[idCol])
		if id == "" {
			continue
		}
		records = append(records, Record{
			ID:       id,
			Name:     table.Cell(row[nameCol]),
			ParentID: table.Cell(row[parentCol]),
		})
	}

	return BuildFromRecords(records), nil
}

// BuildFromRecords constructs a tree from typed records. When an id occurs more
// than once, the last record wins.
func BuildFromRecords(records []Record) *Tree {
	tree := &Tree{
		nodeByID: make(map[string]*Node, len(records)),
	}

	// First pass: one node per id, keeping first-seen order for stable output
	order := make([]*Node, 0, len(records))
	for _, rec := range records {
		if node, exists := tree.nodeByID[rec.ID]; exists {
			node.Name = rec.Name
			node.ParentID = normalizeParentID(rec.ParentID)
			continue
		}
		node := &Node{
			ID:       rec.ID,
			Name:     rec.Name,
			ParentID: normalizeParentID(rec.ParentID),
		}
		tree.nodeByID[rec.ID] = node
		order = append(order, node)
	}

	// Second pass: link children to parents and identify roots
	for _, node := range order {
		parent, exists := tree.nodeByID[node.ParentID]
		if node.ParentID == "" || !exists || parent == node {
			tree.roots = append(tree.roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for _, node := range order {
		node.Depth = tree.walkDepth(node.ID)
	}

	return tree
}

func normalizeParentID(id string) string {
	if id == RootParentID {
		return ""
	}
	return id
}

// walkDepth follows parent pointers from id. It stops at a root, at a parent
// that is not a known category, or when the next parent was already visited
// in this walk.
func (t *Tree) walkDepth(id string) int {
	visited := make(map[string]bool)
	depth := 0
	for cur := id; ; {
		node, exists := t.nodeByID[cur]
		if !exists || visited[cur] {
			return depth
		}
		visited[cur] = true
		depth++
		if node.ParentID == "" {
			return depth
		}
		cur = node.ParentID
	}
}

// Depth returns the 1-based depth of a category. The second return value is
// false for ids the tree does not know.
func (t *Tree) Depth(id string) (int, bool) {
	if t == nil {
		return 0, false
	}
	node, exists := t.nodeByID[id]
	if !exists {
		return 0, false
	}
	return node.Depth, true
}

// Name returns the display name of a category.
func (t *Tree) Name(id string) (string, bool) {
	if t == nil {
		return "", false
	}
	node, exists := t.nodeByID[id]
	if !exists {
		return "", false
	}
	return node.Name, true
}

// GetNode returns the node for a given category ID.
// Returns nil if the node doesn't exist.
func (t *Tree) GetNode(id string) *Node {
	if t == nil {
		return nil
	}
	return t.nodeByID[id]
}

// Roots returns the top-level category nodes.
func (t *Tree) Roots() []*Node {
	if t == nil {
		return nil
	}
	return t.roots
}

// Children returns the children of a category node by ID.
// Returns nil if the node doesn't exist or has no children.
func (t *Tree) Children(id string) []*Node {
	node := t.GetNode(id)
	if node == nil {
		return nil
	}
	return node.Children
}

// Len returns the number of distinct categories.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodeByID)
}

// Path returns category names from the topmost ancestor down to id. A cycle
// ends the path at the first repeated node.
func (t *Tree) Path(id string) []string {
	var names []string
	visited := make(map[string]bool)
	for cur := id; cur != "" && !visited[cur]; {
		node := t.GetNode(cur)
		if node == nil {
			break
		}
		visited[cur] = true
		names = append(names, node.Name)
		cur = node.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
