package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ExactDepth(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, "Hand Tools", r.Resolve("3", 3))
}

func TestResolve_FallsBackOneLevel(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, "Tools", r.Resolve("2", 3))
}

func TestResolve_ExactDepthBeatsEarlierShallowerID(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, "Power Tools", r.Resolve("2, 4, 3", 3))
}

func TestResolve_FirstInListOrderWins(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, "Hand Tools", r.Resolve("3,4", 3))
	assert.Equal(t, "Power Tools", r.Resolve("4,3", 3))
}

func TestResolve_NoDeeperFallback(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	// Depth 1 is never used for target 3
	assert.Equal(t, Fallback, r.Resolve("1", 3))
	// Depth 4 is deeper than the target
	assert.Equal(t, Fallback, r.Resolve("5", 3))
}

func TestResolve_UnknownIDs(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, Fallback, r.Resolve("999", 3))
	assert.Equal(t, "Hand Tools", r.Resolve("999,3", 3))
}

func TestResolve_MalformedInput(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	tests := []string{"", " ", ",,,", " , ,", "abc;def"}
	for _, in := range tests {
		assert.Equal(t, Fallback, r.Resolve(in, 3), in)
	}
	assert.Equal(t, "Hand Tools", r.Resolve(" ,3 ,, ", 3))
}

func TestResolve_ExcludedNames(t *testing.T) {
	tree := BuildFromRecords([]Record{
		{ID: "1", Name: "Shop"},
		{ID: "2", Name: "Tools", ParentID: "1"},
		{ID: "3", Name: "Hand Tools", ParentID: "2"},
	})
	r := NewResolver(tree, []string{"shop"})

	assert.Equal(t, Fallback, r.Resolve("1", 3))
	assert.Equal(t, Fallback, r.Resolve("1", 2))
	assert.Equal(t, "Tools", r.Resolve("1,2", 2))
	assert.True(t, r.IsExcluded("  SHOP "))
}

func TestResolve_ExcludedNameAtTargetDepth(t *testing.T) {
	tree := BuildFromRecords([]Record{
		{ID: "1", Name: "Root"},
		{ID: "2", Name: "Shop All", ParentID: "1"},
		{ID: "3", Name: "Garden", ParentID: "1"},
	})
	r := NewResolver(tree, []string{"Shop All"})

	assert.Equal(t, "Garden", r.Resolve("2,3", 2))
}

func TestResolve_NilTree(t *testing.T) {
	r := NewResolver(nil, DefaultExcluded)

	assert.Equal(t, Fallback, r.Resolve("1,2,3", 3))
}

func TestResolve_TargetDepthOne(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	assert.Equal(t, "Shop", r.Resolve("2,1", 1))
	assert.Equal(t, Fallback, r.Resolve("2", 1))
}

func TestResolveDetail(t *testing.T) {
	r := NewResolver(shopTree(), nil)

	res := r.ResolveDetail("9,2", 3)
	assert.Equal(t, Resolution{Name: "Tools", ID: "2", Depth: 2}, res)

	res = r.ResolveDetail("9", 3)
	assert.True(t, res.Fallback)
	assert.Equal(t, Fallback, res.Name)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "02", "3"}, SplitIDs(" 1, 02 ,,3,"))
	assert.Nil(t, SplitIDs(""))
}
