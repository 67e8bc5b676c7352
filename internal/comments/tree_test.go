package comments

import (
	"testing"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(id, parent string) models.Comment {
	return models.Comment{CommentID: id, ParentCommentID: parent, Description: "comment " + id}
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.CommentID
	}
	return out
}

// collect returns every comment id in the forest, depth first.
func collect(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.CommentID)
		out = append(out, collect(n.Replies)...)
	}
	return out
}

func TestBuildTreeOrphanIsRoot(t *testing.T) {
	roots := BuildTree([]models.Comment{c("1", ""), c("2", "1"), c("3", "99")})

	assert.Equal(t, []string{"1", "3"}, ids(roots))
	assert.Equal(t, []string{"2"}, ids(roots[0].Replies))
	assert.Empty(t, roots[1].Replies)
}

func TestBuildTreeEmpty(t *testing.T) {
	roots := BuildTree(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestBuildTreeChildBeforeParent(t *testing.T) {
	roots := BuildTree([]models.Comment{c("3", "2"), c("2", "1"), c("1", ""), c("4", "1")})

	require.Equal(t, []string{"1"}, ids(roots))
	assert.Equal(t, []string{"2", "4"}, ids(roots[0].Replies))
	assert.Equal(t, []string{"3"}, ids(roots[0].Replies[0].Replies))
	assert.Equal(t, 3, roots[0].Count())
}

func TestBuildTreeSelfParentIsRoot(t *testing.T) {
	roots := BuildTree([]models.Comment{c("1", "1"), c("2", "1")})

	assert.Equal(t, []string{"1"}, ids(roots))
	assert.Equal(t, []string{"2"}, ids(roots[0].Replies))
}

func TestBuildTreeBreaksCycles(t *testing.T) {
	// b -> c -> d -> b, plus an a -> b tail hanging off the cycle
	roots := BuildTree([]models.Comment{
		c("a", "b"),
		c("b", "d"),
		c("c", "b"),
		c("d", "c"),
		c("e", ""),
	})

	assert.Equal(t, []string{"b", "e"}, ids(roots))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, collect(roots))
	assert.Equal(t, []string{"a", "c"}, ids(roots[0].Replies))
}

func TestBuildTreeCoversEveryCommentOnce(t *testing.T) {
	input := []models.Comment{
		c("1", ""), c("2", "1"), c("3", "2"), c("4", "4"),
		c("5", "6"), c("6", "5"), c("7", "missing"), c("8", "1"),
		c("2", "8"),
	}
	roots := BuildTree(input)

	all := collect(roots)
	assert.Len(t, all, len(input))
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "2"}, all)

	var check func(nodes []*Node)
	check = func(nodes []*Node) {
		for _, n := range nodes {
			for _, r := range n.Replies {
				assert.Equal(t, n.CommentID, r.ParentCommentID)
			}
			check(n.Replies)
		}
	}
	check(roots)
}

func TestBuildTreeDoesNotAliasInput(t *testing.T) {
	input := []models.Comment{c("1", "")}
	roots := BuildTree(input)
	roots[0].Description = "changed"
	assert.Equal(t, "comment 1", input[0].Description)
}

func TestFind(t *testing.T) {
	roots := BuildTree([]models.Comment{c("1", ""), c("2", "1"), c("3", "2")})
	require.NotNil(t, Find(roots, "3"))
	assert.Equal(t, "2", Find(roots, "3").ParentCommentID)
	assert.Nil(t, Find(roots, "9"))
}

func TestToggleAffectsOnlyThatID(t *testing.T) {
	state := NewCollapseState()
	assert.True(t, state.Toggle("2"))
	assert.True(t, state.IsCollapsed("2"))
	assert.False(t, state.IsCollapsed("1"))
	assert.False(t, state.IsCollapsed("3"))

	assert.True(t, state.Toggle("3"))
	assert.False(t, state.Toggle("2"))
	assert.False(t, state.IsCollapsed("2"))
	assert.True(t, state.IsCollapsed("3"))
	assert.Equal(t, []string{"3"}, state.Collapsed())
}

func TestFlatten(t *testing.T) {
	roots := BuildTree([]models.Comment{c("1", ""), c("2", "1"), c("3", "2"), c("4", "")})
	state := NewCollapseState()

	rows := Flatten(roots, state)
	require.Len(t, rows, 4)
	assert.Equal(t, []int{0, 1, 2, 0}, []int{rows[0].Depth, rows[1].Depth, rows[2].Depth, rows[3].Depth})
	assert.Equal(t, 1, rows[0].ReplyCount)

	state.Toggle("2")
	rows = Flatten(roots, state)
	require.Len(t, rows, 3)
	assert.Equal(t, "2", rows[1].Node.CommentID)
	assert.True(t, rows[1].Collapsed)
	assert.Equal(t, 1, rows[1].ReplyCount)

	state.Toggle("1")
	rows = Flatten(roots, state)
	assert.Len(t, rows, 2)

	// 2 keeps its own collapsed flag while its parent is folded
	state.Toggle("1")
	assert.True(t, state.IsCollapsed("2"))
	assert.Len(t, Flatten(roots, state), 3)
}
