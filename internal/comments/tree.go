// Package comments turns the flat comment list of a listing into a reply tree.
package comments

import "github.com/Fn-M/HousingManager/internal/models"

// Node is a comment together with its direct replies
type Node struct {
	models.Comment
	Replies []*Node `json:"replies"`
}

// BuildTree arranges comments into a forest. Siblings keep their input order.
// A comment whose parent is missing from the set, is itself, or lies on a
// parent cycle becomes a root, so every input comment appears exactly once.
func BuildTree(list []models.Comment) []*Node {
	roots := make([]*Node, 0)
	if len(list) == 0 {
		return roots
	}

	nodes := make([]*Node, len(list))
	byID := make(map[string]int, len(list))
	for i, c := range list {
		nodes[i] = &Node{Comment: c, Replies: make([]*Node, 0)}
		if _, dup := byID[c.CommentID]; !dup {
			byID[c.CommentID] = i
		}
	}

	parent := make([]int, len(list))
	for i, c := range list {
		parent[i] = -1
		if !c.IsReply() {
			continue
		}
		if p, ok := byID[c.ParentCommentID]; ok && p != i {
			parent[i] = p
		}
	}
	breakCycles(parent)

	for i, n := range nodes {
		if p := parent[i]; p >= 0 {
			nodes[p].Replies = append(nodes[p].Replies, n)
		} else {
			roots = append(roots, n)
		}
	}
	return roots
}

// breakCycles detaches, for every parent cycle, the member with the lowest
// index. Each index is walked at most once overall.
func breakCycles(parent []int) {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(parent))
	path := make([]int, 0)

	for start := range parent {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		i := start
		for i >= 0 && state[i] == unvisited {
			state[i] = onPath
			path = append(path, i)
			i = parent[i]
		}
		if i >= 0 && state[i] == onPath {
			// i closes a cycle; its members are the tail of path from i.
			first := i
			for k := len(path) - 1; path[k] != i; k-- {
				first = min(first, path[k])
			}
			parent[first] = -1
		}
		for _, k := range path {
			state[k] = done
		}
	}
}

// Count returns the number of comments in the subtree below n.
func (n *Node) Count() int {
	total := 0
	for _, r := range n.Replies {
		total += 1 + r.Count()
	}
	return total
}

// Find looks up a comment anywhere in the forest.
func Find(roots []*Node, id string) *Node {
	for _, n := range roots {
		if n.CommentID == id {
			return n
		}
		if found := Find(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}
