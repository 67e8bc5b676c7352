package comments

import "sync"

// CollapseState records which comments have their replies folded away.
// Absent ids are expanded.
type CollapseState struct {
	mu        sync.RWMutex
	collapsed map[string]bool
}

// NewCollapseState returns a state with every comment expanded.
func NewCollapseState() *CollapseState {
	return &CollapseState{collapsed: make(map[string]bool)}
}

// Toggle flips one comment and reports its new collapsed value.
// Ancestors and descendants are left alone.
func (s *CollapseState) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collapsed[id] {
		delete(s.collapsed, id)
		return false
	}
	s.collapsed[id] = true
	return true
}

func (s *CollapseState) IsCollapsed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collapsed[id]
}

// Collapsed returns the ids currently collapsed.
func (s *CollapseState) Collapsed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.collapsed))
	for id := range s.collapsed {
		ids = append(ids, id)
	}
	return ids
}

// Row is one rendered line of a comment thread
type Row struct {
	Node       *Node `json:"-"`
	Depth      int   `json:"depth"`
	ReplyCount int   `json:"replyCount"`
	Collapsed  bool  `json:"collapsed"`
}

// Flatten walks the forest depth first and returns the visible rows.
// Replies of a collapsed comment are omitted; the comment itself stays.
func Flatten(roots []*Node, state *CollapseState) []Row {
	rows := make([]Row, 0)
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			collapsed := state != nil && state.IsCollapsed(n.CommentID)
			rows = append(rows, Row{
				Node:       n,
				Depth:      depth,
				ReplyCount: len(n.Replies),
				Collapsed:  collapsed,
			})
			if !collapsed {
				walk(n.Replies, depth+1)
			}
		}
	}
	walk(roots, 0)
	return rows
}
