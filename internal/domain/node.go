package domain

import "time"

// Defaults applied to new taxonomy nodes.
const (
	DefaultNodeIcon  = "📝"
	DefaultNodeColor = "#40E0D0"
)

// Node is a taxonomy category ("hobby"). Nodes form a forest: ParentID is nil
// for roots. Slug is globally unique and immutable after creation.
type Node struct {
	ID        int64          `json:"id"`
	ParentID  *int64         `json:"parent_id,omitempty"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Icon      string         `json:"icon"`
	Color     string         `json:"color"`
	Config    map[string]any `json:"config"`
	Position  int            `json:"position"`
	Active    bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// NodeTree is a node with its active children and the number of entries
// attached directly to it.
type NodeTree struct {
	Node
	EntryCount int         `json:"entry_count"`
	Children   []*NodeTree `json:"children"`
}

// BuildForest arranges nodes into trees. Input order is kept among siblings,
// so callers pass nodes already sorted by position and name. Nodes whose parent
// is not in the input become roots.
func BuildForest(nodes []*Node, entryCounts map[int64]int) []*NodeTree {
	byID := make(map[int64]*NodeTree, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &NodeTree{Node: *n, EntryCount: entryCounts[n.ID], Children: []*NodeTree{}}
	}

	roots := make([]*NodeTree, 0)
	for _, n := range nodes {
		t := byID[n.ID]
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, t)
				continue
			}
		}
		roots = append(roots, t)
	}
	return roots
}

// DeleteSubtreeResult reports what a subtree delete removed.
type DeleteSubtreeResult struct {
	Nodes   int `json:"nodes"`
	Entries int `json:"entries"`
	Shelves int `json:"shelves"`
}
