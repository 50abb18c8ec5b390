package search

// pathNode is the last step of a partial path. Paths pushed from the same
// parent share their prefix through the parent pointer.
type pathNode struct {
	title  string
	parent *pathNode
	depth  int
}

func newRoot(title string) *pathNode {
	return &pathNode{title: title}
}

func (n *pathNode) child(title string) *pathNode {
	return &pathNode{title: title, parent: n, depth: n.depth + 1}
}

// titles returns the full path from the start to n
func (n *pathNode) titles() []string {
	path := make([]string, n.depth+1)
	for cur := n; cur != nil; cur = cur.parent {
		path[cur.depth] = cur.title
	}
	return path
}

// frontier is the FIFO of partial paths awaiting expansion
type frontier struct {
	items []*pathNode
}

// push appends a path to the back of the frontier
func (f *frontier) push(n *pathNode) {
	f.items = append(f.items, n)
}

// pop removes and returns the front path
// Returns (nil, false) when the frontier is empty
func (f *frontier) pop() (*pathNode, bool) {
	if len(f.items) == 0 {
		return nil, false
	}
	n := f.items[0]
	f.items[0] = nil
	f.items = f.items[1:]
	return n, true
}

func (f *frontier) size() int {
	return len(f.items)
}
