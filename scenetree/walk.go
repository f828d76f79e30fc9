package scenetree

// Children returns the direct children of n.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Boolean:
		return v.Children
	case *Transform:
		return []Node{v.Child}
	case *Color:
		return []Node{v.Child}
	}
	return nil
}

// Walk visits n and its descendants depth first, parents before children.
// If fn returns false the node's children are skipped.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if IsNil(n) || !fn(n, depth) {
		return
	}
	for _, c := range Children(n) {
		walk(c, depth+1, fn)
	}
}

// Depth returns the number of levels in the tree; a single leaf has depth 1.
func Depth(n Node) int {
	d := 0
	Walk(n, func(_ Node, depth int) bool {
		d = max(d, depth+1)
		return true
	})
	return d
}

// Count returns the number of nodes in the tree.
func Count(n Node) int {
	c := 0
	Walk(n, func(Node, int) bool {
		c++
		return true
	})
	return c
}
