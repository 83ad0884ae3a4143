package template

// pruneWhitespace removes whitespace-only constant interpolations whose
// neighbours are all structural or absent. Whitespace next to text or an
// interpolation is kept.
func pruneWhitespace(nodes []*Node) []*Node {
	var out []*Node
	for i, n := range nodes {
		n.children = pruneWhitespace(n.children)
		if isBlankText(n) && structuralAt(nodes, i-1) && structuralAt(nodes, i+1) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func structuralAt(nodes []*Node, i int) bool {
	return i < 0 || i >= len(nodes) || nodes[i].kind.IsStructural()
}
