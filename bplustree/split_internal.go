package bplus

// splitInternal splits an internal node holding order+1 children. The middle
// key moves up; it is not kept in either half.
func (t *BPlusTree) splitInternal(node *Node, path []pathEntry) error {
	right, err := t.allocNode(NodeInternal)
	if err != nil {
		return err
	}

	mid := len(node.keys) / 2
	promote := node.keys[mid]

	right.keys = append(right.keys, node.keys[mid+1:]...)
	right.children = append(right.children, node.children[mid+1:]...)

	node.keys = append([][]byte(nil), node.keys[:mid]...)
	node.children = append([]int64(nil), node.children[:mid+1]...)

	if err := t.writeNode(right); err != nil {
		return err
	}
	if err := t.writeNode(node); err != nil {
		return err
	}
	return t.insertIntoParent(path, node.id, promote, right.id)
}
