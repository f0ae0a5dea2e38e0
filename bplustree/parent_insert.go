package bplus

// insertIntoParent records a split: rightID becomes the child immediately after
// leftID, separated by key. With no parent left on the path a new root is grown.
func (t *BPlusTree) insertIntoParent(path []pathEntry, leftID int64, key []byte, rightID int64) error {
	if len(path) == 0 {
		return t.newRoot(leftID, key, rightID)
	}

	pe := path[len(path)-1]
	parent := pe.node
	idx := pe.idx

	parent.keys = append(parent.keys, nil)
	copy(parent.keys[idx+1:], parent.keys[idx:])
	parent.keys[idx] = key

	parent.children = append(parent.children, 0)
	copy(parent.children[idx+2:], parent.children[idx+1:])
	parent.children[idx+1] = rightID

	if len(parent.children) > t.params.Order {
		return t.splitInternal(parent, path[:len(path)-1])
	}
	return t.writeNode(parent)
}

func (t *BPlusTree) newRoot(leftID int64, key []byte, rightID int64) error {
	root, err := t.allocNode(NodeInternal)
	if err != nil {
		return err
	}
	root.keys = append(root.keys, key)
	root.children = append(root.children, leftID, rightID)
	if err := t.writeNode(root); err != nil {
		return err
	}
	t.hdr.root = root.id
	t.hdr.height++
	return nil
}
