package bplus

import (
	"DaemonRDF/record"
)

// Delete removes the record with the given key. A missing key is not an error:
// Delete reports false.
func (t *BPlusTree) Delete(key []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key, err := t.keyOf("delete", key)
	if err != nil {
		return false, err
	}

	leaf, path, err := t.findLeaf(key)
	if err != nil {
		return false, err
	}
	i, found := t.searchLeaf(leaf, key)
	if !found {
		return false, nil
	}

	leaf.records = append(leaf.records[:i], leaf.records[i+1:]...)

	if err := t.rebalance(leaf, path); err != nil {
		return false, err
	}
	t.hdr.count--
	return true, t.writeHeader()
}

func (t *BPlusTree) minSize(n *Node) int {
	if n.isLeaf() {
		return t.params.MinLeafRecords()
	}
	return t.params.MinChildren()
}

// rebalance writes n back after a removal, fixing underflow by borrowing from a
// sibling or merging with one. A merge removes a child from the parent, so the
// parent is rebalanced in turn.
func (t *BPlusTree) rebalance(n *Node, path []pathEntry) error {
	if len(path) == 0 {
		if !n.isLeaf() && len(n.children) == 1 {
			t.hdr.root = n.children[0]
			t.hdr.height--
			return t.freeNode(n)
		}
		return t.writeNode(n)
	}

	if n.size() >= t.minSize(n) {
		return t.writeNode(n)
	}

	pe := path[len(path)-1]
	parent := pe.node
	idx := pe.idx

	var left, right *Node
	var err error

	if idx > 0 {
		if left, err = t.readNode(parent.children[idx-1]); err != nil {
			return err
		}
		if left.size() > t.minSize(left) {
			t.borrowFromLeft(left, n, parent, idx)
			return t.writeNodes(left, n, parent)
		}
	}
	if idx < len(parent.children)-1 {
		if right, err = t.readNode(parent.children[idx+1]); err != nil {
			return err
		}
		if right.size() > t.minSize(right) {
			t.borrowFromRight(n, right, parent, idx)
			return t.writeNodes(n, right, parent)
		}
	}

	if left != nil {
		err = t.merge(left, n, parent, idx-1)
	} else {
		err = t.merge(n, right, parent, idx)
	}
	if err != nil {
		return err
	}
	return t.rebalance(parent, path[:len(path)-1])
}

func (t *BPlusTree) writeNodes(nodes ...*Node) error {
	for _, n := range nodes {
		if err := t.writeNode(n); err != nil {
			return err
		}
	}
	return nil
}

// borrowFromLeft moves the last entry of left to the front of n.
func (t *BPlusTree) borrowFromLeft(left, n, parent *Node, idx int) {
	if n.isLeaf() {
		last := left.records[len(left.records)-1]
		left.records = left.records[:len(left.records)-1]
		n.records = append([]record.Record{last}, n.records...)
		parent.keys[idx-1] = t.params.Factory.KeyOf(n.records[0])
		return
	}

	lastKey := left.keys[len(left.keys)-1]
	lastChild := left.children[len(left.children)-1]
	left.keys = left.keys[:len(left.keys)-1]
	left.children = left.children[:len(left.children)-1]

	n.keys = append([][]byte{parent.keys[idx-1]}, n.keys...)
	n.children = append([]int64{lastChild}, n.children...)
	parent.keys[idx-1] = lastKey
}

// borrowFromRight moves the first entry of right to the end of n.
func (t *BPlusTree) borrowFromRight(n, right, parent *Node, idx int) {
	if n.isLeaf() {
		n.records = append(n.records, right.records[0])
		right.records = append([]record.Record(nil), right.records[1:]...)
		parent.keys[idx] = t.params.Factory.KeyOf(right.records[0])
		return
	}

	n.keys = append(n.keys, parent.keys[idx])
	n.children = append(n.children, right.children[0])
	parent.keys[idx] = right.keys[0]
	right.keys = append([][]byte(nil), right.keys[1:]...)
	right.children = append([]int64(nil), right.children[1:]...)
}

// merge folds right into left. sep is the index in parent of the key between them.
func (t *BPlusTree) merge(left, right, parent *Node, sep int) error {
	if left.isLeaf() {
		left.records = append(left.records, right.records...)
		left.next = right.next
	} else {
		left.keys = append(left.keys, parent.keys[sep])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}

	parent.keys = append(parent.keys[:sep], parent.keys[sep+1:]...)
	parent.children = append(parent.children[:sep+1], parent.children[sep+2:]...)

	if err := t.writeNode(left); err != nil {
		return err
	}
	return t.freeNode(right)
}
