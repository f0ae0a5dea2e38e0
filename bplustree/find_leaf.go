package bplus

import (
	"sort"

	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// childIndex picks the child of an internal node whose range holds key: the
// number of separators <= key.
func childIndex(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool {
		return record.Compare(keys[i], key) > 0
	})
}

// searchLeaf returns the first slot whose key is >= key, and whether that slot
// holds key exactly.
func (t *BPlusTree) searchLeaf(n *Node, key []byte) (int, bool) {
	kl := t.params.Factory.KeyLength()
	i := sort.Search(len(n.records), func(i int) bool {
		return record.Compare(n.records[i][:kl], key) >= 0
	})
	return i, i < len(n.records) && record.Compare(n.records[i][:kl], key) == 0
}

// findLeaf descends from the root to the leaf whose range holds key, recording
// the internal nodes passed through and the child taken at each.
func (t *BPlusTree) findLeaf(key []byte) (*Node, []pathEntry, error) {
	var path []pathEntry

	id := t.hdr.root
	for depth := 1; ; depth++ {
		n, err := t.readNode(id)
		if err != nil {
			return nil, nil, err
		}
		if n.isLeaf() {
			if depth != t.hdr.height {
				return nil, nil, errs.Integrity("descend", "leaf %d at depth %d, tree height %d",
					n.id, depth, t.hdr.height)
			}
			return n, path, nil
		}
		if depth >= t.hdr.height {
			return nil, nil, errs.Integrity("descend", "internal node %d below tree height %d",
				n.id, t.hdr.height)
		}
		idx := childIndex(n.keys, key)
		path = append(path, pathEntry{node: n, idx: idx})
		id = n.children[idx]
	}
}

// leftmostLeaf follows child 0 down from node id.
func (t *BPlusTree) leftmostLeaf(id int64) (*Node, error) {
	for {
		n, err := t.readNode(id)
		if err != nil {
			return nil, err
		}
		if n.isLeaf() {
			return n, nil
		}
		id = n.children[0]
	}
}

// rightmostLeaf follows the last child down from node id.
func (t *BPlusTree) rightmostLeaf(id int64) (*Node, error) {
	for {
		n, err := t.readNode(id)
		if err != nil {
			return nil, err
		}
		if n.isLeaf() {
			return n, nil
		}
		id = n.children[len(n.children)-1]
	}
}
