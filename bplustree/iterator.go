package bplus

import (
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// Iterator is a forward-only scan along the leaf chain over [min, max).
// Mutating the tree while an iterator is open gives undefined results.
type Iterator struct {
	tree   *BPlusTree
	leaf   *Node
	index  int
	max    []byte
	cur    record.Record
	err    error
	done   bool
	locked bool // take the tree read lock per leaf hop
}

// Iterator returns the records with min <= key < max. A nil bound is open.
// Bounds shorter than the key compare as prefixes.
func (t *BPlusTree) Iterator(min, max []byte) (*Iterator, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	it, err := t.iterate(min, max)
	if err != nil {
		return nil, err
	}
	it.locked = true
	return it, nil
}

// All iterates every record in key order.
func (t *BPlusTree) All() (*Iterator, error) {
	return t.Iterator(nil, nil)
}

// Scan iterates the records whose key starts with prefix.
func (t *BPlusTree) Scan(prefix []byte) (*Iterator, error) {
	return t.Iterator(prefix, PrefixSuccessor(prefix))
}

// PrefixSuccessor is the smallest byte string greater than every string with
// the given prefix, or nil when there is none (all 0xFF).
func PrefixSuccessor(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	succ := make([]byte, len(prefix))
	copy(succ, prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] != 0xFF {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}

// iterate builds an iterator without locking; the caller holds the lock.
func (t *BPlusTree) iterate(min, max []byte) (*Iterator, error) {
	kl := t.params.Factory.KeyLength()
	if len(min) > kl {
		min = min[:kl]
	}
	if len(max) > kl {
		max = max[:kl]
	}

	it := &Iterator{tree: t, max: max}

	var (
		leaf *Node
		err  error
	)
	if min == nil {
		leaf, err = t.readLinked(t.hdr.firstLeaf)
	} else {
		leaf, _, err = t.findLeaf(min)
	}
	if err != nil {
		return nil, err
	}
	it.leaf = leaf
	if min != nil {
		it.index, _ = t.searchLeaf(leaf, min)
	}
	return it, nil
}

// readLinked follows a leaf-chain link, which must name a live leaf block.
func (t *BPlusTree) readLinked(id int64) (*Node, error) {
	if id <= 0 || !t.mgr.Valid(id) {
		return nil, errs.Integrity("scan", "leaf link %d outside the file (%d blocks)", id,
			t.mgr.Size())
	}
	n, err := t.readNode(id)
	if err != nil {
		return nil, err
	}
	if !n.isLeaf() {
		return nil, errs.Integrity("scan", "leaf link %d leads to a %s node", id, n.nodeType)
	}
	return n, nil
}

// Next advances to the next record. It returns false when the range is
// exhausted or an error occurred; check Err.
func (it *Iterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	for it.index >= len(it.leaf.records) {
		if it.leaf.next == 0 {
			it.done = true
			return false
		}
		if it.locked {
			it.tree.mu.RLock()
		}
		next, err := it.tree.readLinked(it.leaf.next)
		if it.locked {
			it.tree.mu.RUnlock()
		}
		if err != nil {
			it.err = err
			return false
		}
		it.leaf = next
		it.index = 0
	}

	r := it.leaf.records[it.index]
	if it.max != nil && record.Compare(r[:it.tree.params.Factory.KeyLength()], it.max) >= 0 {
		it.done = true
		return false
	}
	it.cur = r
	it.index++
	return true
}

// Record is the record at the current position. It belongs to the caller.
func (it *Iterator) Record() record.Record {
	return it.cur
}

func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) Close() {
	it.done = true
	it.leaf = nil
}
