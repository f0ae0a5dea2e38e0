package bplus

import (
	"bytes"

	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// Insert adds r to the tree. A record with an equal key is replaced, in which
// case Insert reports false.
func (t *BPlusTree) Insert(r record.Record) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(r) != t.params.Factory.RecordLength() {
		return false, errs.Config("insert", "record length %d, tree wants %d", len(r),
			t.params.Factory.RecordLength())
	}
	rec := make(record.Record, len(r))
	copy(rec, r)
	key := rec[:t.params.Factory.KeyLength()]

	leaf, path, err := t.findLeaf(key)
	if err != nil {
		return false, err
	}

	i, found := t.searchLeaf(leaf, key)
	if found {
		if bytes.Equal(leaf.records[i], rec) {
			return false, nil
		}
		leaf.records[i] = rec
		return false, t.writeNode(leaf)
	}

	leaf.records = append(leaf.records, nil)
	copy(leaf.records[i+1:], leaf.records[i:])
	leaf.records[i] = rec

	if len(leaf.records) > t.params.LeafCapacity() {
		err = t.splitLeaf(leaf, path)
	} else {
		err = t.writeNode(leaf)
	}
	if err != nil {
		return false, err
	}
	t.hdr.count++
	return true, t.writeHeader()
}

// splitLeaf moves the upper half of an overfull leaf into a new right sibling
// and hands the sibling's first key to the parent.
func (t *BPlusTree) splitLeaf(leaf *Node, path []pathEntry) error {
	right, err := t.allocNode(NodeLeaf)
	if err != nil {
		return err
	}

	mid := len(leaf.records) / 2
	right.records = append(right.records, leaf.records[mid:]...)
	leaf.records = append([]record.Record(nil), leaf.records[:mid]...)

	right.next = leaf.next
	leaf.next = right.id

	if err := t.writeNode(right); err != nil {
		return err
	}
	if err := t.writeNode(leaf); err != nil {
		return err
	}

	sep := t.params.Factory.KeyOf(right.records[0])
	return t.insertIntoParent(path, leaf.id, sep, right.id)
}
