package bplus

import (
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

func (t *BPlusTree) checkKey(op string, key []byte) error {
	if len(key) != t.params.Factory.KeyLength() {
		return errs.Config(op, "key length %d, tree wants %d", len(key),
			t.params.Factory.KeyLength())
	}
	return nil
}

// keyOf accepts either a bare key or a whole record and returns the key part.
func (t *BPlusTree) keyOf(op string, key []byte) ([]byte, error) {
	kl := t.params.Factory.KeyLength()
	if len(key) == kl+t.params.Factory.ValueLength() {
		key = key[:kl]
	}
	if err := t.checkKey(op, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Find returns the stored record with the given key.
func (t *BPlusTree) Find(key []byte) (record.Record, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	key, err := t.keyOf("find", key)
	if err != nil {
		return nil, false, err
	}
	leaf, _, err := t.findLeaf(key)
	if err != nil {
		return nil, false, err
	}
	i, found := t.searchLeaf(leaf, key)
	if !found {
		return nil, false, nil
	}
	return leaf.records[i], true, nil
}

func (t *BPlusTree) Contains(key []byte) (bool, error) {
	_, found, err := t.Find(key)
	return found, err
}

// MinKey returns the smallest record, or nil for an empty tree.
func (t *BPlusTree) MinKey() (record.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.hdr.count == 0 {
		return nil, nil
	}
	leaf, err := t.leftmostLeaf(t.hdr.root)
	if err != nil {
		return nil, err
	}
	if len(leaf.records) == 0 {
		return nil, errs.Integrity("minkey", "leftmost leaf %d is empty in a non-empty tree", leaf.id)
	}
	return leaf.records[0], nil
}

// MaxKey returns the largest record, or nil for an empty tree.
func (t *BPlusTree) MaxKey() (record.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.hdr.count == 0 {
		return nil, nil
	}
	leaf, err := t.rightmostLeaf(t.hdr.root)
	if err != nil {
		return nil, err
	}
	if len(leaf.records) == 0 {
		return nil, errs.Integrity("maxkey", "rightmost leaf %d is empty in a non-empty tree", leaf.id)
	}
	return leaf.records[len(leaf.records)-1], nil
}
