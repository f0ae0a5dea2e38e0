package rangeindex

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	bplus "DaemonRDF/bplustree"
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// MemIndex keeps records in a google/btree. Nothing is persisted.
type MemIndex struct {
	mu      sync.RWMutex
	tree    *btree.BTree
	factory record.Factory
}

type memItem struct {
	key []byte
	rec record.Record
}

func (mi memItem) Less(item btree.Item) bool {
	return bytes.Compare(mi.key, item.(memItem).key) < 0
}

func NewMemIndex(factory record.Factory) *MemIndex {
	return &MemIndex{
		tree:    btree.New(16),
		factory: factory,
	}
}

func (mi *MemIndex) Factory() record.Factory {
	return mi.factory
}

func (mi *MemIndex) Insert(r record.Record) (bool, error) {
	if len(r) != mi.factory.RecordLength() {
		return false, errs.Config("insert", "record length %d, index wants %d", len(r),
			mi.factory.RecordLength())
	}
	rec := make(record.Record, len(r))
	copy(rec, r)

	mi.mu.Lock()
	defer mi.mu.Unlock()
	prev := mi.tree.ReplaceOrInsert(memItem{key: mi.factory.Key(rec), rec: rec})
	return prev == nil, nil
}

func (mi *MemIndex) keyOf(op string, key []byte) ([]byte, error) {
	if len(key) == mi.factory.RecordLength() {
		key = key[:mi.factory.KeyLength()]
	}
	if len(key) != mi.factory.KeyLength() {
		return nil, errs.Config(op, "key length %d, index wants %d", len(key),
			mi.factory.KeyLength())
	}
	return key, nil
}

func (mi *MemIndex) Delete(key []byte) (bool, error) {
	key, err := mi.keyOf("delete", key)
	if err != nil {
		return false, err
	}

	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.tree.Delete(memItem{key: key}) != nil, nil
}

func (mi *MemIndex) Find(key []byte) (record.Record, bool, error) {
	key, err := mi.keyOf("find", key)
	if err != nil {
		return nil, false, err
	}

	mi.mu.RLock()
	defer mi.mu.RUnlock()
	item := mi.tree.Get(memItem{key: key})
	if item == nil {
		return nil, false, nil
	}
	return item.(memItem).rec, true, nil
}

// Iterator snapshots the matching records up front, so it is unaffected by
// later changes to the index.
func (mi *MemIndex) Iterator(min, max []byte) (Iterator, error) {
	kl := mi.factory.KeyLength()
	if len(min) > kl {
		min = min[:kl]
	}
	if len(max) > kl {
		max = max[:kl]
	}

	mi.mu.RLock()
	defer mi.mu.RUnlock()

	var items []record.Record
	visit := func(item btree.Item) bool {
		mItem := item.(memItem)
		if max != nil && bytes.Compare(mItem.key, max) >= 0 {
			return false
		}
		items = append(items, mItem.rec)
		return true
	}
	if min == nil {
		mi.tree.Ascend(visit)
	} else {
		mi.tree.AscendGreaterOrEqual(memItem{key: min}, visit)
	}
	return &sliceIterator{items: items}, nil
}

func (mi *MemIndex) Scan(prefix []byte) (Iterator, error) {
	return mi.Iterator(prefix, bplus.PrefixSuccessor(prefix))
}

func (mi *MemIndex) Size() int64 {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return int64(mi.tree.Len())
}

func (mi *MemIndex) IsEmpty() bool {
	return mi.Size() == 0
}

func (mi *MemIndex) Sync() error {
	return nil
}

func (mi *MemIndex) Close() error {
	return nil
}

type sliceIterator struct {
	items []record.Record
	idx   int
	cur   record.Record
	err   error
}

func (si *sliceIterator) Next() bool {
	if si.idx >= len(si.items) {
		return false
	}
	si.cur = si.items[si.idx]
	si.idx++
	return true
}

func (si *sliceIterator) Record() record.Record {
	return si.cur
}

func (si *sliceIterator) Err() error {
	return si.err
}

func (si *sliceIterator) Close() {
	si.items = nil
	si.idx = 0
}
