package bplus

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

/*
Rewrite and Build pack a sorted stream of records into a fresh tree:

  - leaves are filled to capacity in key order and written as they fill,
    each linked to the next block allocated, so the leaf chain is sequential
  - the last two leaves are balanced so neither falls below minimum occupancy
  - each internal level is built from the (block id, first key) pairs of the
    level below, again filled to order, with the last two nodes balanced
  - the header is written last, so a crash mid-build leaves no valid tree
*/

// RecordIterator is a source of records in strictly ascending key order.
type RecordIterator interface {
	Next() bool
	Record() record.Record
	Err() error
}

// levelEntry is one node of a finished level: where it lives and the smallest
// key beneath it.
type levelEntry struct {
	id       int64
	firstKey []byte
}

// Rewrite copies src into dst, which must be empty, producing a densely packed
// tree with the same records. src is read-locked for the duration.
func Rewrite(src *BPlusTree, dst blockmgr.BlockMgr) (*BPlusTree, error) {
	src.mu.RLock()
	defer src.mu.RUnlock()

	it, err := src.iterate(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start rewrite scan: %w", err)
	}
	defer it.Close()

	t, err := Build(dst, src.params, it)
	if err != nil {
		return nil, err
	}
	if t.hdr.count != src.hdr.count {
		return nil, errs.Integrity("rewrite", "rewrote %d records, source header says %d",
			t.hdr.count, src.hdr.count)
	}

	log.WithFields(log.Fields{
		"records":    t.hdr.count,
		"src_blocks": src.mgr.Size(),
		"dst_blocks": dst.Size(),
		"height":     t.hdr.height,
	}).Debug("bplustree rewrite done")
	return t, nil
}

// Build packs the records of it into an empty block manager.
func Build(mgr blockmgr.BlockMgr, params Params, it RecordIterator) (*BPlusTree, error) {
	if mgr.Size() != 0 {
		return nil, errs.Config("build", "target block manager is not empty (%d blocks)", mgr.Size())
	}
	if mgr.BlockSize() != params.BlockSize {
		return nil, errs.Config("build", "block manager uses %d-byte blocks, tree wants %d",
			mgr.BlockSize(), params.BlockSize)
	}

	t := &BPlusTree{params: params, mgr: mgr}
	t.hdr = header{
		keyLength:   params.Factory.KeyLength(),
		valueLength: params.Factory.ValueLength(),
		blockSize:   params.BlockSize,
		order:       params.Order,
	}
	if id, err := mgr.Allocate(); err != nil {
		return nil, err
	} else if id != 0 {
		return nil, errs.Integrity("build", "header allocated at block %d", id)
	}

	level, err := t.packLeaves(it)
	if err != nil {
		return nil, err
	}
	t.hdr.firstLeaf = level[0].id
	t.hdr.height = 1

	for len(level) > 1 {
		if level, err = t.packLevel(level); err != nil {
			return nil, err
		}
		t.hdr.height++
	}
	t.hdr.root = level[0].id

	if err := t.writeHeader(); err != nil {
		return nil, err
	}
	if err := mgr.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync built tree: %w", err)
	}
	return t, nil
}

func (t *BPlusTree) packLeaves(it RecordIterator) ([]levelEntry, error) {
	f := t.params.Factory
	kl := f.KeyLength()
	capacity := t.params.LeafCapacity()

	var level []levelEntry
	emit := func(n *Node) error {
		if err := t.writeNode(n); err != nil {
			return err
		}
		var first []byte
		if len(n.records) > 0 {
			first = f.KeyOf(n.records[0])
		}
		level = append(level, levelEntry{id: n.id, firstKey: first})
		return nil
	}

	// prev is held back one step so the final pair can be balanced
	var prev *Node
	cur, err := t.allocNode(NodeLeaf)
	if err != nil {
		return nil, err
	}

	var last []byte
	for it.Next() {
		r := it.Record()
		if len(r) != f.RecordLength() {
			return nil, errs.Config("build", "record length %d, tree wants %d", len(r),
				f.RecordLength())
		}
		if last != nil && record.Compare(r[:kl], last) <= 0 {
			return nil, errs.Range("build", "records not in strictly ascending order at key %x", r[:kl])
		}

		if len(cur.records) == capacity {
			next, err := t.allocNode(NodeLeaf)
			if err != nil {
				return nil, err
			}
			cur.next = next.id
			if prev != nil {
				if err := emit(prev); err != nil {
					return nil, err
				}
			}
			prev, cur = cur, next
		}

		rec := make(record.Record, len(r))
		copy(rec, r)
		cur.records = append(cur.records, rec)
		last = rec[:kl]
		t.hdr.count++
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed reading build input: %w", err)
	}

	if prev != nil {
		if len(cur.records) < t.params.MinLeafRecords() {
			all := append(prev.records, cur.records...)
			split := (len(all) + 1) / 2
			prev.records = append([]record.Record(nil), all[:split]...)
			cur.records = append([]record.Record(nil), all[split:]...)
		}
		if err := emit(prev); err != nil {
			return nil, err
		}
	}
	if err := emit(cur); err != nil {
		return nil, err
	}
	return level, nil
}

func (t *BPlusTree) packLevel(below []levelEntry) ([]levelEntry, error) {
	order := t.params.Order

	var groups [][]levelEntry
	for start := 0; start < len(below); start += order {
		end := start + order
		if end > len(below) {
			end = len(below)
		}
		groups = append(groups, below[start:end])
	}
	if n := len(groups); n > 1 && len(groups[n-1]) < t.params.MinChildren() {
		all := append(append([]levelEntry(nil), groups[n-2]...), groups[n-1]...)
		split := (len(all) + 1) / 2
		groups[n-2], groups[n-1] = all[:split], all[split:]
	}

	level := make([]levelEntry, 0, len(groups))
	for _, g := range groups {
		n, err := t.allocNode(NodeInternal)
		if err != nil {
			return nil, err
		}
		for i, e := range g {
			n.children = append(n.children, e.id)
			if i > 0 {
				n.keys = append(n.keys, e.firstKey)
			}
		}
		if err := t.writeNode(n); err != nil {
			return nil, err
		}
		level = append(level, levelEntry{id: n.id, firstKey: g[0].firstKey})
	}
	return level, nil
}

// LeafCount walks the leaf chain.
func (t *BPlusTree) LeafCount() (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	id := t.hdr.firstLeaf
	for id != 0 {
		n, err := t.readLinked(id)
		if err != nil {
			return count, err
		}
		count++
		id = n.next
	}
	return count, nil
}
