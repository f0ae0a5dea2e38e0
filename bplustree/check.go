package bplus

import (
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// Check verifies the structure of the whole tree: ordering inside and across
// nodes, separator bounds, uniform leaf depth, minimum occupancy below the
// root, the leaf chain and the header record count.
func (t *BPlusTree) Check() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := &checker{t: t}
	if err := c.node(t.hdr.root, 1, nil, nil, true); err != nil {
		return err
	}
	if c.count != t.hdr.count {
		return errs.Integrity("check", "header counts %d records, tree holds %d", t.hdr.count,
			c.count)
	}
	if len(c.leaves) == 0 || c.leaves[0] != t.hdr.firstLeaf {
		return errs.Integrity("check", "header first leaf %d is not the leftmost leaf",
			t.hdr.firstLeaf)
	}

	id := t.hdr.firstLeaf
	for i, want := range c.leaves {
		if id != want {
			return errs.Integrity("check", "leaf chain position %d is %d, tree order says %d",
				i, id, want)
		}
		n, err := t.readLinked(id)
		if err != nil {
			return err
		}
		id = n.next
	}
	if id != 0 {
		return errs.Integrity("check", "leaf chain continues past the last leaf to %d", id)
	}
	return nil
}

type checker struct {
	t      *BPlusTree
	count  int64
	leaves []int64
}

// node checks the subtree at id, whose keys must lie in [lo, hi).
func (c *checker) node(id int64, depth int, lo, hi []byte, root bool) error {
	t := c.t
	if id <= 0 || !t.mgr.Valid(id) {
		return errs.Integrity("check", "child link %d outside the file", id)
	}
	n, err := t.readNode(id)
	if err != nil {
		return err
	}

	inBounds := func(k []byte) bool {
		return (lo == nil || record.Compare(k, lo) >= 0) && (hi == nil || record.Compare(k, hi) < 0)
	}

	if n.isLeaf() {
		if depth != t.hdr.height {
			return errs.Integrity("check", "leaf %d at depth %d, height %d", id, depth, t.hdr.height)
		}
		if !root && len(n.records) < t.params.MinLeafRecords() {
			return errs.Integrity("check", "leaf %d underfull: %d records", id, len(n.records))
		}
		kl := t.params.Factory.KeyLength()
		for i, r := range n.records {
			if !inBounds(r[:kl]) {
				return errs.Integrity("check", "leaf %d record %d key %x outside its range", id, i,
					r[:kl])
			}
			if i > 0 && record.Compare(n.records[i-1][:kl], r[:kl]) >= 0 {
				return errs.Integrity("check", "leaf %d records out of order at %d", id, i)
			}
		}
		c.count += int64(len(n.records))
		c.leaves = append(c.leaves, id)
		return nil
	}

	if depth >= t.hdr.height {
		return errs.Integrity("check", "internal node %d at depth %d, height %d", id, depth,
			t.hdr.height)
	}
	if root && len(n.children) < 2 {
		return errs.Integrity("check", "internal root %d has %d children", id, len(n.children))
	}
	if !root && len(n.children) < t.params.MinChildren() {
		return errs.Integrity("check", "internal node %d underfull: %d children", id,
			len(n.children))
	}
	for i, k := range n.keys {
		if !inBounds(k) {
			return errs.Integrity("check", "internal node %d key %d outside its range", id, i)
		}
		if i > 0 && record.Compare(n.keys[i-1], k) >= 0 {
			return errs.Integrity("check", "internal node %d keys out of order at %d", id, i)
		}
	}
	for i, child := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = n.keys[i-1]
		}
		if i < len(n.keys) {
			chi = n.keys[i]
		}
		if err := c.node(child, depth+1, clo, chi, false); err != nil {
			return err
		}
	}
	return nil
}
