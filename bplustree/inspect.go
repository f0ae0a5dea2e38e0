// Package bplus: tree inspection for debugging.
// Use Inspect(w) to print a human-readable dump of a tree, level by level.

package bplus

import (
	"encoding/hex"
	"fmt"
	"io"
)

// Inspect writes the header and then every node in BFS order to w. Leaves show
// their records when verbose is set.
func (t *BPlusTree) Inspect(w io.Writer, verbose bool) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }
	pln := func(s string) { fmt.Fprintln(w, s) }

	h := t.hdr
	p("B+Tree: %s\n", t.params)
	p("  Block 0 (header): root=%d height=%d records=%d firstLeaf=%d blocks=%d\n",
		h.root, h.height, h.count, h.firstLeaf, t.mgr.Size())
	if h.count == 0 {
		pln("  (empty tree)")
	}

	pln("\n  Nodes (BFS):")
	pln("  ---")

	kl := t.params.Factory.KeyLength()
	queue := []int64{h.root}
	level := 0

	for len(queue) > 0 {
		size := len(queue)
		p("  Level %d:\n", level)
		for i := 0; i < size; i++ {
			id := queue[i]
			node, err := t.readNode(id)
			if err != nil {
				p("    [block %d] read error: %v\n", id, err)
				continue
			}

			if node.nodeType == NodeInternal {
				keyStrs := make([]string, len(node.keys))
				for j, k := range node.keys {
					keyStrs[j] = hex.EncodeToString(k)
				}
				p("    [block %d] INTERNAL keys=%v children=%v\n", id, keyStrs, node.children)
				queue = append(queue, node.children...)
				continue
			}

			p("    [block %d] LEAF records=%d next=%d\n", id, len(node.records), node.next)
			if verbose {
				for _, r := range node.records {
					if t.params.Factory.HasValue() {
						p("      %s -> %s\n", hex.EncodeToString(r[:kl]), hex.EncodeToString(r[kl:]))
					} else {
						p("      %s\n", hex.EncodeToString(r))
					}
				}
			}
		}
		pln("  ---")
		queue = queue[size:]
		level++
	}

	return nil
}
