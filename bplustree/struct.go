// Structure of B+ Tree
/*
Tree file (<name>.dat), one block per node
 ├── Block 0: tree header (root id, height, record count, first leaf, shape)
 ├── Internal Node (separator keys + child block ids)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (fixed-length records + next link)

- records: sorted ascending by key bytes, unsigned
- internal nodes: children length == len(keys)+1, at most `order` children
- child i holds keys in [keys[i-1], keys[i])
- leaf nodes hold at most LeafCapacity records
- leaf nodes linked with `next` for range scans and for compaction
- all leaf nodes at same depth
- block 0 is the header, so a link of 0 means "none"
*/
package bplus

import (
	"sync"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/record"
)

type NodeType byte

const (
	NodeLeaf     NodeType = 1
	NodeInternal NodeType = 2
)

func (nt NodeType) String() string {
	switch nt {
	case NodeLeaf:
		return "leaf"
	case NodeInternal:
		return "internal"
	}
	return "unknown"
}

const (
	NodeHeaderSize = 12 // kind(1) reserved(1) count(2) link(8)
	PointerSize    = 8
	MinOrder       = 3
	MinBlockSize   = 64

	headerMagic   = "BPT1"
	formatVersion = 1
)

type Node struct {
	id       int64
	nodeType NodeType
	records  []record.Record // leaf nodes
	keys     [][]byte        // internal nodes: separator keys
	children []int64         // internal nodes
	next     int64           // leaf nodes: next leaf, 0 = last
}

// header is the content of block 0.
type header struct {
	keyLength   int
	valueLength int
	blockSize   int
	order       int
	root        int64
	height      int
	count       int64
	firstLeaf   int64
}

type BPlusTree struct {
	params Params
	mgr    blockmgr.BlockMgr
	hdr    header
	mu     sync.RWMutex
}

// pathEntry remembers, for each internal node on the way down, which child
// was followed.
type pathEntry struct {
	node *Node
	idx  int
}
