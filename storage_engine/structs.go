package storageengine

import (
	"sync"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/config"
	"DaemonRDF/metadata"
	nodetable "DaemonRDF/node_table"
	objectfile "DaemonRDF/object_file"
	rangeindex "DaemonRDF/range_index"
	"DaemonRDF/record"
)

const (
	// primary column orders of triple and quad tuples
	TriplePrimary = "SPO"
	QuadPrimary   = "GSPO"

	NodesFile = "nodes.dat"
	Node2Id   = "node2id"
)

// Store is one RDF dataset in a location: the node table plus the triple and
// quad indexes. A single writer and any number of readers may use it.
type Store struct {
	mu     sync.RWMutex
	loc    *metadata.Location
	meta   *metadata.MetaFile
	params config.Params

	nodes   *nodetable.Table
	dict    *indexFile
	triples []*TupleIndex
	quads   []*TupleIndex
	indexes map[string]*TupleIndex

	closed bool
}

// indexFile is one range index of the store together with where it lives.
type indexFile struct {
	name    string
	factory record.Factory
	kind    rangeindex.Kind
	path    string
	idx     rangeindex.RangeIndex
	// attach, when set, hands a swapped index to the component reading it
	attach func(rangeindex.RangeIndex)
}

func (f *indexFile) set(idx rangeindex.RangeIndex) {
	f.idx = idx
	if f.attach != nil {
		f.attach(idx)
	}
}

// TupleIndex stores tuples of NodeIds with the columns permuted into its own
// order, so that a pattern bound on a leading run of columns is a prefix scan.
type TupleIndex struct {
	indexFile
	primary string
	// colMap[i] is the primary column held by index column i
	colMap []int
}

// IndexStats describes one tuple index.
type IndexStats struct {
	Name    string
	Kind    rangeindex.Kind
	Records int64
	Blocks  *blockmgr.Stats
	Height  int
}

type Stats struct {
	Triples int64
	Quads   int64
	Terms   int64
	Objects objectfile.Stats
	Indexes []IndexStats
}

// CompactResult reports one rewritten index.
type CompactResult struct {
	Index        string
	Records      int64
	BlocksBefore int64
	BlocksAfter  int64
}
