package nodetable

import (
	nodeid "DaemonRDF/node_id"
	term "DaemonRDF/rdf_term"
	"DaemonRDF/record"
)

// NodeTable maps RDF terms to NodeIds and back. Allocation is idempotent: the
// same term always yields the same id.
type NodeTable interface {
	GetAllocateNodeId(t term.Term) (nodeid.NodeId, error)
	// GetNodeIdForNode looks up without allocating; absent terms give nodeid.NotFound.
	GetNodeIdForNode(t term.Term) (nodeid.NodeId, error)
	GetNodeForNodeId(id nodeid.NodeId) (term.Term, error)
	// All visits every dictionary entry in allocation order.
	All(fn func(id nodeid.NodeId, t term.Term) error) error
	Sync() error
	Close() error
}

// DictFactory is the layout of the dictionary index:
// key = hash(8) | collision slot(4), value = NodeId(8).
var DictFactory = record.MustFactory(hashSize+slotSize, nodeid.Size)

const (
	hashSize = 8
	slotSize = 4
)

// CacheSizes bounds the two directions of the node table cache, in entries.
type CacheSizes struct {
	Node2Id int
	Id2Node int
}

var DefaultCacheSizes = CacheSizes{Node2Id: 100_000, Id2Node: 500_000}
