package nodetable

import (
	nodeid "DaemonRDF/node_id"
	term "DaemonRDF/rdf_term"
)

// Inline answers for literals that pack into the id itself and passes
// everything else to the wrapped table. Inline values never reach the object
// file.
type Inline struct {
	base NodeTable
}

func NewInline(base NodeTable) *Inline {
	return &Inline{base: base}
}

func (in *Inline) GetAllocateNodeId(t term.Term) (nodeid.NodeId, error) {
	if id, ok := nodeid.Inline(t); ok {
		return id, nil
	}
	return in.base.GetAllocateNodeId(t)
}

func (in *Inline) GetNodeIdForNode(t term.Term) (nodeid.NodeId, error) {
	if id, ok := nodeid.Inline(t); ok {
		return id, nil
	}
	return in.base.GetNodeIdForNode(t)
}

func (in *Inline) GetNodeForNodeId(id nodeid.NodeId) (term.Term, error) {
	if id.IsInline() {
		if t, ok := nodeid.Extract(id); ok {
			return t, nil
		}
	}
	return in.base.GetNodeForNodeId(id)
}

func (in *Inline) All(fn func(id nodeid.NodeId, t term.Term) error) error {
	return in.base.All(fn)
}

func (in *Inline) Sync() error {
	return in.base.Sync()
}

func (in *Inline) Close() error {
	return in.base.Close()
}

// Base is the wrapped table.
func (in *Inline) Base() NodeTable {
	return in.base
}
