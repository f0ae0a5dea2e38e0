package bplus

import (
	"fmt"

	"DaemonRDF/record"
)

// allocNode takes a fresh block for a node of the given type. The node is not
// written until writeNode.
func (t *BPlusTree) allocNode(nodeType NodeType) (*Node, error) {
	id, err := t.mgr.Allocate()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate node: %w", err)
	}
	n := &Node{id: id, nodeType: nodeType}
	if nodeType == NodeInternal {
		n.keys = make([][]byte, 0, t.params.Order)
		n.children = make([]int64, 0, t.params.Order+1)
	} else {
		n.records = make([]record.Record, 0, t.params.LeafCapacity()+1)
	}
	return n, nil
}

func (t *BPlusTree) readNode(id int64) (*Node, error) {
	b, err := t.mgr.GetRead(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %d: %w", id, err)
	}
	return t.decodeNode(b)
}

func (t *BPlusTree) writeNode(n *Node) error {
	b, err := t.encodeNode(n)
	if err != nil {
		return err
	}
	if err := t.mgr.Put(b); err != nil {
		return fmt.Errorf("failed to write node %d: %w", n.id, err)
	}
	return nil
}

func (t *BPlusTree) freeNode(n *Node) error {
	if err := t.mgr.Free(n.id); err != nil {
		return fmt.Errorf("failed to free node %d: %w", n.id, err)
	}
	return nil
}

func (n *Node) isLeaf() bool {
	return n.nodeType == NodeLeaf
}

// size is the occupancy that rebalancing compares against its minimum.
func (n *Node) size() int {
	if n.isLeaf() {
		return len(n.records)
	}
	return len(n.children)
}
