package nodetable

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	nodeid "DaemonRDF/node_id"
	term "DaemonRDF/rdf_term"
)

// Cache puts ristretto caches in front of another node table, one per
// direction. Only positive answers are cached: a miss may be allocated later.
type Cache struct {
	base    NodeTable
	node2id *ristretto.Cache[string, uint64]
	id2node *ristretto.Cache[uint64, term.Term]
}

func newCache[K string | uint64, V any](entries int) (*ristretto.Cache[K, V], error) {
	return ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(entries) * 10,
		MaxCost:     int64(entries),
		BufferItems: 64,
		// cost is counted in entries
		IgnoreInternalCost: true,
	})
}

func NewCache(base NodeTable, sizes CacheSizes) (*Cache, error) {
	if sizes.Node2Id <= 0 {
		sizes.Node2Id = DefaultCacheSizes.Node2Id
	}
	if sizes.Id2Node <= 0 {
		sizes.Id2Node = DefaultCacheSizes.Id2Node
	}

	n2i, err := newCache[string, uint64](sizes.Node2Id)
	if err != nil {
		return nil, fmt.Errorf("failed to create node cache: %w", err)
	}
	i2n, err := newCache[uint64, term.Term](sizes.Id2Node)
	if err != nil {
		n2i.Close()
		return nil, fmt.Errorf("failed to create node id cache: %w", err)
	}
	return &Cache{base: base, node2id: n2i, id2node: i2n}, nil
}

func (c *Cache) remember(t term.Term, key string, id nodeid.NodeId) {
	c.node2id.Set(key, uint64(id), 1)
	c.id2node.Set(uint64(id), t, 1)
}

func (c *Cache) GetAllocateNodeId(t term.Term) (nodeid.NodeId, error) {
	key := t.String()
	if id, ok := c.node2id.Get(key); ok {
		return nodeid.NodeId(id), nil
	}
	id, err := c.base.GetAllocateNodeId(t)
	if err != nil {
		return 0, err
	}
	c.remember(t, key, id)
	return id, nil
}

func (c *Cache) GetNodeIdForNode(t term.Term) (nodeid.NodeId, error) {
	key := t.String()
	if id, ok := c.node2id.Get(key); ok {
		return nodeid.NodeId(id), nil
	}
	id, err := c.base.GetNodeIdForNode(t)
	if err != nil || id == nodeid.NotFound {
		return id, err
	}
	c.remember(t, key, id)
	return id, nil
}

func (c *Cache) GetNodeForNodeId(id nodeid.NodeId) (term.Term, error) {
	if t, ok := c.id2node.Get(uint64(id)); ok {
		return t, nil
	}
	t, err := c.base.GetNodeForNodeId(id)
	if err != nil {
		return term.Term{}, err
	}
	c.remember(t, t.String(), id)
	return t, nil
}

func (c *Cache) All(fn func(id nodeid.NodeId, t term.Term) error) error {
	return c.base.All(fn)
}

// Wait blocks until pending cache writes are visible.
func (c *Cache) Wait() {
	c.node2id.Wait()
	c.id2node.Wait()
}

func (c *Cache) Sync() error {
	return c.base.Sync()
}

func (c *Cache) Close() error {
	c.node2id.Close()
	c.id2node.Close()
	return c.base.Close()
}
