package blockmgr

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	log "github.com/sirupsen/logrus"
)

/*
CachedMgr wraps another BlockMgr with two caches:

  - a bounded write-back set of dirty blocks kept in LRU order; when it
    overflows, the least recently used dirty block is written to the base
    manager,
  - a ristretto read cache of clean block images.

Lookups go dirty set, then read cache, then the base manager. A block is in at
most one of the two caches: Put removes it from the read cache, and write-back
moves it there.
*/
type CachedMgr struct {
	base        BlockMgr
	dirty       map[int64]*list.Element // id -> element holding *Block
	accessOrder *list.List              // LRU of dirty blocks: most recent at front
	capacity    int
	readCache   *ristretto.Cache[int64, []byte]
	hits        int64
	mu          sync.Mutex
}

// NewCachedMgr wraps base. sizes.Write bounds the dirty set, sizes.Read the
// read cache (both in blocks).
func NewCachedMgr(base BlockMgr, sizes CacheSizes) (*CachedMgr, error) {
	if sizes.Write <= 0 {
		sizes.Write = DefaultCacheSizes.Write
	}
	if sizes.Read <= 0 {
		sizes.Read = DefaultCacheSizes.Read
	}

	rc, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: int64(sizes.Read) * 10,
		MaxCost:     int64(sizes.Read),
		BufferItems: 64,
		// cost is counted in blocks, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create block read cache: %w", err)
	}

	return &CachedMgr{
		base:        base,
		dirty:       make(map[int64]*list.Element, sizes.Write),
		accessOrder: list.New(),
		capacity:    sizes.Write,
		readCache:   rc,
	}, nil
}

func copyBlock(b *Block) *Block {
	return &Block{ID: b.ID, Data: append([]byte(nil), b.Data...)}
}

func (cm *CachedMgr) Allocate() (int64, error) {
	return cm.base.Allocate()
}

func (cm *CachedMgr) Valid(id int64) bool {
	return cm.base.Valid(id)
}

// GetRead returns a private copy of the block.
func (cm *CachedMgr) GetRead(id int64) (*Block, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.base.Valid(id) {
		// let the base manager produce the precise integrity error
		return cm.base.GetRead(id)
	}

	if elem, ok := cm.dirty[id]; ok {
		cm.accessOrder.MoveToFront(elem)
		cm.hits++
		return copyBlock(elem.Value.(*Block)), nil
	}

	if data, ok := cm.readCache.Get(id); ok {
		cm.hits++
		return &Block{ID: id, Data: append([]byte(nil), data...)}, nil
	}

	b, err := cm.base.GetRead(id)
	if err != nil {
		return nil, err
	}
	cm.readCache.Set(id, append([]byte(nil), b.Data...), 1)
	return b, nil
}

func (cm *CachedMgr) GetWrite(id int64) (*Block, error) {
	return cm.GetRead(id)
}

// Put records the block as dirty. It reaches the base manager on eviction or Sync.
func (cm *CachedMgr) Put(b *Block) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.base.Valid(b.ID) {
		return cm.base.Put(b)
	}
	if len(b.Data) != cm.base.BlockSize() {
		return cm.base.Put(b)
	}

	cm.readCache.Del(b.ID)
	if elem, ok := cm.dirty[b.ID]; ok {
		elem.Value = copyBlock(b)
		cm.accessOrder.MoveToFront(elem)
		return nil
	}

	if len(cm.dirty) >= cm.capacity {
		if err := cm.evictLRU(); err != nil {
			return fmt.Errorf("failed to evict during put: %w", err)
		}
	}
	cm.dirty[b.ID] = cm.accessOrder.PushFront(copyBlock(b))
	return nil
}

// evictLRU writes back the least recently used dirty block. Lock must be held.
func (cm *CachedMgr) evictLRU() error {
	elem := cm.accessOrder.Back()
	if elem == nil {
		return nil
	}
	b := elem.Value.(*Block)
	if err := cm.base.Put(b); err != nil {
		return fmt.Errorf("failed to write block %d during eviction: %w", b.ID, err)
	}
	cm.accessOrder.Remove(elem)
	delete(cm.dirty, b.ID)
	cm.readCache.Set(b.ID, b.Data, 1)
	log.WithField("block", b.ID).Trace("dirty block written back")
	return nil
}

func (cm *CachedMgr) Free(id int64) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if elem, ok := cm.dirty[id]; ok {
		cm.accessOrder.Remove(elem)
		delete(cm.dirty, id)
	}
	cm.readCache.Del(id)
	return cm.base.Free(id)
}

// flush writes every dirty block in id order, so the writes are sequential.
func (cm *CachedMgr) flush() error {
	ids := make([]int64, 0, len(cm.dirty))
	for id := range cm.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		elem := cm.dirty[id]
		b := elem.Value.(*Block)
		if err := cm.base.Put(b); err != nil {
			return fmt.Errorf("failed to flush block %d: %w", id, err)
		}
		cm.accessOrder.Remove(elem)
		delete(cm.dirty, id)
		cm.readCache.Set(id, b.Data, 1)
	}
	return nil
}

func (cm *CachedMgr) Sync() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := cm.flush(); err != nil {
		return err
	}
	return cm.base.Sync()
}

func (cm *CachedMgr) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := cm.flush(); err != nil {
		cm.base.Close()
		return err
	}
	cm.readCache.Close()
	return cm.base.Close()
}

func (cm *CachedMgr) Size() int64 {
	return cm.base.Size()
}

func (cm *CachedMgr) BlockSize() int {
	return cm.base.BlockSize()
}

func (cm *CachedMgr) Stats() Stats {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	st := cm.base.Stats()
	st.CacheHits = cm.hits
	st.Dirty = len(cm.dirty)
	return st
}
