package blockmgr

import (
	"fmt"
	"sync"

	"DaemonRDF/errs"
)

// MemMgr keeps blocks in a map. It backs in-memory locations and tests and
// follows the same validity rules as FileMgr.
type MemMgr struct {
	blocks    map[int64][]byte
	blockSize int
	next      int64
	freeList  []int64
	reads     int64
	writes    int64
	closed    bool
	mu        sync.RWMutex
}

func NewMemMgr(blockSize int) *MemMgr {
	return &MemMgr{
		blocks:    make(map[int64][]byte),
		blockSize: blockSize,
	}
}

func (mm *MemMgr) checkValid(op string, id int64) error {
	if mm.closed {
		return fmt.Errorf("memory block manager is closed")
	}
	if _, ok := mm.blocks[id]; !ok {
		if id >= 0 && id < mm.next {
			return errs.Integrity(op, "block %d has been freed", id)
		}
		return errs.Integrity(op, "block %d was never allocated", id)
	}
	return nil
}

func (mm *MemMgr) Valid(id int64) bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.checkValid("valid", id) == nil
}

func (mm *MemMgr) Allocate() (int64, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	var id int64
	if n := len(mm.freeList); n > 0 {
		id = mm.freeList[n-1]
		mm.freeList = mm.freeList[:n-1]
	} else {
		id = mm.next
		mm.next++
	}
	mm.blocks[id] = make([]byte, mm.blockSize)
	return id, nil
}

func (mm *MemMgr) GetRead(id int64) (*Block, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if err := mm.checkValid("read", id); err != nil {
		return nil, err
	}
	mm.reads++
	return &Block{ID: id, Data: append([]byte(nil), mm.blocks[id]...)}, nil
}

func (mm *MemMgr) GetWrite(id int64) (*Block, error) {
	return mm.GetRead(id)
}

func (mm *MemMgr) Put(b *Block) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if err := mm.checkValid("put", b.ID); err != nil {
		return err
	}
	if len(b.Data) != mm.blockSize {
		return errs.Config("put", "block data size %d does not match block size %d",
			len(b.Data), mm.blockSize)
	}
	mm.blocks[b.ID] = append([]byte(nil), b.Data...)
	mm.writes++
	return nil
}

func (mm *MemMgr) Free(id int64) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if err := mm.checkValid("free", id); err != nil {
		return err
	}
	delete(mm.blocks, id)
	mm.freeList = append(mm.freeList, id)
	return nil
}

func (mm *MemMgr) Size() int64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.next
}

func (mm *MemMgr) BlockSize() int {
	return mm.blockSize
}

func (mm *MemMgr) Sync() error {
	return nil
}

func (mm *MemMgr) Close() error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.closed = true
	return nil
}

func (mm *MemMgr) Stats() Stats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return Stats{Blocks: mm.next, Reads: mm.reads, Writes: mm.writes}
}
