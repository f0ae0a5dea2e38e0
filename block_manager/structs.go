package blockmgr

import (
	"fmt"
)

// ############################################# BLOCKS #############################################

// Block is one fixed-size page of a block file. The owner that fetched it may
// modify Data and hand it back with Put.
type Block struct {
	ID   int64
	Data []byte
}

func (b *Block) String() string {
	return fmt.Sprintf("block[%d](%d bytes)", b.ID, len(b.Data))
}

// BlockMgr is the paging abstraction underneath the B+Tree and the rewrite
// buffers. Ids are dense, starting at 0.
type BlockMgr interface {
	Allocate() (int64, error)
	GetRead(id int64) (*Block, error)
	GetWrite(id int64) (*Block, error)
	Put(b *Block) error
	Free(id int64) error
	Valid(id int64) bool
	Size() int64
	BlockSize() int
	Sync() error
	Close() error
	Stats() Stats
}

// Stats counts block traffic for diagnostics.
type Stats struct {
	Blocks    int64
	Reads     int64
	Writes    int64
	CacheHits int64
	Dirty     int
}

// Policy selects how a block file is cached. It is chosen per file and purpose:
// random index traffic wants PolicyCached, strictly sequential bulk passes
// (compaction, bulk build) want PolicyDirect.
type Policy int

const (
	PolicyCached Policy = iota
	PolicyDirect
)

func (p Policy) String() string {
	switch p {
	case PolicyCached:
		return "cached"
	case PolicyDirect:
		return "direct"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// CacheSizes bounds a cached manager, in blocks.
type CacheSizes struct {
	Read  int
	Write int
}

var DefaultCacheSizes = CacheSizes{Read: 1000, Write: 100}
