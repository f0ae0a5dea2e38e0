package blockmgr

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"DaemonRDF/errs"
)

// FileMgr is the direct (no cache) block manager over one file. Block id lives
// at offset id*blockSize. Every GetRead is a disk read and every Put a disk write.
type FileMgr struct {
	file      *os.File
	filePath  string
	blockSize int
	numBlocks int64 // ids [0, numBlocks) are allocated
	freed     map[int64]struct{}
	freeList  []int64
	reads     int64
	writes    int64
	mu        sync.RWMutex
}

// NewFileMgr opens or creates the block file at path.
func NewFileMgr(path string, blockSize int) (*FileMgr, error) {
	if blockSize <= 0 {
		return nil, errs.Config("blockmgr", "block size must be positive: %d", blockSize)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open block file %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat block file: %w", err)
	}

	numBlocks := stat.Size() / int64(blockSize)
	if stat.Size()%int64(blockSize) != 0 {
		// A torn final write; the partial block was never acknowledged.
		log.WithFields(log.Fields{
			"file":  path,
			"size":  stat.Size(),
			"block": blockSize,
		}).Warn("block file has a partial trailing block; ignoring it")
	}

	log.WithFields(log.Fields{"file": path, "blocks": numBlocks}).Debug("block file opened")

	return &FileMgr{
		file:      file,
		filePath:  path,
		blockSize: blockSize,
		numBlocks: numBlocks,
		freed:     map[int64]struct{}{},
	}, nil
}

func (fm *FileMgr) checkValid(op string, id int64) error {
	if fm.file == nil {
		return fmt.Errorf("block file %s is closed", fm.filePath)
	}
	if id < 0 || id >= fm.numBlocks {
		return errs.Integrity(op, "%s: block %d was never allocated (size %d)", fm.filePath, id,
			fm.numBlocks)
	}
	if _, ok := fm.freed[id]; ok {
		return errs.Integrity(op, "%s: block %d has been freed", fm.filePath, id)
	}
	return nil
}

func (fm *FileMgr) Valid(id int64) bool {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return fm.checkValid("valid", id) == nil
}

// Allocate hands out a freed id if one is available, else extends the file.
// The block reads as zeros until it is first Put.
func (fm *FileMgr) Allocate() (int64, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.file == nil {
		return 0, fmt.Errorf("block file %s is closed", fm.filePath)
	}

	if n := len(fm.freeList); n > 0 {
		id := fm.freeList[n-1]
		fm.freeList = fm.freeList[:n-1]
		delete(fm.freed, id)
		return id, nil
	}

	id := fm.numBlocks
	fm.numBlocks++
	return id, nil
}

func (fm *FileMgr) read(op string, id int64) (*Block, error) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	if err := fm.checkValid(op, id); err != nil {
		return nil, err
	}

	data := make([]byte, fm.blockSize)
	n, err := fm.file.ReadAt(data, id*int64(fm.blockSize))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read block %d: %w", id, err)
	}
	// allocated but never written past the end of the file: zeros
	for i := n; i < fm.blockSize; i++ {
		data[i] = 0
	}
	atomic.AddInt64(&fm.reads, 1)
	return &Block{ID: id, Data: data}, nil
}

func (fm *FileMgr) GetRead(id int64) (*Block, error) {
	return fm.read("read", id)
}

func (fm *FileMgr) GetWrite(id int64) (*Block, error) {
	return fm.read("write", id)
}

// Put writes the block straight to the file.
func (fm *FileMgr) Put(b *Block) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.checkValid("put", b.ID); err != nil {
		return err
	}
	if len(b.Data) != fm.blockSize {
		return errs.Config("put", "block data size %d does not match block size %d",
			len(b.Data), fm.blockSize)
	}

	if _, err := fm.file.WriteAt(b.Data, b.ID*int64(fm.blockSize)); err != nil {
		return fmt.Errorf("failed to write block %d: %w", b.ID, err)
	}
	atomic.AddInt64(&fm.writes, 1)
	return nil
}

// Free releases the id for reuse in this session. The free list is not
// persisted; compaction reclaims the space of a long-lived file.
func (fm *FileMgr) Free(id int64) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := fm.checkValid("free", id); err != nil {
		return err
	}
	fm.freed[id] = struct{}{}
	fm.freeList = append(fm.freeList, id)
	return nil
}

func (fm *FileMgr) Size() int64 {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return fm.numBlocks
}

func (fm *FileMgr) BlockSize() int {
	return fm.blockSize
}

// Sync returns once every previous Put is durable.
func (fm *FileMgr) Sync() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.file == nil {
		return fmt.Errorf("block file %s is closed", fm.filePath)
	}
	return fm.file.Sync()
}

func (fm *FileMgr) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.file == nil {
		return nil
	}

	err := fm.file.Sync()
	if err != nil {
		fm.file.Close()
		return fmt.Errorf("failed to sync before close: %w", err)
	}

	err = fm.file.Close()
	fm.file = nil
	return err
}

func (fm *FileMgr) Stats() Stats {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	return Stats{
		Blocks: fm.numBlocks,
		Reads:  atomic.LoadInt64(&fm.reads),
		Writes: atomic.LoadInt64(&fm.writes),
	}
}

func (fm *FileMgr) Path() string {
	return fm.filePath
}
