package bplus

import (
	"fmt"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
)

// Open attaches a tree to a block manager. An empty manager gets a fresh tree
// (header in block 0, an empty root leaf in block 1); otherwise the stored
// header must agree with params.
func Open(mgr blockmgr.BlockMgr, params Params) (*BPlusTree, error) {
	if mgr.BlockSize() != params.BlockSize {
		return nil, errs.Config("open", "block manager uses %d-byte blocks, tree wants %d",
			mgr.BlockSize(), params.BlockSize)
	}

	t := &BPlusTree{params: params, mgr: mgr}
	if mgr.Size() == 0 {
		if err := t.create(); err != nil {
			return nil, fmt.Errorf("failed to create tree: %w", err)
		}
		return t, nil
	}

	b, err := mgr.GetRead(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree header: %w", err)
	}
	hdr, err := decodeHeader(b)
	if err != nil {
		return nil, err
	}
	if err := hdr.check(params); err != nil {
		return nil, err
	}
	if !mgr.Valid(hdr.root) || !mgr.Valid(hdr.firstLeaf) {
		return nil, errs.Integrity("open", "header points outside the file: root=%d firstLeaf=%d",
			hdr.root, hdr.firstLeaf)
	}
	t.hdr = hdr
	return t, nil
}

// check compares a stored header with the params the caller expects.
func (h header) check(p Params) error {
	if h.keyLength != p.Factory.KeyLength() || h.valueLength != p.Factory.ValueLength() {
		return errs.Config("open", "record length mismatch: file has %d,%d, expected %s",
			h.keyLength, h.valueLength, p.Factory)
	}
	if h.blockSize != p.BlockSize {
		return errs.Config("open", "block size mismatch: file has %d, expected %d",
			h.blockSize, p.BlockSize)
	}
	if h.order != p.Order {
		return errs.Config("open", "order mismatch: file has %d, expected %d", h.order, p.Order)
	}
	return nil
}

func (t *BPlusTree) create() error {
	id, err := t.mgr.Allocate()
	if err != nil {
		return err
	}
	if id != 0 {
		return errs.Integrity("create", "header allocated at block %d", id)
	}

	t.hdr = header{
		keyLength:   t.params.Factory.KeyLength(),
		valueLength: t.params.Factory.ValueLength(),
		blockSize:   t.params.BlockSize,
		order:       t.params.Order,
		height:      1,
	}
	root, err := t.allocNode(NodeLeaf)
	if err != nil {
		return err
	}
	if err := t.writeNode(root); err != nil {
		return err
	}
	t.hdr.root = root.id
	t.hdr.firstLeaf = root.id
	return t.writeHeader()
}

func (t *BPlusTree) writeHeader() error {
	if err := t.mgr.Put(t.encodeHeader()); err != nil {
		return fmt.Errorf("failed to write tree header: %w", err)
	}
	return nil
}

func (t *BPlusTree) Params() Params {
	return t.params
}

// Size is the number of records in the tree.
func (t *BPlusTree) Size() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hdr.count
}

func (t *BPlusTree) IsEmpty() bool {
	return t.Size() == 0
}

// Height counts levels, a lone root leaf being height 1.
func (t *BPlusTree) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hdr.height
}

func (t *BPlusTree) BlockMgr() blockmgr.BlockMgr {
	return t.mgr
}

func (t *BPlusTree) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mgr.Sync()
}

func (t *BPlusTree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mgr.Close()
}
