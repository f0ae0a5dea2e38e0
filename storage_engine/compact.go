package storageengine

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	blockmgr "DaemonRDF/block_manager"
	bplus "DaemonRDF/bplustree"
	"DaemonRDF/errs"
	"DaemonRDF/metadata"
	rangeindex "DaemonRDF/range_index"
)

/*
Compaction is offline: the store write lock is held throughout. The index is
rewritten into <file>.tmp with direct block I/O, closed, and renamed over the
original. A crash before the rename leaves the original intact and a .tmp file
that the next OpenStore removes.
*/

// rename is swapped out by tests to fail the final step of a rewrite.
var rename = os.Rename

// replaceTree builds a new tree for f with build and swaps it in. build
// receives an empty block manager.
//
// Once the old tree is closed, f is reopened from whatever file sits at its
// path: the rewrite when the rename went through, the original otherwise. If
// that fails too the store is abandoned.
func (s *Store) replaceTree(f *indexFile,
	build func(dst blockmgr.BlockMgr) (*bplus.BPlusTree, error)) error {

	bi, ok := f.idx.(*rangeindex.BPlusIndex)
	if !ok {
		return errs.Config("storage", "index %s is %s, only bplustree indexes are rewritten",
			f.name, f.kind)
	}
	params := bi.Params()

	if s.loc.IsMem() {
		dst, err := blockmgr.OpenMem(params.BlockSize, s.params.Policy(), s.params.BlockCache())
		if err != nil {
			return err
		}
		tree, err := build(dst)
		if err != nil {
			dst.Close()
			return err
		}
		bi.Close()
		f.set(&rangeindex.BPlusIndex{BPlusTree: tree})
		return nil
	}

	if err := bi.Sync(); err != nil {
		return err
	}
	tmp := f.path + metadata.TmpExt
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear %s: %w", tmp, err)
	}
	dst, err := blockmgr.Open(tmp, params.BlockSize, blockmgr.PolicyDirect, blockmgr.CacheSizes{})
	if err != nil {
		return err
	}
	tree, err := build(dst)
	if err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := tree.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close rewritten %s: %w", f.name, err)
	}

	var swapErr error
	if err := bi.Close(); err != nil {
		swapErr = fmt.Errorf("failed to close %s: %w", f.name, err)
	} else if err := rename(tmp, f.path); err != nil {
		swapErr = fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	f.set(nil)
	if swapErr != nil {
		os.Remove(tmp)
	}

	_, _, idx, err := s.openIndex(f.name, f.factory)
	if err != nil {
		if swapErr == nil {
			swapErr = err
		}
		s.abandon(swapErr)
		return errs.Integrity("storage", "index %s could not be reopened, store closed: %v",
			f.name, err)
	}
	f.set(idx)
	if swapErr != nil {
		log.WithFields(log.Fields{
			"index": f.name,
			"file":  f.path,
		}).WithError(swapErr).Warn("rewrite discarded, original index kept")
	}
	return swapErr
}

// Compact rewrites one index into a densely packed tree. The node dictionary
// is compacted under its own name.
func (s *Store) Compact(index string) (CompactResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return CompactResult{}, err
	}
	if index == s.dict.name {
		return s.compact(s.dict)
	}
	ti, err := s.index(index)
	if err != nil {
		return CompactResult{}, err
	}
	return s.compact(&ti.indexFile)
}

func (s *Store) compact(f *indexFile) (CompactResult, error) {
	bi, ok := f.idx.(*rangeindex.BPlusIndex)
	if !ok {
		return CompactResult{}, errs.Config("storage", "index %s is %s, only bplustree indexes compact",
			f.name, f.kind)
	}
	res := CompactResult{
		Index:        f.name,
		Records:      bi.Size(),
		BlocksBefore: bi.BlockMgr().Size(),
	}
	src := bi.BPlusTree

	err := s.replaceTree(f, func(dst blockmgr.BlockMgr) (*bplus.BPlusTree, error) {
		return bplus.Rewrite(src, dst)
	})
	if err != nil {
		return CompactResult{}, fmt.Errorf("failed to compact %s: %w", f.name, err)
	}
	res.BlocksAfter = f.idx.(*rangeindex.BPlusIndex).BlockMgr().Size()

	log.WithFields(log.Fields{
		"index":  f.name,
		"before": res.BlocksBefore,
		"after":  res.BlocksAfter,
	}).Info("index compacted")
	return res, nil
}

// CompactAll compacts every bplustree index, tuple indexes first and then the
// node dictionary, and skips the others.
func (s *Store) CompactAll() ([]CompactResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	files := []*indexFile{}
	for _, group := range [][]*TupleIndex{s.triples, s.quads} {
		for _, ti := range group {
			files = append(files, &ti.indexFile)
		}
	}
	files = append(files, s.dict)

	var results []CompactResult
	for _, f := range files {
		if f.kind != rangeindex.KindBPlusTree {
			log.WithFields(log.Fields{
				"index": f.name,
				"kind":  f.kind,
			}).Debug("not compacting")
			continue
		}
		res, err := s.compact(f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
