package rangeindex

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	blockmgr "DaemonRDF/block_manager"
	bplus "DaemonRDF/bplustree"
	"DaemonRDF/errs"
)

// Open creates or reopens the index of the given kind at path. An empty path
// keeps a persistent kind in memory.
func Open(kind Kind, path string, opts Options) (RangeIndex, error) {
	log.WithFields(log.Fields{
		"kind":   kind,
		"file":   path,
		"record": opts.Factory,
	}).Debug("opening range index")

	switch kind {
	case KindBPlusTree:
		return openBPlusTree(path, opts)
	case KindMem:
		return NewMemIndex(opts.Factory), nil
	case KindBolt:
		if path == "" {
			return nil, errs.Config("rangeindex", "bbolt index needs a file")
		}
		return OpenBoltIndex(path, opts.Factory)
	}
	return nil, errs.Config("rangeindex", "unknown index kind %d", int(kind))
}

func openBPlusTree(path string, opts Options) (RangeIndex, error) {
	params, err := bplus.NewParams(opts.Order, opts.BlockSize, opts.Factory)
	if err != nil {
		return nil, err
	}

	var mgr blockmgr.BlockMgr
	if path == "" {
		mgr, err = blockmgr.OpenMem(params.BlockSize, opts.Policy, opts.Cache)
	} else {
		mgr, err = blockmgr.Open(path, params.BlockSize, opts.Policy, opts.Cache)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open block file %s: %w", path, err)
	}

	tree, err := bplus.Open(mgr, params)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	return &BPlusIndex{BPlusTree: tree}, nil
}
