package blockmgr

import (
	log "github.com/sirupsen/logrus"
)

// Open returns the block manager for one file under the given policy.
func Open(path string, blockSize int, policy Policy, sizes CacheSizes) (BlockMgr, error) {
	fm, err := NewFileMgr(path, blockSize)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"file":   path,
		"policy": policy,
	}).Debug("opening block manager")

	if policy == PolicyDirect {
		return fm, nil
	}

	cm, err := NewCachedMgr(fm, sizes)
	if err != nil {
		fm.Close()
		return nil, err
	}
	return cm, nil
}

// OpenMem returns an in-memory manager, cached if asked. In-memory locations
// gain nothing from caching, but tests use it to exercise CachedMgr cheaply.
func OpenMem(blockSize int, policy Policy, sizes CacheSizes) (BlockMgr, error) {
	mm := NewMemMgr(blockSize)
	if policy == PolicyDirect {
		return mm, nil
	}
	return NewCachedMgr(mm, sizes)
}
