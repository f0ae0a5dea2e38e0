package rangeindex

import (
	bplus "DaemonRDF/bplustree"
	"DaemonRDF/record"
)

// BPlusIndex is the on-disk B+Tree as a RangeIndex. The tree stays reachable
// for compaction and inspection.
type BPlusIndex struct {
	*bplus.BPlusTree
}

func (bi *BPlusIndex) Factory() record.Factory {
	return bi.Params().Factory
}

func (bi *BPlusIndex) Iterator(min, max []byte) (Iterator, error) {
	it, err := bi.BPlusTree.Iterator(min, max)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (bi *BPlusIndex) Scan(prefix []byte) (Iterator, error) {
	it, err := bi.BPlusTree.Scan(prefix)
	if err != nil {
		return nil, err
	}
	return it, nil
}
