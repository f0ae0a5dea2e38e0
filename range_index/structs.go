package rangeindex

import (
	"strings"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// Iterator walks records in ascending key order.
type Iterator interface {
	Next() bool
	Record() record.Record
	Err() error
	Close()
}

// RangeIndex is an ordered set of fixed-length records keyed on their key
// region. Every tuple index and the node table dictionary is one of these.
type RangeIndex interface {
	Factory() record.Factory
	Insert(r record.Record) (bool, error)
	Delete(key []byte) (bool, error)
	Find(key []byte) (record.Record, bool, error)
	// Iterator covers min <= key < max; nil bounds are open.
	Iterator(min, max []byte) (Iterator, error)
	Scan(prefix []byte) (Iterator, error)
	Size() int64
	IsEmpty() bool
	Sync() error
	Close() error
}

type Kind int

const (
	KindBPlusTree Kind = iota
	KindMem
	KindBolt
)

func (k Kind) String() string {
	switch k {
	case KindBPlusTree:
		return "bplustree"
	case KindMem:
		return "btree"
	case KindBolt:
		return "bbolt"
	}
	return "unknown"
}

// Version is the implementation version recorded in metadata next to the kind.
func (k Kind) Version() string {
	return k.String() + "-v1"
}

// Ext is the file extension of a persistent index, empty for memory only.
func (k Kind) Ext() string {
	switch k {
	case KindBPlusTree:
		return ".dat"
	case KindBolt:
		return ".bolt"
	}
	return ""
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "bplustree", "":
		return KindBPlusTree, nil
	case "btree", "mem":
		return KindMem, nil
	case "bbolt", "bolt":
		return KindBolt, nil
	}
	return 0, errs.Config("rangeindex", "unknown index implementation %q", s)
}

// Options shapes a new or reopened index. BlockSize and Order only matter to
// KindBPlusTree; either may be zero and is then derived from the other.
type Options struct {
	Factory   record.Factory
	BlockSize int
	Order     int
	Policy    blockmgr.Policy
	Cache     blockmgr.CacheSizes
}
