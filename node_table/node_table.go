package nodetable

import (
	objectfile "DaemonRDF/object_file"
	rangeindex "DaemonRDF/range_index"
)

// Table is the standard stack: inline values first, then the cache, then the
// dictionary.
type Table struct {
	*Inline
	cache  *Cache
	native *Native
}

func New(objects objectfile.ObjectFile, index rangeindex.RangeIndex, sizes CacheSizes) (*Table, error) {
	native, err := NewNative(objects, index)
	if err != nil {
		return nil, err
	}
	cache, err := NewCache(native, sizes)
	if err != nil {
		return nil, err
	}
	return &Table{
		Inline: NewInline(cache),
		cache:  cache,
		native: native,
	}, nil
}

func (t *Table) Native() *Native {
	return t.native
}

func (t *Table) Cache() *Cache {
	return t.cache
}
