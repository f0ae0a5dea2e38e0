package storageengine

import (
	"strings"

	"DaemonRDF/errs"
	nodeid "DaemonRDF/node_id"
	rangeindex "DaemonRDF/range_index"
	"DaemonRDF/record"
)

/*
Column maps: an index named "POS" over the primary order "SPO" keeps
(P, O, S) in that order, colMap = [1, 2, 0]. Keys are the NodeIds of the
columns, 8 bytes each, big endian; tuple indexes carry no value.
*/

func newColMap(primary, name string) ([]int, error) {
	if len(name) != len(primary) {
		return nil, errs.Config("storage", "index %s does not have the %d columns of %s", name,
			len(primary), primary)
	}
	colMap := make([]int, len(name))
	seen := make([]bool, len(primary))
	for i, c := range name {
		j := strings.IndexRune(primary, c)
		if j < 0 || seen[j] {
			return nil, errs.Config("storage", "index %s is not a permutation of %s", name, primary)
		}
		seen[j] = true
		colMap[i] = j
	}
	return colMap, nil
}

func tupleFactory(primary string) record.Factory {
	return record.MustFactory(len(primary)*nodeid.Size, 0)
}

func newTupleIndex(primary, name string) (*TupleIndex, error) {
	colMap, err := newColMap(primary, name)
	if err != nil {
		return nil, err
	}
	return &TupleIndex{
		indexFile: indexFile{name: name, factory: tupleFactory(primary)},
		primary:   primary,
		colMap:    colMap,
	}, nil
}

func (ti *TupleIndex) Name() string {
	return ti.name
}

func (ti *TupleIndex) Factory() record.Factory {
	return ti.factory
}

func (ti *TupleIndex) Index() rangeindex.RangeIndex {
	return ti.idx
}

// Encode turns a tuple in primary order into an index record.
func (ti *TupleIndex) Encode(tuple []nodeid.NodeId) record.Record {
	key := make([]byte, len(ti.colMap)*nodeid.Size)
	for i, col := range ti.colMap {
		tuple[col].Put(key[i*nodeid.Size:])
	}
	return ti.factory.CreateKey(key)
}

// Decode is the inverse of Encode.
func (ti *TupleIndex) Decode(r record.Record) []nodeid.NodeId {
	tuple := make([]nodeid.NodeId, len(ti.colMap))
	for i, col := range ti.colMap {
		tuple[col] = nodeid.FromBytes(r[i*nodeid.Size:])
	}
	return tuple
}

// weight is how many leading index columns the pattern binds.
func (ti *TupleIndex) weight(pattern []nodeid.NodeId) int {
	w := 0
	for _, col := range ti.colMap {
		if pattern[col] == nodeid.Any {
			break
		}
		w++
	}
	return w
}

func (ti *TupleIndex) prefix(pattern []nodeid.NodeId) []byte {
	var prefix []byte
	for _, col := range ti.colMap {
		if pattern[col] == nodeid.Any {
			break
		}
		prefix = append(prefix, pattern[col].Bytes()...)
	}
	return prefix
}

func matches(pattern, tuple []nodeid.NodeId) bool {
	for i, id := range pattern {
		if id != nodeid.Any && id != tuple[i] {
			return false
		}
	}
	return true
}

// find calls fn for every tuple matching pattern; Any is the wildcard.
func (ti *TupleIndex) find(pattern []nodeid.NodeId, fn func(tuple []nodeid.NodeId) error) error {
	it, err := ti.idx.Scan(ti.prefix(pattern))
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		tuple := ti.Decode(it.Record())
		if !matches(pattern, tuple) {
			continue
		}
		if err := fn(tuple); err != nil {
			return err
		}
	}
	return it.Err()
}

// bestIndex picks the index answering pattern with the longest prefix scan.
// The first index wins ties, so the primary order is preferred.
func bestIndex(indexes []*TupleIndex, pattern []nodeid.NodeId) *TupleIndex {
	var best *TupleIndex
	bestWeight := -1
	for _, ti := range indexes {
		if w := ti.weight(pattern); w > bestWeight {
			best, bestWeight = ti, w
		}
	}
	return best
}
