// Package indextest is a conformance suite every RangeIndex kind runs.
package indextest

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/errs"
	rangeindex "DaemonRDF/range_index"
	"DaemonRDF/record"
)

// Factory is the record layout the suite expects its index to use.
var Factory = record.MustFactory(12, 4)

func Key(i int) []byte {
	k := make([]byte, Factory.KeyLength())
	binary.BigEndian.PutUint32(k[0:4], uint32(i%7))
	binary.BigEndian.PutUint64(k[4:12], uint64(i))
	return k
}

func Rec(i int) record.Record {
	v := make([]byte, Factory.ValueLength())
	binary.BigEndian.PutUint32(v, uint32(i*3))
	return Factory.Create(Key(i), v)
}

func collect(t *testing.T, it rangeindex.Iterator) []record.Record {
	t.Helper()
	defer it.Close()
	var out []record.Record
	for it.Next() {
		out = append(out, it.Record())
	}
	require.NoError(t, it.Err())
	return out
}

func isSorted(recs []record.Record) bool {
	for i := 1; i < len(recs); i++ {
		if record.Compare(Factory.Key(recs[i-1]), Factory.Key(recs[i])) >= 0 {
			return false
		}
	}
	return true
}

// RunRangeIndexTest exercises an empty index opened with Factory.
func RunRangeIndexTest(t *testing.T, idx rangeindex.RangeIndex) {
	t.Helper()

	require.True(t, idx.Factory().Equal(Factory))
	require.True(t, idx.IsEmpty())

	it, err := idx.Iterator(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, collect(t, it))

	n := 1000
	for _, i := range rand.New(rand.NewSource(11)).Perm(n) {
		added, err := idx.Insert(Rec(i))
		require.NoError(t, err)
		require.True(t, added, "record %d", i)
	}
	assert.Equal(t, int64(n), idx.Size())

	// idempotent re-insert
	added, err := idx.Insert(Rec(5))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, int64(n), idx.Size())

	// upsert replaces the value
	newVal := []byte{9, 9, 9, 9}
	_, err = idx.Insert(Factory.Create(Key(5), newVal))
	require.NoError(t, err)
	r, found, err := idx.Find(Key(5))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, newVal, Factory.Value(r))

	_, found, err = idx.Find(Key(n + 1))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = idx.Insert(record.Record{1, 2, 3})
	assert.True(t, errs.IsConfig(err))
	_, _, err = idx.Find([]byte{1})
	assert.True(t, errs.IsConfig(err))

	it, err = idx.Iterator(nil, nil)
	require.NoError(t, err)
	all := collect(t, it)
	require.Len(t, all, n)
	assert.True(t, isSorted(all))

	// prefix of the first 4 key bytes: i%7 == 3
	prefix := Key(3)[:4]
	it, err = idx.Scan(prefix)
	require.NoError(t, err)
	group := collect(t, it)
	assert.Len(t, group, (n+7-1-3)/7)
	for _, r := range group {
		assert.True(t, Factory.HasPrefix(r, prefix))
	}

	// half-open range inside one prefix group
	it, err = idx.Iterator(Key(3), Key(3+7*10))
	require.NoError(t, err)
	assert.Len(t, collect(t, it), 10)

	for i := 0; i < n; i += 2 {
		deleted, err := idx.Delete(Key(i))
		require.NoError(t, err)
		require.True(t, deleted, "record %d", i)
	}
	deleted, err := idx.Delete(Key(0))
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, int64(n/2), idx.Size())

	it, err = idx.Iterator(nil, nil)
	require.NoError(t, err)
	rest := collect(t, it)
	require.Len(t, rest, n/2)
	assert.True(t, isSorted(rest))
	for _, r := range rest {
		assert.Equal(t, uint64(1), binary.BigEndian.Uint64(Factory.Key(r)[4:])%2)
	}

	require.NoError(t, idx.Sync())
}
