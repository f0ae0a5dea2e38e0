package rangeindex_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
	rangeindex "DaemonRDF/range_index"
	"DaemonRDF/range_index/indextest"
	"DaemonRDF/record"
)

func opts() rangeindex.Options {
	return rangeindex.Options{
		Factory:   indextest.Factory,
		BlockSize: 512,
		Policy:    blockmgr.PolicyCached,
		Cache:     blockmgr.CacheSizes{Read: 16, Write: 4},
	}
}

func TestBPlusTreeIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SPO.dat")
	idx, err := rangeindex.Open(rangeindex.KindBPlusTree, path, opts())
	require.NoError(t, err)
	indextest.RunRangeIndexTest(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := rangeindex.Open(rangeindex.KindBPlusTree, path, opts())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(500), reopened.Size())

	bi, ok := reopened.(*rangeindex.BPlusIndex)
	require.True(t, ok)
	require.NoError(t, bi.Check())
}

func TestBPlusTreeIndexInMemory(t *testing.T) {
	o := opts()
	o.Policy = blockmgr.PolicyDirect
	idx, err := rangeindex.Open(rangeindex.KindBPlusTree, "", o)
	require.NoError(t, err)
	defer idx.Close()
	indextest.RunRangeIndexTest(t, idx)
}

func TestMemIndex(t *testing.T) {
	idx, err := rangeindex.Open(rangeindex.KindMem, "", opts())
	require.NoError(t, err)
	defer idx.Close()
	indextest.RunRangeIndexTest(t, idx)
}

func TestBoltIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SPO.bolt")
	idx, err := rangeindex.Open(rangeindex.KindBolt, path, opts())
	require.NoError(t, err)
	indextest.RunRangeIndexTest(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := rangeindex.Open(rangeindex.KindBolt, path, opts())
	require.NoError(t, err)
	assert.Equal(t, int64(500), reopened.Size())
	require.NoError(t, reopened.Close())

	o := opts()
	o.Factory = record.MustFactory(8, 8)
	_, err = rangeindex.Open(rangeindex.KindBolt, path, o)
	assert.True(t, errs.IsConfig(err))
}

func TestParseKind(t *testing.T) {
	for _, k := range []rangeindex.Kind{rangeindex.KindBPlusTree, rangeindex.KindMem,
		rangeindex.KindBolt} {
		got, err := rangeindex.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := rangeindex.ParseKind("hashtable")
	assert.True(t, errs.IsConfig(err))
	assert.Equal(t, ".dat", rangeindex.KindBPlusTree.Ext())
	assert.Equal(t, "bplustree-v1", rangeindex.KindBPlusTree.Version())
}
