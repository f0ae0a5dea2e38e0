package blockmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/errs"
)

func fill(b *Block, v byte) {
	for i := range b.Data {
		b.Data[i] = v
	}
}

func TestCachedMgrWriteBack(t *testing.T) {
	base := NewMemMgr(testBlockSize)
	cm, err := NewCachedMgr(base, CacheSizes{Read: 10, Write: 2})
	require.NoError(t, err)
	defer cm.Close()

	ids := make([]int64, 3)
	for i := range ids {
		ids[i], err = cm.Allocate()
		require.NoError(t, err)
		b, err := cm.GetWrite(ids[i])
		require.NoError(t, err)
		fill(b, byte(i+1))
		require.NoError(t, cm.Put(b))
	}

	// capacity 2: the first block was written back when the third arrived
	assert.Equal(t, 2, cm.Stats().Dirty)
	raw, err := base.GetRead(ids[0])
	require.NoError(t, err)
	assert.Equal(t, byte(1), raw.Data[0])

	raw, err = base.GetRead(ids[2])
	require.NoError(t, err)
	assert.Equal(t, byte(0), raw.Data[0], "dirty block must not reach the base before eviction")

	// reads see dirty data
	b, err := cm.GetRead(ids[2])
	require.NoError(t, err)
	assert.Equal(t, byte(3), b.Data[0])

	require.NoError(t, cm.Sync())
	assert.Equal(t, 0, cm.Stats().Dirty)
	raw, err = base.GetRead(ids[2])
	require.NoError(t, err)
	assert.Equal(t, byte(3), raw.Data[0])
}

func TestCachedMgrCopiesOnRead(t *testing.T) {
	cm, err := NewCachedMgr(NewMemMgr(testBlockSize), CacheSizes{Read: 10, Write: 10})
	require.NoError(t, err)
	defer cm.Close()

	id, _ := cm.Allocate()
	b, _ := cm.GetWrite(id)
	fill(b, 7)
	require.NoError(t, cm.Put(b))

	// mutating a fetched copy without Put does not change the cache
	c, _ := cm.GetRead(id)
	fill(c, 9)
	d, _ := cm.GetRead(id)
	assert.Equal(t, byte(7), d.Data[0])
}

func TestCachedMgrFreeAndIntegrity(t *testing.T) {
	cm, err := NewCachedMgr(NewMemMgr(testBlockSize), CacheSizes{})
	require.NoError(t, err)
	defer cm.Close()

	id, _ := cm.Allocate()
	b, _ := cm.GetWrite(id)
	require.NoError(t, cm.Put(b))
	require.NoError(t, cm.Free(id))

	_, err = cm.GetRead(id)
	assert.True(t, errs.IsIntegrity(err))
	_, err = cm.GetRead(99)
	assert.True(t, errs.IsIntegrity(err))
}

func TestOpenPolicies(t *testing.T) {
	dir := t.TempDir()

	direct, err := Open(filepath.Join(dir, "direct.dat"), testBlockSize, PolicyDirect, CacheSizes{})
	require.NoError(t, err)
	_, ok := direct.(*FileMgr)
	assert.True(t, ok)
	require.NoError(t, direct.Close())

	cached, err := Open(filepath.Join(dir, "cached.dat"), testBlockSize, PolicyCached, DefaultCacheSizes)
	require.NoError(t, err)
	_, ok = cached.(*CachedMgr)
	assert.True(t, ok)

	id, _ := cached.Allocate()
	b, _ := cached.GetWrite(id)
	fill(b, 4)
	require.NoError(t, cached.Put(b))
	require.NoError(t, cached.Close())

	reopened, err := Open(filepath.Join(dir, "cached.dat"), testBlockSize, PolicyDirect, CacheSizes{})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.GetRead(id)
	require.NoError(t, err)
	assert.Equal(t, byte(4), got.Data[testBlockSize-1])
	assert.Equal(t, "direct", PolicyDirect.String())
}
