package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/errs"
)

func TestLocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	loc, err := NewLocation(dir)
	require.NoError(t, err)

	assert.False(t, loc.IsMem())
	assert.Equal(t, filepath.Join(dir, "SPO.dat"), loc.Path("SPO.dat"))
	assert.False(t, loc.Exists("SPO.dat"))
	assert.False(t, loc.HasData())

	require.NoError(t, os.WriteFile(loc.Path("SPO.dat"), []byte{1}, 0644))
	require.NoError(t, os.WriteFile(loc.Path("POS.dat.tmp"), []byte{1}, 0644))
	assert.True(t, loc.Exists("SPO.dat"))
	assert.True(t, loc.HasData())

	removed, err := loc.CleanupIncomplete()
	require.NoError(t, err)
	assert.Equal(t, []string{"POS.dat.tmp"}, removed)
	assert.False(t, loc.Exists("POS.dat.tmp"))
	assert.True(t, loc.Exists("SPO.dat"))

	mem := MemLocation()
	assert.True(t, mem.IsMem())
	assert.Empty(t, mem.Path("SPO.dat"))
	assert.False(t, mem.HasData())
}

func TestMetaFileRoundTrip(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)

	m, err := Open(loc)
	require.NoError(t, err)
	assert.False(t, m.Legacy())
	m.EnsureDefaults()
	require.NoError(t, m.CheckOrSetInt(FileKey("SPO", AttrBlockSize), 8192))
	m.Set(KeyIndexesTriples, JoinList([]string{"SPO", "POS", "OSP"}))
	require.NoError(t, m.Flush())
	assert.False(t, m.Dirty())

	id, _ := m.Get(KeyStoreID)
	assert.NotEmpty(t, id)

	m2, err := Open(loc)
	require.NoError(t, err)
	assert.Equal(t, m.Properties(), m2.Properties())

	n, ok, err := m2.GetInt(FileKey("SPO", AttrBlockSize))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8192, n)

	v, _ := m2.Get(KeyIndexesTriples)
	assert.Equal(t, []string{"SPO", "POS", "OSP"}, SplitList(v))

	// defaults never overwrite persisted values
	m2.EnsureDefaults()
	id2, _ := m2.Get(KeyStoreID)
	assert.Equal(t, id, id2)
	assert.False(t, m2.Dirty())
}

func TestPersistedValueWins(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)
	m, err := Open(loc)
	require.NoError(t, err)

	key := FileKey("SPO", AttrBlockSize)
	require.NoError(t, m.CheckOrSetInt(key, 8192))
	require.NoError(t, m.Flush())

	m, err = Open(loc)
	require.NoError(t, err)
	err = m.CheckOrSetInt(key, 4096)
	assert.True(t, errs.IsConfig(err), "got %v", err)

	v, _ := m.Get(key)
	assert.Equal(t, "8192", v)
	assert.Equal(t, "8192", m.GetOrSetDefault(key, "4096"))
}

func TestLegacyStore(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(loc.Path("nodes.dat"), []byte{0}, 0644))

	m, err := Open(loc)
	require.NoError(t, err)
	assert.True(t, m.Legacy())
	v, _ := m.Get(KeyCreateVersion)
	assert.Equal(t, LegacyVersion, v)

	m.EnsureDefaults()
	v, _ = m.Get(KeyCreateVersion)
	assert.Equal(t, LegacyVersion, v)
}

func TestCorruptMetaFile(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(loc.Path(MetaFileName), []byte{0xff, 0xff, 0xff}, 0644))

	_, err = Open(loc)
	assert.True(t, errs.IsIntegrity(err), "got %v", err)
}

func TestEmptyMetaFile(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(loc.Path(MetaFileName), nil, 0644))

	_, err = Open(loc)
	assert.True(t, errs.IsIntegrity(err), "got %v", err)
}

func TestFlushReplacesFile(t *testing.T) {
	loc, err := NewLocation(t.TempDir())
	require.NoError(t, err)
	m, err := Open(loc)
	require.NoError(t, err)
	m.EnsureDefaults()
	require.NoError(t, m.Flush())

	assert.False(t, loc.Exists(MetaFileName+TmpExt))
	fi, err := os.Stat(loc.Path(MetaFileName))
	require.NoError(t, err)
	assert.NotZero(t, fi.Size())

	m.Set(KeyLayout, "v2")
	require.NoError(t, m.Flush())
	m2, err := Open(loc)
	require.NoError(t, err)
	v, _ := m2.Get(KeyLayout)
	assert.Equal(t, "v2", v)
	assert.False(t, loc.Exists(MetaFileName+TmpExt))
}

func TestMemMetaFile(t *testing.T) {
	m, err := Open(MemLocation())
	require.NoError(t, err)
	m.EnsureDefaults()
	require.NoError(t, m.Flush())
	v, ok := m.Get(KeyLayout)
	assert.True(t, ok)
	assert.Equal(t, LayoutV1, v)
}
