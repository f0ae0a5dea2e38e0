package nodetable

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/errs"
	nodeid "DaemonRDF/node_id"
	objectfile "DaemonRDF/object_file"
	rangeindex "DaemonRDF/range_index"
	term "DaemonRDF/rdf_term"
	"DaemonRDF/record"
)

func memDict(t *testing.T) rangeindex.RangeIndex {
	t.Helper()
	idx, err := rangeindex.Open(rangeindex.KindBPlusTree, "", rangeindex.Options{
		Factory:   DictFactory,
		BlockSize: 256,
	})
	require.NoError(t, err)
	return idx
}

func newMemTable(t *testing.T) (*Table, *objectfile.Mem) {
	t.Helper()
	objects := objectfile.NewMem()
	nt, err := New(objects, memDict(t), CacheSizes{Node2Id: 1000, Id2Node: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { nt.Close() })
	return nt, objects
}

func TestAllocateIsIdempotent(t *testing.T) {
	nt, _ := newMemTable(t)

	terms := []term.Term{
		term.NewIRI("http://example/s"),
		term.NewBlank("b0"),
		term.NewLiteral("hello"),
		term.NewLangLiteral("hello", "en"),
		term.NewTypedLiteral("hello", "http://example/dt"),
	}

	ids := make([]nodeid.NodeId, len(terms))
	for i, tm := range terms {
		id, err := nt.GetAllocateNodeId(tm)
		require.NoError(t, err)
		assert.True(t, id.IsPtr(), "%s should be a dictionary id", tm)
		ids[i] = id
	}
	nt.Cache().Wait()

	for i, tm := range terms {
		id, err := nt.GetAllocateNodeId(tm)
		require.NoError(t, err)
		assert.Equal(t, ids[i], id)

		got, err := nt.GetNodeIdForNode(tm)
		require.NoError(t, err)
		assert.Equal(t, ids[i], got)

		back, err := nt.GetNodeForNodeId(id)
		require.NoError(t, err)
		assert.Equal(t, tm, back)
	}
	assert.Equal(t, int64(len(terms)), nt.Native().Size())

	// "hello" and "hello"@en are different terms
	assert.NotEqual(t, ids[2], ids[3])
}

func TestLookupDoesNotAllocate(t *testing.T) {
	nt, objects := newMemTable(t)

	id, err := nt.GetNodeIdForNode(term.NewIRI("http://example/missing"))
	require.NoError(t, err)
	assert.Equal(t, nodeid.NotFound, id)
	assert.Zero(t, objects.Length())
	assert.Zero(t, nt.Native().Size())
}

func TestInlineBypassesObjectFile(t *testing.T) {
	nt, objects := newMemTable(t)

	fortyTwo := term.NewTypedLiteral("42", term.XSDInteger)
	id, err := nt.GetAllocateNodeId(fortyTwo)
	require.NoError(t, err)
	assert.Equal(t, nodeid.TypeInteger, id.Type())

	back, err := nt.GetNodeForNodeId(id)
	require.NoError(t, err)
	assert.Equal(t, fortyTwo, back)

	stats := objects.Stats()
	assert.Zero(t, stats.Writes)
	assert.Zero(t, stats.Reads)
	assert.Zero(t, nt.Native().Size())

	huge := term.NewTypedLiteral("123456789012345678901234567890", term.XSDInteger)
	id, err = nt.GetAllocateNodeId(huge)
	require.NoError(t, err)
	assert.True(t, id.IsPtr())
	assert.Equal(t, int64(1), objects.Stats().Writes)

	back, err = nt.GetNodeForNodeId(id)
	require.NoError(t, err)
	assert.Equal(t, huge, back)
}

func TestHashCollisionsUseSlots(t *testing.T) {
	native, err := NewNative(objectfile.NewMem(), memDict(t))
	require.NoError(t, err)
	defer native.Close()
	native.hash = func([]byte) uint64 { return 7 }

	ids := map[nodeid.NodeId]term.Term{}
	for i := 0; i < 40; i++ {
		tm := term.NewIRI(fmt.Sprintf("http://example/collide/%d", i))
		id, err := native.GetAllocateNodeId(tm)
		require.NoError(t, err)
		ids[id] = tm
	}
	require.Len(t, ids, 40)
	assert.Equal(t, int64(40), native.Size())

	for id, tm := range ids {
		got, err := native.GetNodeIdForNode(tm)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	// slot 39 is the last one used
	_, found, err := native.Index().Find(dictKey(7, 39))
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = native.Index().Find(dictKey(7, 40))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetNodeForNonPointer(t *testing.T) {
	native, err := NewNative(objectfile.NewMem(), memDict(t))
	require.NoError(t, err)
	defer native.Close()

	_, err = native.GetNodeForNodeId(nodeid.Any)
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func TestWrongDictionaryLayout(t *testing.T) {
	idx, err := rangeindex.Open(rangeindex.KindMem, "", rangeindex.Options{
		Factory: record.MustFactory(8, 8),
	})
	require.NoError(t, err)

	_, err = NewNative(objectfile.NewMem(), idx)
	assert.True(t, errs.IsConfig(err), "got %v", err)
}

func TestReopenOnDisk(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "nodes.dat")
	idxPath := filepath.Join(dir, "node2id.dat")
	opts := rangeindex.Options{Factory: DictFactory, BlockSize: 512}

	open := func() *Table {
		objects, err := objectfile.OpenFile(objPath)
		require.NoError(t, err)
		idx, err := rangeindex.Open(rangeindex.KindBPlusTree, idxPath, opts)
		require.NoError(t, err)
		nt, err := New(objects, idx, DefaultCacheSizes)
		require.NoError(t, err)
		return nt
	}

	nt := open()
	want := map[string]nodeid.NodeId{}
	for i := 0; i < 300; i++ {
		tm := term.NewLiteral(fmt.Sprintf("value %d", i))
		id, err := nt.GetAllocateNodeId(tm)
		require.NoError(t, err)
		want[tm.String()] = id
	}
	require.NoError(t, nt.Sync())
	require.NoError(t, nt.Close())

	nt = open()
	defer nt.Close()

	seen := 0
	err := nt.All(func(id nodeid.NodeId, tm term.Term) error {
		seen++
		assert.Equal(t, want[tm.String()], id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 300, seen)

	for s, id := range want {
		got, err := nt.GetNodeIdForNode(term.MustParse(s))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	// allocating an existing term after reopen adds nothing
	before := nt.Native().ObjectStats().Length
	_, err = nt.GetAllocateNodeId(term.NewLiteral("value 7"))
	require.NoError(t, err)
	assert.Equal(t, before, nt.Native().ObjectStats().Length)
}
