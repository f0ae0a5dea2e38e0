package storageengine

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/config"
	"DaemonRDF/errs"
	"DaemonRDF/metadata"
	nodeid "DaemonRDF/node_id"
	rangeindex "DaemonRDF/range_index"
	term "DaemonRDF/rdf_term"
	"DaemonRDF/testutil"
)

func TestMain(m *testing.M) {
	testutil.SetupLogger("storage_test.log")
	os.Exit(m.Run())
}

func smallParams() config.Params {
	p := config.Default()
	p.BlockSize = 512
	p.BlockReadCache = 16
	p.BlockWriteCache = 4
	p.Node2IdCache = 64
	p.Id2NodeCache = 64
	return p
}

func openStore(t *testing.T, loc *metadata.Location, p config.Params) *Store {
	t.Helper()
	s, err := OpenStore(loc, p)
	require.NoError(t, err)
	return s
}

func findAll(t *testing.T, s *Store, pattern term.Triple) []string {
	t.Helper()
	var out []string
	err := s.Find(pattern, func(tr term.Triple) error {
		out = append(out, tr.String())
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestColMap(t *testing.T) {
	cm, err := newColMap("SPO", "POS")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, cm)

	cm, err = newColMap("GSPO", "SPOG")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 0}, cm)

	for _, bad := range []string{"SP", "SPP", "SPX", "GSPO"} {
		_, err := newColMap("SPO", bad)
		assert.True(t, errs.IsConfig(err), "newColMap(SPO, %s) got %v", bad, err)
	}
}

func TestTupleEncoding(t *testing.T) {
	ti, err := newTupleIndex("SPO", "OSP")
	require.NoError(t, err)

	tuple := []nodeid.NodeId{1, 2, 3}
	r := ti.Encode(tuple)
	assert.Equal(t, nodeid.NodeId(3), nodeid.FromBytes(r[0:8]))
	assert.Equal(t, nodeid.NodeId(1), nodeid.FromBytes(r[8:16]))
	assert.Equal(t, nodeid.NodeId(2), nodeid.FromBytes(r[16:24]))
	assert.Equal(t, tuple, ti.Decode(r))

	assert.Equal(t, 1, ti.weight([]nodeid.NodeId{nodeid.Any, nodeid.Any, 3}))
	assert.Equal(t, 0, ti.weight([]nodeid.NodeId{1, 2, nodeid.Any}))
}

func TestBestIndex(t *testing.T) {
	var group []*TupleIndex
	for _, name := range config.DefaultTripleIndexes {
		ti, err := newTupleIndex(TriplePrimary, name)
		require.NoError(t, err)
		group = append(group, ti)
	}
	w := nodeid.Any
	cases := []struct {
		pattern []nodeid.NodeId
		want    string
	}{
		{[]nodeid.NodeId{w, w, w}, "SPO"},
		{[]nodeid.NodeId{1, w, w}, "SPO"},
		{[]nodeid.NodeId{w, 2, w}, "POS"},
		{[]nodeid.NodeId{w, w, 3}, "OSP"},
		{[]nodeid.NodeId{w, 2, 3}, "POS"},
		{[]nodeid.NodeId{1, w, 3}, "OSP"},
		{[]nodeid.NodeId{1, 2, 3}, "SPO"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, bestIndex(group, c.pattern).name, "pattern %v", c.pattern)
	}
}

func TestAddFindDelete(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	defer s.Close()

	data := []term.Triple{
		testutil.Triple(t, "<http://ex/a>", "<http://ex/knows>", "<http://ex/b>"),
		testutil.Triple(t, "<http://ex/a>", "<http://ex/knows>", "<http://ex/c>"),
		testutil.Triple(t, "<http://ex/b>", "<http://ex/knows>", "<http://ex/c>"),
		testutil.Triple(t, "<http://ex/a>", "<http://ex/age>",
			`"42"^^<http://www.w3.org/2001/XMLSchema#integer>`),
		testutil.Triple(t, "<http://ex/a>", "<http://ex/name>", `"Alice"@en`),
	}
	for _, tr := range data {
		added, err := s.Add(tr)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := s.Add(data[0])
	require.NoError(t, err)
	assert.False(t, added)

	assert.Len(t, findAll(t, s, term.Triple{}), 5)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "<http://ex/a>", "", "")), 4)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "", "<http://ex/knows>", "")), 3)
	assert.Equal(t, []string{data[1].String(), data[2].String()},
		findAll(t, s, testutil.Triple(t, "", "", "<http://ex/c>")))
	assert.Empty(t, findAll(t, s, testutil.Triple(t, "<http://ex/nobody>", "", "")))

	// the integer is inline: it round trips without touching the dictionary
	age := findAll(t, s, testutil.Triple(t, "", "<http://ex/age>", ""))
	assert.Equal(t, []string{data[3].String()}, age)

	deleted, err := s.Delete(data[1])
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Delete(data[1])
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, findAll(t, s, term.Triple{}), 4)

	for _, ti := range s.TripleIndexes() {
		assert.Equal(t, int64(4), ti.Index().Size(), ti.Name())
	}

	_, err = s.Delete(testutil.Triple(t, "<http://ex/a>", "", ""))
	assert.True(t, errs.IsRange(err), "got %v", err)
}

func TestQuads(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	defer s.Close()

	q1 := testutil.Quad(t, "<http://ex/g1>", "<http://ex/s>", "<http://ex/p>", `"one"`)
	q2 := testutil.Quad(t, "<http://ex/g2>", "<http://ex/s>", "<http://ex/p>", `"two"`)
	for _, q := range []term.Quad{q1, q2} {
		_, err := s.AddQuad(q)
		require.NoError(t, err)
	}
	// no graph: default graph triple
	_, err := s.AddQuad(term.Quad{S: q1.S, P: q1.P, O: q1.O})
	require.NoError(t, err)

	var got []string
	err = s.FindQuads(testutil.Quad(t, "<http://ex/g2>", "", "", ""), func(q term.Quad) error {
		got = append(got, q.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{q2.String()}, got)

	got = nil
	err = s.FindQuads(testutil.Quad(t, "", "<http://ex/s>", "", ""), func(q term.Quad) error {
		got = append(got, q.G.String())
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"<http://ex/g1>", "<http://ex/g2>"}, got)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Quads)
	assert.Equal(t, int64(1), st.Triples)

	deleted, err := s.DeleteQuad(q1)
	require.NoError(t, err)
	assert.True(t, deleted)
	for _, ti := range s.QuadIndexes() {
		assert.Equal(t, int64(1), ti.Index().Size(), ti.Name())
	}
}

func TestRecordAccess(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	defer s.Close()

	ti, err := s.Index("POS")
	require.NoError(t, err)
	r := ti.Encode([]nodeid.NodeId{10, 20, 30})
	require.NoError(t, s.InsertRecord("POS", r))

	it, err := s.Scan("POS", nodeid.NodeId(20).Bytes())
	require.NoError(t, err)
	n := 0
	for it.Next() {
		assert.Equal(t, []nodeid.NodeId{10, 20, 30}, ti.Decode(it.Record()))
		n++
	}
	require.NoError(t, it.Err())
	it.Close()
	assert.Equal(t, 1, n)

	deleted, err := s.DeleteRecord("POS", r)
	require.NoError(t, err)
	assert.True(t, deleted)

	// a record of the wrong length is refused the same way on both paths
	short := []byte{1, 2}
	err = s.InsertRecord("POS", short)
	assert.True(t, errs.IsConfig(err), "got %v", err)
	_, err = s.DeleteRecord("POS", short)
	assert.True(t, errs.IsConfig(err), "got %v", err)

	err = s.InsertRecord("XYZ", r)
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func TestReopen(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())

	for i := 0; i < 200; i++ {
		_, err := s.Add(testutil.Triple(t, fmt.Sprintf("<http://ex/s%d>", i%10), "<http://ex/p>",
			fmt.Sprintf(`"v%d"`, i)))
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s = openStore(t, loc, smallParams())
	defer s.Close()
	assert.False(t, s.Meta().Legacy())

	assert.Len(t, findAll(t, s, term.Triple{}), 200)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "<http://ex/s3>", "", "")), 20)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(200), st.Triples)
	assert.Equal(t, int64(211), st.Terms) // 10 subjects, 1 predicate, 200 values
	for _, is := range st.Indexes {
		if is.Kind == rangeindex.KindBPlusTree {
			require.NotNil(t, is.Blocks, is.Name)
		}
	}

	blk, _ := s.Meta().Get(metadata.FileKey("SPO", metadata.AttrBlockSize))
	assert.Equal(t, "512", blk)
}

func TestReopenBlockSizeConflict(t *testing.T) {
	loc := testutil.TempLocation(t)
	p := config.Default()
	p.BlockSize = 8192
	s := openStore(t, loc, p)
	require.NoError(t, s.Close())

	p.BlockSize = 4096
	_, err := OpenStore(loc, p)
	assert.True(t, errs.IsConfig(err), "got %v", err)

	v, _ := func() (string, bool) {
		m, err := metadata.Open(loc)
		require.NoError(t, err)
		return m.Get(metadata.FileKey("SPO", metadata.AttrBlockSize))
	}()
	assert.Equal(t, "8192", v)
}

func TestCompact(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())
	defer s.Close()

	var all []term.Triple
	for i := 0; i < 1000; i++ {
		tr := testutil.Triple(t, fmt.Sprintf("<http://ex/s%d>", i), "<http://ex/p>",
			fmt.Sprintf(`"%d"^^<http://www.w3.org/2001/XMLSchema#integer>`, i))
		_, err := s.Add(tr)
		require.NoError(t, err)
		all = append(all, tr)
	}
	for i, tr := range all {
		if i%3 != 0 {
			_, err := s.Delete(tr)
			require.NoError(t, err)
		}
	}
	before := findAll(t, s, term.Triple{})
	ids := map[string]nodeid.NodeId{}
	for _, tr := range all[:50] {
		id, err := s.LookupTerm(tr.S)
		require.NoError(t, err)
		ids[tr.S.String()] = id
	}

	res, err := s.Compact("SPO")
	require.NoError(t, err)
	assert.Equal(t, int64(334), res.Records)
	assert.Less(t, res.BlocksAfter, res.BlocksBefore)
	assert.False(t, loc.Exists("SPO.dat.tmp"))

	results, err := s.CompactAll()
	require.NoError(t, err)
	assert.Len(t, results, len(config.DefaultTripleIndexes)+len(config.DefaultQuadIndexes)+1)
	last := results[len(results)-1]
	assert.Equal(t, Node2Id, last.Index)
	assert.Equal(t, int64(1001), last.Records) // 1000 subjects and the predicate
	assert.LessOrEqual(t, last.BlocksAfter, last.BlocksBefore)
	require.NoError(t, s.nodes.Native().Index().(*rangeindex.BPlusIndex).Check())

	assert.Equal(t, before, findAll(t, s, term.Triple{}))
	for _, tr := range all[:50] {
		id, err := s.LookupTerm(tr.S)
		require.NoError(t, err)
		assert.Equal(t, ids[tr.S.String()], id, tr.S.String())
		got, err := s.ResolveTerm(id)
		require.NoError(t, err)
		assert.Equal(t, tr.S, got)
	}
	for _, ti := range s.TripleIndexes() {
		bi := ti.Index().(*rangeindex.BPlusIndex)
		require.NoError(t, bi.Check(), ti.Name())
	}

	// still writable after the swap
	_, err = s.Add(all[1])
	require.NoError(t, err)
	assert.Len(t, findAll(t, s, term.Triple{}), 335)
	id, err := s.AllocateOrLookupTerm(testutil.Triple(t, "<http://ex/fresh>", "", "").S)
	require.NoError(t, err)
	assert.False(t, id.IsInline())

	// and the compacted dictionary survives a reopen
	require.NoError(t, s.Close())
	s = openStore(t, loc, smallParams())
	defer s.Close()
	for _, tr := range all[:50] {
		id, err := s.AllocateOrLookupTerm(tr.S)
		require.NoError(t, err)
		assert.Equal(t, ids[tr.S.String()], id, tr.S.String())
	}
}

func TestCompactDictionaryByName(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	defer s.Close()
	for i := 0; i < 100; i++ {
		_, err := s.AllocateOrLookupTerm(testutil.Triple(t, fmt.Sprintf("<http://ex/t%d>", i), "", "").S)
		require.NoError(t, err)
	}
	res, err := s.Compact(Node2Id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Records)

	id, err := s.LookupTerm(testutil.Triple(t, "<http://ex/t42>", "", "").S)
	require.NoError(t, err)
	assert.NotEqual(t, nodeid.NotFound, id)
}

func TestCompactRenameFailureKeepsIndex(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())
	defer s.Close()
	for i := 0; i < 100; i++ {
		_, err := s.Add(testutil.Triple(t, fmt.Sprintf("<http://ex/s%d>", i), "<http://ex/p>", `"o"`))
		require.NoError(t, err)
	}

	rename = func(string, string) error { return errors.New("rename refused") }
	defer func() { rename = os.Rename }()

	_, err := s.Compact("SPO")
	require.Error(t, err)
	assert.False(t, loc.Exists("SPO.dat.tmp"))

	// the original tree was reopened in place
	assert.Len(t, findAll(t, s, term.Triple{}), 100)
	_, err = s.Add(testutil.Triple(t, "<http://ex/more>", "<http://ex/p>", `"o"`))
	require.NoError(t, err)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "<http://ex/more>", "", "")), 1)
	require.NoError(t, s.Sync())
}

func TestCompactUnrecoverableClosesStore(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())
	_, err := s.Add(testutil.Triple(t, "<http://ex/s>", "<http://ex/p>", `"o"`))
	require.NoError(t, err)

	// the rename fails and leaves no readable tree behind
	rename = func(_, dst string) error {
		if err := os.WriteFile(dst, make([]byte, 512), 0644); err != nil {
			return err
		}
		return errors.New("rename refused")
	}
	defer func() { rename = os.Rename }()

	_, err = s.Compact("SPO")
	assert.True(t, errs.IsIntegrity(err), "got %v", err)

	_, err = s.Add(testutil.Triple(t, "<http://ex/s2>", "<http://ex/p>", `"o"`))
	assert.True(t, errs.IsConfig(err), "got %v", err)
	err = s.Find(term.Triple{}, func(term.Triple) error { return nil })
	assert.True(t, errs.IsConfig(err), "got %v", err)
	assert.NoError(t, s.Close())
}

func TestMemIndexRejectedOnDisk(t *testing.T) {
	p := smallParams()
	p.IndexImpl = "btree"
	_, err := OpenStore(testutil.TempLocation(t), p)
	assert.True(t, errs.IsConfig(err), "got %v", err)

	// fine where nothing is persisted anyway
	s := openStore(t, metadata.MemLocation(), p)
	require.NoError(t, s.Close())

	// a disk store keeps its persisted kind and its terms across reopen
	loc := testutil.TempLocation(t)
	s = openStore(t, loc, smallParams())
	iri := testutil.Triple(t, "<http://ex/a>", "", "").S
	before, err := s.AllocateOrLookupTerm(iri)
	require.NoError(t, err)
	_, err = s.Add(testutil.Triple(t, "<http://ex/a>", "<http://ex/p>", `"o"`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	p = smallParams()
	p.IndexImpl = "mem"
	s = openStore(t, loc, p)
	defer s.Close()
	after, err := s.AllocateOrLookupTerm(iri)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, findAll(t, s, term.Triple{}), 1)
}

func TestCompactMem(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	defer s.Close()
	for i := 0; i < 100; i++ {
		_, err := s.Add(testutil.Triple(t, "<http://ex/s>", "<http://ex/p>", fmt.Sprintf(`"%d"`, i)))
		require.NoError(t, err)
	}
	_, err := s.Compact("POS")
	require.NoError(t, err)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "", "<http://ex/p>", "")), 100)
}

func TestCleanupOnOpen(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(loc.Path("SPO.dat.tmp"), []byte("partial"), 0644))
	s = openStore(t, loc, smallParams())
	defer s.Close()
	assert.False(t, loc.Exists("SPO.dat.tmp"))
}

func TestBulkLoad(t *testing.T) {
	loc := testutil.TempLocation(t)
	s := openStore(t, loc, smallParams())
	defer s.Close()

	l := s.Loader()
	require.NoError(t, l.StartBulk())
	for i := 0; i < 500; i++ {
		tr := testutil.Triple(t, fmt.Sprintf("<http://ex/s%d>", i%50), "<http://ex/p>",
			fmt.Sprintf(`"v%d"`, i))
		require.NoError(t, l.Triple(tr))
		// duplicates collapse in the buffer
		require.NoError(t, l.Triple(tr))
	}
	require.NoError(t, l.Quad(testutil.Quad(t, "<http://ex/g>", "<http://ex/s0>", "<http://ex/p>",
		`"q"`)))
	stats, err := l.FinishBulk()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stats.Triples)
	assert.Equal(t, int64(1), stats.Quads)
	assert.ElementsMatch(t, append(append([]string{}, config.DefaultTripleIndexes...),
		config.DefaultQuadIndexes...), stats.Built)
	assert.Empty(t, stats.Inserted)

	assert.Len(t, findAll(t, s, term.Triple{}), 500)
	assert.Len(t, findAll(t, s, testutil.Triple(t, "<http://ex/s7>", "", "")), 10)
	for _, ti := range s.TripleIndexes() {
		require.NoError(t, ti.Index().(*rangeindex.BPlusIndex).Check(), ti.Name())
	}

	// a second load goes through inserts
	require.NoError(t, l.StartBulk())
	require.NoError(t, l.Triple(testutil.Triple(t, "<http://ex/new>", "<http://ex/p>", `"x"`)))
	stats, err = l.FinishBulk()
	require.NoError(t, err)
	assert.ElementsMatch(t, config.DefaultTripleIndexes, stats.Inserted)
	assert.Len(t, findAll(t, s, term.Triple{}), 501)

	_, err = l.FinishBulk()
	assert.True(t, errs.IsConfig(err), "got %v", err)
}

func TestBoltStore(t *testing.T) {
	loc := testutil.TempLocation(t)
	p := smallParams()
	p.IndexImpl = "bbolt"
	s := openStore(t, loc, p)

	tr := testutil.Triple(t, "<http://ex/s>", "<http://ex/p>", `"o"`)
	_, err := s.Add(tr)
	require.NoError(t, err)
	assert.True(t, loc.Exists("SPO.bolt"))

	_, err = s.Compact("SPO")
	assert.True(t, errs.IsConfig(err), "got %v", err)
	require.NoError(t, s.Close())

	// the persisted implementation wins over the default
	s = openStore(t, loc, smallParams())
	defer s.Close()
	assert.Equal(t, []string{tr.String()}, findAll(t, s, term.Triple{}))
	ti, err := s.Index("SPO")
	require.NoError(t, err)
	assert.IsType(t, &rangeindex.BoltIndex{}, ti.Index())
}

func TestBadIndexList(t *testing.T) {
	p := smallParams()
	p.TripleIndexes = []string{"SPO", "SPX"}
	_, err := OpenStore(metadata.MemLocation(), p)
	assert.True(t, errs.IsConfig(err), "got %v", err)
}

func TestClosedStore(t *testing.T) {
	s := openStore(t, metadata.MemLocation(), smallParams())
	require.NoError(t, s.Close())
	_, err := s.Add(testutil.Triple(t, "<http://ex/s>", "<http://ex/p>", `"o"`))
	assert.True(t, errs.IsConfig(err), "got %v", err)
}
