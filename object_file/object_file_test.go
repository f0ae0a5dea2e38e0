package objectfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DaemonRDF/errs"
)

func runObjectFileTest(t *testing.T, of ObjectFile) map[int64]string {
	t.Helper()

	objs := []string{"<http://example/s>", "", "\"hello\"@en", "_:b0"}
	ids := map[int64]string{}
	for _, o := range objs {
		id, err := of.Write([]byte(o))
		require.NoError(t, err)
		ids[id] = o
	}
	assert.Len(t, ids, len(objs), "ids must be distinct")

	for id, want := range ids {
		got, err := of.Read(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := of.Read(of.Length())
	assert.True(t, errs.IsIntegrity(err), "read at end: %v", err)
	_, err = of.Read(-4)
	assert.True(t, errs.IsIntegrity(err))

	seen := map[int64]string{}
	require.NoError(t, of.All(func(id int64, b []byte) error {
		seen[id] = string(b)
		return nil
	}))
	assert.Equal(t, ids, seen)

	st := of.Stats()
	assert.Equal(t, int64(len(objs)), st.Entries)
	assert.Equal(t, int64(len(objs)), st.Reads)
	return ids
}

func TestMem(t *testing.T) {
	runObjectFileTest(t, NewMem())
}

func TestFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.dat")

	of, err := OpenFile(path)
	require.NoError(t, err)
	ids := runObjectFileTest(t, of)
	length := of.Length()
	require.NoError(t, of.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, length, reopened.Length())
	for id, want := range ids {
		got, err := reopened.Read(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	// appends continue after the existing entries
	id, err := reopened.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, length, id)
}

func TestFileTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.dat")
	of, err := OpenFile(path)
	require.NoError(t, err)
	_, err = of.Write([]byte("complete"))
	require.NoError(t, err)
	require.NoError(t, of.Close())

	// a length header promising more bytes than were written
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0, 0, 0, 50, 'x'})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(4+len("complete")), reopened.Length())
	assert.Equal(t, int64(1), reopened.Stats().Entries)
}
