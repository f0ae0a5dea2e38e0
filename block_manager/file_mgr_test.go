package blockmgr

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"DaemonRDF/errs"
)

const testBlockSize = 512

func TestFileMgrBasicOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dat")

	fm, err := NewFileMgr(path, testBlockSize)
	if err != nil {
		t.Fatalf("Failed to create block manager: %v", err)
	}
	defer fm.Close()

	id, err := fm.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate block: %v", err)
	}
	if id != 0 {
		t.Errorf("Expected first block id to be 0, got %d", id)
	}

	// an allocated but unwritten block reads as zeros
	b, err := fm.GetRead(id)
	if err != nil {
		t.Fatalf("Failed to read fresh block: %v", err)
	}
	if !bytes.Equal(b.Data, make([]byte, testBlockSize)) {
		t.Errorf("Fresh block is not zeroed")
	}

	copy(b.Data, []byte("Hello, block file!"))
	if err := fm.Put(b); err != nil {
		t.Fatalf("Failed to put block: %v", err)
	}

	id2, err := fm.Allocate()
	if err != nil {
		t.Fatalf("Failed to allocate second block: %v", err)
	}
	if id2 != 1 {
		t.Errorf("Expected second block id to be 1, got %d", id2)
	}
	b2, _ := fm.GetWrite(id2)
	copy(b2.Data, []byte("second"))
	if err := fm.Put(b2); err != nil {
		t.Fatalf("Failed to put second block: %v", err)
	}

	if err := fm.Sync(); err != nil {
		t.Fatalf("Failed to sync: %v", err)
	}
	fm.Close()

	reopened, err := NewFileMgr(path, testBlockSize)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Size() != 2 {
		t.Errorf("Expected 2 blocks after reopen, got %d", reopened.Size())
	}
	persisted, err := reopened.GetRead(0)
	if err != nil {
		t.Fatalf("Failed to read persisted block: %v", err)
	}
	if !bytes.Equal(persisted.Data[:18], []byte("Hello, block file!")) {
		t.Errorf("Data not persisted correctly, got %q", persisted.Data[:18])
	}
}

func TestFileMgrRejectsUnallocated(t *testing.T) {
	fm, err := NewFileMgr(filepath.Join(t.TempDir(), "test.dat"), testBlockSize)
	if err != nil {
		t.Fatalf("Failed to create block manager: %v", err)
	}
	defer fm.Close()

	_, err = fm.GetRead(3)
	if !errs.IsIntegrity(err) {
		t.Fatalf("Expected integrity error reading unallocated block, got %v", err)
	}

	id, _ := fm.Allocate()
	if err := fm.Free(id); err != nil {
		t.Fatalf("Failed to free block: %v", err)
	}
	_, err = fm.GetRead(id)
	if !errs.IsIntegrity(err) {
		t.Fatalf("Expected integrity error reading freed block, got %v", err)
	}
	if fm.Valid(id) {
		t.Errorf("Freed block should not be valid")
	}

	// freed ids are reused
	again, _ := fm.Allocate()
	if again != id {
		t.Errorf("Expected freed id %d to be reused, got %d", id, again)
	}
}

func TestFileMgrBlockSizeEnforcement(t *testing.T) {
	fm, err := NewFileMgr(filepath.Join(t.TempDir(), "test.dat"), testBlockSize)
	if err != nil {
		t.Fatalf("Failed to create block manager: %v", err)
	}
	defer fm.Close()

	id, _ := fm.Allocate()

	if err := fm.Put(&Block{ID: id, Data: make([]byte, testBlockSize-1)}); err == nil {
		t.Error("Expected error when writing a short block")
	}
	if err := fm.Put(&Block{ID: id, Data: make([]byte, testBlockSize+1)}); err == nil {
		t.Error("Expected error when writing a long block")
	}
	if err := fm.Put(&Block{ID: id, Data: make([]byte, testBlockSize)}); err != nil {
		t.Errorf("Writing a full block should succeed, got: %v", err)
	}
}

func TestFileMgrPartialTrailingBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.dat")
	if err := os.WriteFile(path, make([]byte, testBlockSize*2+100), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	fm, err := NewFileMgr(path, testBlockSize)
	if err != nil {
		t.Fatalf("Failed to open torn file: %v", err)
	}
	defer fm.Close()

	if fm.Size() != 2 {
		t.Errorf("Expected the partial block to be ignored, size %d", fm.Size())
	}
}

func TestFileMgrMultipleBlocks(t *testing.T) {
	fm, err := NewFileMgr(filepath.Join(t.TempDir(), "multi.dat"), testBlockSize)
	if err != nil {
		t.Fatalf("Failed to create block manager: %v", err)
	}
	defer fm.Close()

	numBlocks := 5
	data := make([][]byte, numBlocks)
	for i := 0; i < numBlocks; i++ {
		id, err := fm.Allocate()
		if err != nil {
			t.Fatalf("Failed to allocate block %d: %v", i, err)
		}
		data[i] = make([]byte, testBlockSize)
		copy(data[i], []byte{byte(i), byte(i + 1), byte(i + 2)})
		if err := fm.Put(&Block{ID: id, Data: data[i]}); err != nil {
			t.Fatalf("Failed to write block %d: %v", i, err)
		}
	}

	for i := 0; i < numBlocks; i++ {
		b, err := fm.GetRead(int64(i))
		if err != nil {
			t.Fatalf("Failed to read block %d: %v", i, err)
		}
		if !bytes.Equal(data[i], b.Data) {
			t.Errorf("Block %d data mismatch", i)
		}
	}

	st := fm.Stats()
	if st.Writes != int64(numBlocks) || st.Reads != int64(numBlocks) {
		t.Errorf("Unexpected stats %+v", st)
	}
}
