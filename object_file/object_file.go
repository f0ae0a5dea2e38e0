package objectfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"DaemonRDF/errs"
)

/*
An object file is an append-only sequence of byte strings. Each entry is

	length(4, big endian) | bytes

and is identified by the offset of its length field, which never changes once
written. Entry ids are therefore stable across reopen and compaction of the
indexes that point at them.
*/

const lengthSize = 4

// MaxObjectSize bounds a single entry.
const MaxObjectSize = 1<<31 - 1

type ObjectFile interface {
	Write(b []byte) (int64, error)
	Read(id int64) ([]byte, error)
	// Length is the offset the next entry will be written at.
	Length() int64
	All(fn func(id int64, b []byte) error) error
	Stats() Stats
	Sync() error
	Close() error
}

type Stats struct {
	Length  int64
	Entries int64
	Reads   int64
	Writes  int64
}

// File is the on-disk object file. Appends go through a buffer that is
// flushed on Sync, on Close and before any read that reaches into it.
type File struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	buf       *bufio.Writer
	flushed   int64 // bytes on disk
	length    int64 // flushed + buffered
	entries   int64
	writes    int64
	readCount int64
}

func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat object file: %w", err)
	}

	of := &File{
		path:    path,
		file:    f,
		flushed: st.Size(),
		length:  st.Size(),
	}
	if err := of.recover(); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(of.length, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek object file: %w", err)
	}
	of.buf = bufio.NewWriterSize(f, 64*1024)
	return of, nil
}

// recover counts entries and cuts off a torn last entry left by a crash
// during append.
func (of *File) recover() error {
	var pos int64
	var hdr [lengthSize]byte
	for pos < of.length {
		if of.length-pos < lengthSize {
			break
		}
		if _, err := of.file.ReadAt(hdr[:], pos); err != nil {
			return fmt.Errorf("failed to scan object file: %w", err)
		}
		next := pos + lengthSize + int64(binary.BigEndian.Uint32(hdr[:]))
		if next > of.length {
			break
		}
		of.entries++
		pos = next
	}
	if pos != of.length {
		log.WithFields(log.Fields{
			"file":      of.path,
			"length":    of.length,
			"truncated": pos,
		}).Warn("object file ends with a partial entry; truncating")
		if err := of.file.Truncate(pos); err != nil {
			return fmt.Errorf("failed to truncate object file: %w", err)
		}
		of.length = pos
		of.flushed = pos
	}
	return nil
}

func (of *File) Write(b []byte) (int64, error) {
	if len(b) > MaxObjectSize {
		return 0, errs.Range("objectfile", "object of %d bytes too large", len(b))
	}

	of.mu.Lock()
	defer of.mu.Unlock()

	id := of.length
	var hdr [lengthSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := of.buf.Write(hdr[:]); err != nil {
		return 0, fmt.Errorf("failed to append object: %w", err)
	}
	if _, err := of.buf.Write(b); err != nil {
		return 0, fmt.Errorf("failed to append object: %w", err)
	}
	of.length += int64(lengthSize + len(b))
	of.entries++
	of.writes++
	return id, nil
}

func (of *File) flushLocked() error {
	if of.flushed == of.length {
		return nil
	}
	if err := of.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush object file: %w", err)
	}
	of.flushed = of.length
	return nil
}

func (of *File) Read(id int64) ([]byte, error) {
	of.mu.Lock()
	defer of.mu.Unlock()

	if id < 0 || id+lengthSize > of.length {
		return nil, errs.Integrity("objectfile", "object id %d past end of file (%d bytes)",
			id, of.length)
	}
	var hdr [lengthSize]byte
	if id+lengthSize > of.flushed {
		if err := of.flushLocked(); err != nil {
			return nil, err
		}
	}
	if _, err := of.file.ReadAt(hdr[:], id); err != nil {
		return nil, fmt.Errorf("failed to read object %d: %w", id, err)
	}
	n := int64(binary.BigEndian.Uint32(hdr[:]))
	end := id + lengthSize + n
	if end > of.length {
		return nil, errs.Integrity("objectfile", "object %d claims %d bytes, file has %d", id, n,
			of.length-id-lengthSize)
	}
	if end > of.flushed {
		if err := of.flushLocked(); err != nil {
			return nil, err
		}
	}

	b := make([]byte, n)
	if _, err := of.file.ReadAt(b, id+lengthSize); err != nil {
		return nil, fmt.Errorf("failed to read object %d: %w", id, err)
	}
	atomic.AddInt64(&of.readCount, 1)
	return b, nil
}

func (of *File) Length() int64 {
	of.mu.Lock()
	defer of.mu.Unlock()
	return of.length
}

// All visits every entry in file order.
func (of *File) All(fn func(id int64, b []byte) error) error {
	of.mu.Lock()
	end := of.length
	err := of.flushLocked()
	of.mu.Unlock()
	if err != nil {
		return err
	}

	r := bufio.NewReaderSize(io.NewSectionReader(of.file, 0, end), 64*1024)
	var pos int64
	var hdr [lengthSize]byte
	for pos < end {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return fmt.Errorf("failed to scan object file at %d: %w", pos, err)
		}
		b := make([]byte, binary.BigEndian.Uint32(hdr[:]))
		if _, err := io.ReadFull(r, b); err != nil {
			return errs.Integrity("objectfile", "entry at %d truncated: %v", pos, err)
		}
		if err := fn(pos, b); err != nil {
			return err
		}
		pos += lengthSize + int64(len(b))
	}
	return nil
}

func (of *File) Stats() Stats {
	of.mu.Lock()
	defer of.mu.Unlock()
	return Stats{
		Length:  of.length,
		Entries: of.entries,
		Reads:   atomic.LoadInt64(&of.readCount),
		Writes:  of.writes,
	}
}

func (of *File) Sync() error {
	of.mu.Lock()
	defer of.mu.Unlock()
	if err := of.flushLocked(); err != nil {
		return err
	}
	return of.file.Sync()
}

func (of *File) Close() error {
	if err := of.Sync(); err != nil {
		of.file.Close()
		return err
	}
	return of.file.Close()
}

func (of *File) Path() string {
	return of.path
}
