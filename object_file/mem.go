package objectfile

import (
	"encoding/binary"
	"sync"

	"DaemonRDF/errs"
)

// Mem is an object file held in a byte slice, with the same id scheme as File.
type Mem struct {
	mu      sync.RWMutex
	data    []byte
	entries int64
	reads   int64
	writes  int64
}

func NewMem() *Mem {
	return &Mem{}
}

func (m *Mem) Write(b []byte) (int64, error) {
	if len(b) > MaxObjectSize {
		return 0, errs.Range("objectfile", "object of %d bytes too large", len(b))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := int64(len(m.data))
	m.data = binary.BigEndian.AppendUint32(m.data, uint32(len(b)))
	m.data = append(m.data, b...)
	m.entries++
	m.writes++
	return id, nil
}

func (m *Mem) Read(id int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end, err := m.bounds(id)
	if err != nil {
		return nil, err
	}
	m.reads++
	return append([]byte(nil), m.data[id+lengthSize:end]...), nil
}

func (m *Mem) bounds(id int64) (int64, error) {
	length := int64(len(m.data))
	if id < 0 || id+lengthSize > length {
		return 0, errs.Integrity("objectfile", "object id %d past end of file (%d bytes)", id,
			length)
	}
	end := id + lengthSize + int64(binary.BigEndian.Uint32(m.data[id:]))
	if end > length {
		return 0, errs.Integrity("objectfile", "object %d runs past end of file", id)
	}
	return end, nil
}

func (m *Mem) Length() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

func (m *Mem) All(fn func(id int64, b []byte) error) error {
	m.mu.RLock()
	data := m.data
	m.mu.RUnlock()

	var pos int64
	for pos < int64(len(data)) {
		end := pos + lengthSize + int64(binary.BigEndian.Uint32(data[pos:]))
		if err := fn(pos, append([]byte(nil), data[pos+lengthSize:end]...)); err != nil {
			return err
		}
		pos = end
	}
	return nil
}

func (m *Mem) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Length: int64(len(m.data)), Entries: m.entries, Reads: m.reads, Writes: m.writes}
}

func (m *Mem) Sync() error {
	return nil
}

func (m *Mem) Close() error {
	return nil
}
