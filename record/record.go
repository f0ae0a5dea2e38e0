package record

import (
	"bytes"
	"fmt"

	"DaemonRDF/errs"
)

/*
A Record is a fixed-length byte tuple: a key region compared as unsigned bytes
and an optional value region. Two records with equal keys are the same entry,
whatever their values. A Factory describes the shape shared by every record of
one index.
*/

type Record []byte

type Factory struct {
	keyLength   int
	valueLength int
}

// NewFactory returns a factory for records of keyLen key bytes and valLen value bytes.
func NewFactory(keyLen, valLen int) (Factory, error) {
	if keyLen <= 0 {
		return Factory{}, errs.Config("record", "key length must be positive: %d", keyLen)
	}
	if valLen < 0 {
		return Factory{}, errs.Config("record", "value length must not be negative: %d", valLen)
	}
	return Factory{keyLength: keyLen, valueLength: valLen}, nil
}

// MustFactory is NewFactory for lengths known to be valid at compile time.
func MustFactory(keyLen, valLen int) Factory {
	f, err := NewFactory(keyLen, valLen)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Factory) KeyLength() int    { return f.keyLength }
func (f Factory) ValueLength() int  { return f.valueLength }
func (f Factory) RecordLength() int { return f.keyLength + f.valueLength }
func (f Factory) HasValue() bool    { return f.valueLength > 0 }

func (f Factory) String() string {
	return fmt.Sprintf("%d,%d", f.keyLength, f.valueLength)
}

// Create copies key and val into a new record. Wrong lengths are a programming
// error and panic.
func (f Factory) Create(key, val []byte) Record {
	if len(key) != f.keyLength {
		panic(errs.Config("record", "key length %d, factory wants %d", len(key), f.keyLength))
	}
	if len(val) != f.valueLength {
		panic(errs.Config("record", "value length %d, factory wants %d", len(val), f.valueLength))
	}
	r := make(Record, f.RecordLength())
	copy(r, key)
	copy(r[f.keyLength:], val)
	return r
}

// CreateKey builds a record with the given key and a zero value region.
func (f Factory) CreateKey(key []byte) Record {
	return f.Create(key, make([]byte, f.valueLength))
}

// FromBytes copies b into a record, checking its length.
func (f Factory) FromBytes(b []byte) (Record, error) {
	if len(b) != f.RecordLength() {
		return nil, errs.Config("record", "record length %d, factory wants %d", len(b),
			f.RecordLength())
	}
	r := make(Record, len(b))
	copy(r, b)
	return r, nil
}

func (f Factory) Key(r Record) []byte {
	return r[:f.keyLength]
}

func (f Factory) Value(r Record) []byte {
	return r[f.keyLength:]
}

// KeyOf returns a key-only copy of r, used for internal-node separators.
func (f Factory) KeyOf(r Record) []byte {
	k := make([]byte, f.keyLength)
	copy(k, r[:f.keyLength])
	return k
}

func (f Factory) CompareKeys(a, b Record) int {
	return Compare(a[:f.keyLength], b[:f.keyLength])
}

func (f Factory) Equal(other Factory) bool {
	return f.keyLength == other.keyLength && f.valueLength == other.valueLength
}

// Compare is the total order of the storage core: unsigned, byte by byte.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// HasPrefix reports whether the key of r starts with prefix.
func (f Factory) HasPrefix(r Record, prefix []byte) bool {
	return bytes.HasPrefix(r[:f.keyLength], prefix)
}

// ParseFactory reads the "key,value" form written by Factory.String.
func ParseFactory(s string) (Factory, error) {
	var k, v int
	if _, err := fmt.Sscanf(s, "%d,%d", &k, &v); err != nil {
		return Factory{}, errs.Config("record", "bad record length %q: %v", s, err)
	}
	return NewFactory(k, v)
}
