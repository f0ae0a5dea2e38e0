package nodeid

import (
	"encoding/binary"
	"fmt"

	"DaemonRDF/errs"
)

/*
A NodeId is 64 bits. The top byte says what the other 56 mean:

	0x00        offset of the term in the object file
	0x01..0x05  a value packed into the id itself (see Type)
	0xFF        special markers

Ids are stored big endian inside index records, so all pointers sort before all
inline values and, within one type, ids sort by their payload bits.
*/
type NodeId uint64

type Type uint8

const (
	TypePtr      Type = 0x00
	TypeInteger  Type = 0x01
	TypeDecimal  Type = 0x02
	TypeDate     Type = 0x03
	TypeDateTime Type = 0x04
	TypeBoolean  Type = 0x05
	TypeSpecial  Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case TypePtr:
		return "ptr"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeBoolean:
		return "boolean"
	case TypeSpecial:
		return "special"
	}
	return fmt.Sprintf("type(%#x)", uint8(t))
}

const (
	Size        = 8
	payloadBits = 56
	payloadMask = 1<<payloadBits - 1
	MaxPtr      = 1<<payloadBits - 1
)

const (
	// NotFound answers a lookup of a term that was never stored.
	NotFound = NodeId(uint64(TypeSpecial)<<payloadBits | 1)
	// Any is the wildcard in a pattern.
	Any = NodeId(uint64(TypeSpecial)<<payloadBits | 2)
)

func newID(t Type, payload uint64) NodeId {
	return NodeId(uint64(t)<<payloadBits | payload&payloadMask)
}

// NewPtr makes the id of the term stored at offset in the object file.
func NewPtr(offset int64) (NodeId, error) {
	if offset < 0 || offset > MaxPtr {
		return 0, errs.Range("nodeid", "object file offset %d does not fit in a node id", offset)
	}
	return NodeId(offset), nil
}

func (id NodeId) Type() Type {
	return Type(id >> payloadBits)
}

func (id NodeId) payload() uint64 {
	return uint64(id) & payloadMask
}

func (id NodeId) IsPtr() bool {
	return id.Type() == TypePtr
}

// IsInline reports whether the value lives in the id rather than the dictionary.
func (id NodeId) IsInline() bool {
	switch id.Type() {
	case TypeInteger, TypeDecimal, TypeDate, TypeDateTime, TypeBoolean:
		return true
	}
	return false
}

func (id NodeId) IsSpecial() bool {
	return id.Type() == TypeSpecial
}

// Ptr is the object file offset of a pointer id.
func (id NodeId) Ptr() int64 {
	return int64(id.payload())
}

func (id NodeId) Put(b []byte) {
	binary.BigEndian.PutUint64(b, uint64(id))
}

func (id NodeId) Bytes() []byte {
	b := make([]byte, Size)
	id.Put(b)
	return b
}

func FromBytes(b []byte) NodeId {
	return NodeId(binary.BigEndian.Uint64(b))
}

func (id NodeId) String() string {
	switch {
	case id == NotFound:
		return "NodeId[NotFound]"
	case id == Any:
		return "NodeId[Any]"
	case id.IsPtr():
		return fmt.Sprintf("NodeId[@%d]", id.Ptr())
	}
	if t, ok := Extract(id); ok {
		return fmt.Sprintf("NodeId[%s %s]", id.Type(), t.Value)
	}
	return fmt.Sprintf("NodeId[%#016x]", uint64(id))
}
