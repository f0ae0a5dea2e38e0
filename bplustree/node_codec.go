package bplus

import (
	"encoding/binary"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// encodeNode serializes a Node into a block of the tree's block size
// Format:
//   - Header (12 bytes): kind(1), reserved(1), count(2), link(8)
//   - Leaf: count records of RecordLength bytes
//   - Internal: Order-1 key slots of KeyLength bytes, then Order child ids (8 bytes each);
//     count is the number of keys
func (t *BPlusTree) encodeNode(node *Node) (*blockmgr.Block, error) {
	p := t.params
	data := make([]byte, p.BlockSize)

	data[0] = byte(node.nodeType)
	if node.nodeType == NodeLeaf {
		if len(node.records) > p.LeafCapacity() {
			return nil, errs.Integrity("encode", "leaf %d holds %d records (capacity %d)",
				node.id, len(node.records), p.LeafCapacity())
		}
		binary.LittleEndian.PutUint16(data[2:], uint16(len(node.records)))
		binary.LittleEndian.PutUint64(data[4:], uint64(node.next))

		recLen := p.Factory.RecordLength()
		offset := NodeHeaderSize
		for _, r := range node.records {
			copy(data[offset:offset+recLen], r)
			offset += recLen
		}
		return &blockmgr.Block{ID: node.id, Data: data}, nil
	}

	if len(node.children) > p.Order || len(node.children) != len(node.keys)+1 {
		return nil, errs.Integrity("encode", "internal node %d has %d keys and %d children",
			node.id, len(node.keys), len(node.children))
	}
	binary.LittleEndian.PutUint16(data[2:], uint16(len(node.keys)))

	keyLen := p.Factory.KeyLength()
	offset := NodeHeaderSize
	for _, k := range node.keys {
		copy(data[offset:offset+keyLen], k)
		offset += keyLen
	}
	offset = NodeHeaderSize + p.MaxKeys()*keyLen
	for _, c := range node.children {
		binary.LittleEndian.PutUint64(data[offset:], uint64(c))
		offset += PointerSize
	}
	return &blockmgr.Block{ID: node.id, Data: data}, nil
}

// decodeNode deserializes a Node from a block
func (t *BPlusTree) decodeNode(b *blockmgr.Block) (*Node, error) {
	p := t.params
	if len(b.Data) != p.BlockSize {
		return nil, errs.Integrity("decode", "block %d size mismatch: expected %d, got %d", b.ID,
			p.BlockSize, len(b.Data))
	}

	node := &Node{
		id:       b.ID,
		nodeType: NodeType(b.Data[0]),
	}
	count := int(binary.LittleEndian.Uint16(b.Data[2:]))

	switch node.nodeType {
	case NodeLeaf:
		if count > p.LeafCapacity() {
			return nil, errs.Integrity("decode", "leaf %d claims %d records (capacity %d)", b.ID,
				count, p.LeafCapacity())
		}
		node.next = int64(binary.LittleEndian.Uint64(b.Data[4:]))

		recLen := p.Factory.RecordLength()
		node.records = make([]record.Record, 0, count+1)
		offset := NodeHeaderSize
		for i := 0; i < count; i++ {
			r := make(record.Record, recLen)
			copy(r, b.Data[offset:offset+recLen])
			node.records = append(node.records, r)
			offset += recLen
		}

	case NodeInternal:
		if count > p.MaxKeys() {
			return nil, errs.Integrity("decode", "internal node %d claims %d keys (max %d)", b.ID,
				count, p.MaxKeys())
		}

		keyLen := p.Factory.KeyLength()
		node.keys = make([][]byte, 0, count+1)
		offset := NodeHeaderSize
		for i := 0; i < count; i++ {
			k := make([]byte, keyLen)
			copy(k, b.Data[offset:offset+keyLen])
			node.keys = append(node.keys, k)
			offset += keyLen
		}

		node.children = make([]int64, 0, count+2)
		offset = NodeHeaderSize + p.MaxKeys()*keyLen
		for i := 0; i <= count; i++ {
			node.children = append(node.children,
				int64(binary.LittleEndian.Uint64(b.Data[offset:])))
			offset += PointerSize
		}

	default:
		return nil, errs.Integrity("decode", "block %d is not a tree node (kind %d)", b.ID,
			b.Data[0])
	}

	return node, nil
}

// encodeHeader writes block 0
// Format: magic(4) version(2) keyLen(2) valLen(2) blockSize(4) order(4)
//
//	root(8) height(4) count(8) firstLeaf(8)
func (t *BPlusTree) encodeHeader() *blockmgr.Block {
	h := t.hdr
	data := make([]byte, t.params.BlockSize)

	copy(data[0:4], headerMagic)
	binary.LittleEndian.PutUint16(data[4:], formatVersion)
	binary.LittleEndian.PutUint16(data[6:], uint16(h.keyLength))
	binary.LittleEndian.PutUint16(data[8:], uint16(h.valueLength))
	binary.LittleEndian.PutUint32(data[10:], uint32(h.blockSize))
	binary.LittleEndian.PutUint32(data[14:], uint32(h.order))
	binary.LittleEndian.PutUint64(data[18:], uint64(h.root))
	binary.LittleEndian.PutUint32(data[26:], uint32(h.height))
	binary.LittleEndian.PutUint64(data[30:], uint64(h.count))
	binary.LittleEndian.PutUint64(data[38:], uint64(h.firstLeaf))

	return &blockmgr.Block{ID: 0, Data: data}
}

func decodeHeader(b *blockmgr.Block) (header, error) {
	data := b.Data
	if len(data) < 46 {
		return header{}, errs.Integrity("header", "header block too short: %d bytes", len(data))
	}
	if string(data[0:4]) != headerMagic {
		return header{}, errs.Integrity("header", "bad magic %q: not a B+Tree file", data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != formatVersion {
		return header{}, errs.Config("header", "unsupported B+Tree format version %d", v)
	}

	return header{
		keyLength:   int(binary.LittleEndian.Uint16(data[6:])),
		valueLength: int(binary.LittleEndian.Uint16(data[8:])),
		blockSize:   int(binary.LittleEndian.Uint32(data[10:])),
		order:       int(binary.LittleEndian.Uint32(data[14:])),
		root:        int64(binary.LittleEndian.Uint64(data[18:])),
		height:      int(binary.LittleEndian.Uint32(data[26:])),
		count:       int64(binary.LittleEndian.Uint64(data[30:])),
		firstLeaf:   int64(binary.LittleEndian.Uint64(data[38:])),
	}, nil
}
