package bplus

import (
	"fmt"

	"DaemonRDF/errs"
	"DaemonRDF/record"
)

// Params is the shape of one tree: branching order, block size and record
// layout. Order and block size are two views of the same choice; NewParams
// derives the missing one and rejects a pair that disagrees.
type Params struct {
	Order     int
	BlockSize int
	Factory   record.Factory
}

// CalcOrder is the largest order such that one block holds that many
// child-pointer + record slots after the node header.
func CalcOrder(blockSize, recordLength int) int {
	return (blockSize - NodeHeaderSize) / (recordLength + PointerSize)
}

// CalcBlockSize is the smallest block size that holds order slots.
func CalcBlockSize(order, recordLength int) int {
	return NodeHeaderSize + order*(recordLength+PointerSize)
}

// NewParams fills in whichever of order and blockSize is zero. When both are
// given, order must be exactly CalcOrder(blockSize).
func NewParams(order, blockSize int, factory record.Factory) (Params, error) {
	recLen := factory.RecordLength()

	switch {
	case order <= 0 && blockSize <= 0:
		return Params{}, errs.Config("bplustree", "neither block size nor order specified")
	case order <= 0:
		order = CalcOrder(blockSize, recLen)
	case blockSize <= 0:
		blockSize = CalcBlockSize(order, recLen)
		if blockSize < MinBlockSize {
			blockSize = MinBlockSize
			if calc := CalcOrder(blockSize, recLen); calc != order {
				return Params{}, errs.Config("bplustree",
					"order %d too small for record length %d (minimum block holds %d)", order,
					recLen, calc)
			}
		}
	default:
		if calc := CalcOrder(blockSize, recLen); calc != order {
			return Params{}, errs.Config("bplustree",
				"order %d inconsistent with block size %d (calculated order %d)", order,
				blockSize, calc)
		}
	}

	if blockSize < MinBlockSize {
		return Params{}, errs.Config("bplustree", "block size %d below minimum %d", blockSize,
			MinBlockSize)
	}
	if order < MinOrder {
		return Params{}, errs.Config("bplustree",
			"block size %d too small for record length %d: order %d", blockSize, recLen, order)
	}

	return Params{Order: order, BlockSize: blockSize, Factory: factory}, nil
}

// LeafCapacity is the number of records a leaf block holds.
func (p Params) LeafCapacity() int {
	return (p.BlockSize - NodeHeaderSize) / p.Factory.RecordLength()
}

func (p Params) MaxKeys() int {
	return p.Order - 1
}

// MinLeafRecords is the occupancy below which a non-root leaf is rebalanced.
func (p Params) MinLeafRecords() int {
	return p.LeafCapacity() / 2
}

// MinChildren is the occupancy below which a non-root internal node is rebalanced.
func (p Params) MinChildren() int {
	return (p.Order + 1) / 2
}

func (p Params) String() string {
	return fmt.Sprintf("order=%d blksize=%d record=%s leafcap=%d", p.Order, p.BlockSize,
		p.Factory, p.LeafCapacity())
}
