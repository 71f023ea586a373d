package page

import "fmt"

type BlockNumber uint32

type OffsetNumber uint16

const InvalidBlockNumber = BlockNumber(0xFFFFFFFF)

// TID identifies a tuple by block and line pointer offset (ItemPointerData)
type TID struct {
	Block  BlockNumber
	Offset OffsetNumber
}

// Encode maps a TID onto an int64 that preserves TID ordering, so range
// checks can be done with plain integer comparisons
func (t TID) Encode() int64 {
	return int64(t.Block)<<16 | int64(t.Offset)
}

// Compare returns -1, 0 or +1 ordering by block, then offset
func (t TID) Compare(other TID) int {
	switch {
	case t.Block < other.Block:
		return -1
	case t.Block > other.Block:
		return 1
	case t.Offset < other.Offset:
		return -1
	case t.Offset > other.Offset:
		return 1
	}
	return 0
}

func (t TID) Less(other TID) bool {
	return t.Compare(other) < 0
}

func (t TID) String() string {
	return fmt.Sprintf("(%d,%d)", t.Block, t.Offset)
}

// decodeTID reads a 6 byte ItemPointerData (bi_hi, bi_lo, ip_posid)
func decodeTID(b []byte) TID {
	hi := uint32(byteOrder.Uint16(b[0:]))
	lo := uint32(byteOrder.Uint16(b[2:]))
	return TID{
		Block:  BlockNumber(hi<<16 | lo),
		Offset: OffsetNumber(byteOrder.Uint16(b[4:])),
	}
}

// PutTID writes t as a 6 byte ItemPointerData
func PutTID(b []byte, t TID) {
	byteOrder.PutUint16(b[0:], uint16(uint32(t.Block)>>16))
	byteOrder.PutUint16(b[2:], uint16(uint32(t.Block)&0xFFFF))
	byteOrder.PutUint16(b[4:], uint16(t.Offset))
}

const tidSize = 6
