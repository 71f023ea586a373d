package page

import "fmt"

type TransactionID uint32

const InvalidTransactionID = TransactionID(0)

func (x TransactionID) IsValid() bool {
	return x != InvalidTransactionID
}

// HeapTupleHeaderSize is the fixed part of HeapTupleHeaderData (offsetof t_bits)
const HeapTupleHeaderSize = 23

const (
	offXmin      = 0
	offXmax      = 4
	offField3    = 8
	offCtid      = 12
	offInfomask2 = 18
	offInfomask  = 20
	offHoff      = 22
)

// t_infomask bits used for classifying xmax
const (
	HeapXmaxKeyshrLock = 0x0010
	HeapXmaxExclLock   = 0x0040
	HeapXmaxLockOnly   = 0x0080
	HeapXminCommitted  = 0x0100
	HeapXminInvalid    = 0x0200
	HeapXmaxCommitted  = 0x0400
	HeapXmaxInvalid    = 0x0800
	HeapXmaxIsMulti    = 0x1000
	HeapUpdated        = 0x2000

	heapLockMask = HeapXmaxExclLock | HeapXmaxKeyshrLock
)

// HeapTupleHeader holds the decoded fixed-layout tuple header
type HeapTupleHeader struct {
	Xmin      TransactionID
	Xmax      TransactionID
	Field3    uint32 // t_cid or t_xvac
	Ctid      TID
	Infomask2 uint16
	Infomask  uint16
	Hoff      uint8
}

// DecodeHeapTupleHeader parses the header at the start of a heap item
func DecodeHeapTupleHeader(item []byte) (HeapTupleHeader, error) {
	if len(item) < HeapTupleHeaderSize {
		return HeapTupleHeader{}, fmt.Errorf("heap tuple too short: %d bytes", len(item))
	}

	hdr := HeapTupleHeader{
		Xmin:      TransactionID(byteOrder.Uint32(item[offXmin:])),
		Xmax:      TransactionID(byteOrder.Uint32(item[offXmax:])),
		Field3:    byteOrder.Uint32(item[offField3:]),
		Ctid:      decodeTID(item[offCtid:]),
		Infomask2: byteOrder.Uint16(item[offInfomask2:]),
		Infomask:  byteOrder.Uint16(item[offInfomask:]),
		Hoff:      item[offHoff],
	}
	if int(hdr.Hoff) > len(item) {
		return HeapTupleHeader{}, fmt.Errorf("heap tuple t_hoff %d beyond tuple length %d", hdr.Hoff, len(item))
	}

	return hdr, nil
}

// XmaxIsLockedOnly mirrors HEAP_XMAX_IS_LOCKED_ONLY: xmax only records a
// row lock, the tuple was not updated or deleted
func (h HeapTupleHeader) XmaxIsLockedOnly() bool {
	return h.Infomask&HeapXmaxLockOnly != 0 ||
		h.Infomask&(HeapXmaxIsMulti|heapLockMask) == HeapXmaxExclLock
}

// HasUpdatingXid reports whether xmax names a transaction that deleted or
// superseded this version
func (h HeapTupleHeader) HasUpdatingXid() bool {
	if !h.Xmax.IsValid() {
		return false
	}
	if h.Infomask&HeapXmaxInvalid != 0 {
		return false
	}
	return !h.XmaxIsLockedOnly()
}

// PutHeapTupleHeader encodes h into the first HeapTupleHeaderSize bytes of b
func PutHeapTupleHeader(b []byte, h HeapTupleHeader) {
	byteOrder.PutUint32(b[offXmin:], uint32(h.Xmin))
	byteOrder.PutUint32(b[offXmax:], uint32(h.Xmax))
	byteOrder.PutUint32(b[offField3:], h.Field3)
	PutTID(b[offCtid:], h.Ctid)
	byteOrder.PutUint16(b[offInfomask2:], h.Infomask2)
	byteOrder.PutUint16(b[offInfomask:], h.Infomask)
	b[offHoff] = h.Hoff
}
