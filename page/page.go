// Package page decodes the PostgreSQL on-disk page format: the page header,
// the line pointer array, heap tuple headers and btree pages. All accessors
// are bounds-checked against the page buffer; nothing is aliased as a typed
// structure.
package page

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the only block size supported (the PostgreSQL default BLCKSZ)
const BlockSize = 8192

const (
	PageHeaderSize = 24
	ItemIDSize     = 4

	FirstOffsetNumber = OffsetNumber(1)
	MaxOffsetNumber   = OffsetNumber((BlockSize - PageHeaderSize) / ItemIDSize)
)

// Header field offsets within PageHeaderData
const (
	offLSN             = 0
	offChecksum        = 8
	offFlags           = 10
	offLower           = 12
	offUpper           = 14
	offSpecial         = 16
	offPageSizeVersion = 18
	offPruneXid        = 20
)

var byteOrder = binary.LittleEndian

// Header - PageHeaderData as stored at the start of every page
type Header struct {
	LSN             uint64
	Checksum        uint16
	Flags           uint16
	Lower           uint16
	Upper           uint16
	Special         uint16
	PageSizeVersion uint16
	PruneXid        TransactionID
}

// Page is a read-only view over one block. It is only valid while the buffer
// it was obtained from is held.
type Page struct {
	data []byte
}

// New wraps a block image. The slice is not copied.
func New(data []byte) (*Page, error) {
	if len(data) != BlockSize {
		return nil, fmt.Errorf("invalid page size: %d (expected %d)", len(data), BlockSize)
	}
	return &Page{data: data}, nil
}

// Bytes returns the underlying block image
func (p *Page) Bytes() []byte {
	return p.data
}

func (p *Page) Header() Header {
	return Header{
		LSN:             byteOrder.Uint64(p.data[offLSN:]),
		Checksum:        byteOrder.Uint16(p.data[offChecksum:]),
		Flags:           byteOrder.Uint16(p.data[offFlags:]),
		Lower:           byteOrder.Uint16(p.data[offLower:]),
		Upper:           byteOrder.Uint16(p.data[offUpper:]),
		Special:         byteOrder.Uint16(p.data[offSpecial:]),
		PageSizeVersion: byteOrder.Uint16(p.data[offPageSizeVersion:]),
		PruneXid:        TransactionID(byteOrder.Uint32(p.data[offPruneXid:])),
	}
}

// IsNew reports whether the page was never initialized (all-zero header)
func (p *Page) IsNew() bool {
	return byteOrder.Uint16(p.data[offUpper:]) == 0
}

// MaxOffsetNumber returns the number of line pointers on the page, derived
// from pd_lower. Zero means the page has no items.
func (p *Page) MaxOffsetNumber() OffsetNumber {
	lower := int(byteOrder.Uint16(p.data[offLower:]))
	if lower <= PageHeaderSize || lower > BlockSize {
		return 0
	}
	return OffsetNumber((lower - PageHeaderSize) / ItemIDSize)
}

// ItemID returns the line pointer for the given offset, or false when the
// offset lies outside the line pointer array.
func (p *Page) ItemID(off OffsetNumber) (ItemID, bool) {
	if off < FirstOffsetNumber || off > p.MaxOffsetNumber() {
		return 0, false
	}
	pos := PageHeaderSize + int(off-1)*ItemIDSize
	return ItemID(byteOrder.Uint32(p.data[pos:])), true
}

// Item returns the bytes a line pointer refers to
func (p *Page) Item(id ItemID) ([]byte, error) {
	start := int(id.Offset())
	end := start + int(id.Length())
	if !id.HasStorage() {
		return nil, fmt.Errorf("line pointer has no storage")
	}
	if start < PageHeaderSize || end > BlockSize {
		return nil, fmt.Errorf("line pointer out of bounds: offset=%d length=%d", id.Offset(), id.Length())
	}
	return p.data[start:end], nil
}

// Special returns the special space at the end of the page (empty for heap
// pages)
func (p *Page) Special() ([]byte, error) {
	special := int(byteOrder.Uint16(p.data[offSpecial:]))
	if special < PageHeaderSize || special > BlockSize {
		return nil, fmt.Errorf("invalid special space offset: %d", special)
	}
	return p.data[special:], nil
}
