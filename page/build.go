package page

import "fmt"

const maxAlign = 8

func alignUp(n int) int {
	return (n + maxAlign - 1) &^ (maxAlign - 1)
}

// Builder assembles a page image in the PostgreSQL layout: line pointers grow
// up from the header, items grow down from the special space. It exists to
// produce fixtures and panics when the page overflows.
type Builder struct {
	data  []byte
	lower int
	upper int
}

// NewHeapPageBuilder starts an empty heap page (no special space)
func NewHeapPageBuilder() *Builder {
	return newBuilder(0)
}

// NewBTreePageBuilder starts an empty btree page with the given opaque data
func NewBTreePageBuilder(o BTPageOpaque) *Builder {
	b := newBuilder(BTPageOpaqueSize)
	putBTOpaque(b.data[BlockSize-BTPageOpaqueSize:], o)
	return b
}

func newBuilder(specialSize int) *Builder {
	b := &Builder{
		data:  make([]byte, BlockSize),
		lower: PageHeaderSize,
		upper: BlockSize - specialSize,
	}
	byteOrder.PutUint16(b.data[offSpecial:], uint16(b.upper))
	byteOrder.PutUint16(b.data[offPageSizeVersion:], uint16(BlockSize|4))
	b.sync()
	return b
}

func (b *Builder) sync() {
	byteOrder.PutUint16(b.data[offLower:], uint16(b.lower))
	byteOrder.PutUint16(b.data[offUpper:], uint16(b.upper))
}

// AddItem stores item with a normal line pointer and returns its offset
func (b *Builder) AddItem(item []byte) OffsetNumber {
	return b.addStored(item, LPNormal)
}

// AddDeadItem stores a tombstoned item that still has storage
func (b *Builder) AddDeadItem(item []byte) OffsetNumber {
	return b.addStored(item, LPDead)
}

func (b *Builder) addStored(item []byte, flags ItemFlags) OffsetNumber {
	start := (b.upper - len(item)) &^ (maxAlign - 1)
	if start < b.lower+ItemIDSize {
		panic(fmt.Sprintf("page full: cannot add %d byte item", len(item)))
	}
	copy(b.data[start:], item)
	b.upper = start
	return b.AddLinePointer(MakeItemID(uint16(start), flags, uint16(len(item))))
}

// AddLinePointer appends a raw line pointer, e.g. an unused slot, a redirect
// or a dead pointer without storage
func (b *Builder) AddLinePointer(id ItemID) OffsetNumber {
	if b.lower+ItemIDSize > b.upper {
		panic("page full: no room for line pointer")
	}
	byteOrder.PutUint32(b.data[b.lower:], uint32(id))
	b.lower += ItemIDSize
	b.sync()
	return OffsetNumber((b.lower - PageHeaderSize) / ItemIDSize)
}

// SetItemID overwrites an existing line pointer
func (b *Builder) SetItemID(off OffsetNumber, id ItemID) {
	pos := PageHeaderSize + int(off-1)*ItemIDSize
	if off < FirstOffsetNumber || pos >= b.lower {
		panic(fmt.Sprintf("no line pointer at offset %d", off))
	}
	byteOrder.PutUint32(b.data[pos:], uint32(id))
}

func (b *Builder) Bytes() []byte {
	return b.data
}

// NewBTreeMetaPage builds a btree meta page pointing at root
func NewBTreeMetaPage(root BlockNumber, level uint32) []byte {
	b := newBuilder(BTPageOpaqueSize)
	putBTOpaque(b.data[BlockSize-BTPageOpaqueSize:], BTPageOpaque{Flags: BTPMeta})
	putBTMeta(b.data[PageHeaderSize:], BTMeta{
		Magic:     BTreeMagic,
		Version:   4,
		Root:      root,
		Level:     level,
		FastRoot:  root,
		FastLevel: level,
	})
	// pd_lower covers the meta data like _bt_initmetapage does
	b.lower = PageHeaderSize + alignUp(btMetaSize)
	b.sync()
	return b.data
}

// HeapTupleBytes encodes a heap tuple with the given header and user data
func HeapTupleBytes(h HeapTupleHeader, payload []byte) []byte {
	hoff := alignUp(HeapTupleHeaderSize)
	h.Hoff = uint8(hoff)
	item := make([]byte, hoff+len(payload))
	PutHeapTupleHeader(item, h)
	copy(item[hoff:], payload)
	return item
}

// IndexTupleBytes encodes a plain leaf tuple pointing at tid
func IndexTupleBytes(tid TID, key []byte) []byte {
	size := alignUp(IndexTupleHeaderSize + len(key))
	item := make([]byte, size)
	PutTID(item, tid)
	byteOrder.PutUint16(item[6:], uint16(size))
	copy(item[IndexTupleHeaderSize:], key)
	return item
}

// PostingTupleBytes encodes a deduplicated leaf tuple whose posting list
// holds tids
func PostingTupleBytes(key []byte, tids []TID) []byte {
	postingOff := alignUp(IndexTupleHeaderSize + len(key))
	size := alignUp(postingOff + len(tids)*tidSize)
	item := make([]byte, size)
	PutTID(item, TID{Block: BlockNumber(postingOff), Offset: OffsetNumber(btIsPosting | len(tids))})
	byteOrder.PutUint16(item[6:], uint16(size)|indexAltTidMask)
	copy(item[IndexTupleHeaderSize:], key)
	for i, tid := range tids {
		PutTID(item[postingOff+i*tidSize:], tid)
	}
	return item
}

// PivotTupleBytes encodes a pivot tuple (high key or downlink to child)
func PivotTupleBytes(child BlockNumber, key []byte) []byte {
	size := alignUp(IndexTupleHeaderSize + len(key))
	item := make([]byte, size)
	PutTID(item, TID{Block: child, Offset: OffsetNumber(1)})
	byteOrder.PutUint16(item[6:], uint16(size)|indexAltTidMask)
	copy(item[IndexTupleHeaderSize:], key)
	return item
}
