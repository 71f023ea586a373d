package page

import "fmt"

// BTPageOpaqueSize is sizeof(BTPageOpaqueData)
const BTPageOpaqueSize = 16

// btpo_flags
const (
	BTPLeaf     = 1 << 0
	BTPRoot     = 1 << 1
	BTPDeleted  = 1 << 2
	BTPMeta     = 1 << 3
	BTPHalfDead = 1 << 4
)

// PNone is the btree "no sibling" block number
const PNone = BlockNumber(0)

// BTreeMagic identifies a btree meta page
const BTreeMagic = 0x053162

const BTreeMetaBlock = BlockNumber(0)

// BTPageOpaque is the special space of every btree page
type BTPageOpaque struct {
	Prev    BlockNumber
	Next    BlockNumber
	Level   uint32
	Flags   uint16
	CycleID uint16
}

func (o BTPageOpaque) IsLeaf() bool      { return o.Flags&BTPLeaf != 0 }
func (o BTPageOpaque) IsMeta() bool      { return o.Flags&BTPMeta != 0 }
func (o BTPageOpaque) IsRightmost() bool { return o.Next == PNone }

// IsIgnorable matches P_IGNORE: deleted or half-dead pages hold no live
// entries
func (o BTPageOpaque) IsIgnorable() bool {
	return o.Flags&(BTPDeleted|BTPHalfDead) != 0
}

// FirstDataKey is P_FIRSTDATAKEY: every page but the rightmost on its level
// starts with a high key
func (o BTPageOpaque) FirstDataKey() OffsetNumber {
	if o.IsRightmost() {
		return FirstOffsetNumber
	}
	return FirstOffsetNumber + 1
}

// BTOpaque decodes the btree special space of p
func (p *Page) BTOpaque() (BTPageOpaque, error) {
	special, err := p.Special()
	if err != nil {
		return BTPageOpaque{}, err
	}
	if len(special) != BTPageOpaqueSize {
		return BTPageOpaque{}, fmt.Errorf("unexpected btree special space size: %d", len(special))
	}
	return BTPageOpaque{
		Prev:    BlockNumber(byteOrder.Uint32(special[0:])),
		Next:    BlockNumber(byteOrder.Uint32(special[4:])),
		Level:   byteOrder.Uint32(special[8:]),
		Flags:   byteOrder.Uint16(special[12:]),
		CycleID: byteOrder.Uint16(special[14:]),
	}, nil
}

func putBTOpaque(b []byte, o BTPageOpaque) {
	byteOrder.PutUint32(b[0:], uint32(o.Prev))
	byteOrder.PutUint32(b[4:], uint32(o.Next))
	byteOrder.PutUint32(b[8:], o.Level)
	byteOrder.PutUint16(b[12:], o.Flags)
	byteOrder.PutUint16(b[14:], o.CycleID)
}

// BTMeta is the leading part of BTMetaPageData
type BTMeta struct {
	Magic     uint32
	Version   uint32
	Root      BlockNumber
	Level     uint32
	FastRoot  BlockNumber
	FastLevel uint32
}

const btMetaSize = 24

// BTMeta decodes the meta page contents, which start right after the page
// header
func (p *Page) BTMeta() (BTMeta, error) {
	o, err := p.BTOpaque()
	if err != nil {
		return BTMeta{}, err
	}
	if !o.IsMeta() {
		return BTMeta{}, fmt.Errorf("not a btree meta page")
	}
	b := p.data[PageHeaderSize : PageHeaderSize+btMetaSize]
	meta := BTMeta{
		Magic:     byteOrder.Uint32(b[0:]),
		Version:   byteOrder.Uint32(b[4:]),
		Root:      BlockNumber(byteOrder.Uint32(b[8:])),
		Level:     byteOrder.Uint32(b[12:]),
		FastRoot:  BlockNumber(byteOrder.Uint32(b[16:])),
		FastLevel: byteOrder.Uint32(b[20:]),
	}
	if meta.Magic != BTreeMagic {
		return BTMeta{}, fmt.Errorf("bad btree meta page magic: %#x", meta.Magic)
	}
	return meta, nil
}

func putBTMeta(b []byte, m BTMeta) {
	byteOrder.PutUint32(b[0:], m.Magic)
	byteOrder.PutUint32(b[4:], m.Version)
	byteOrder.PutUint32(b[8:], uint32(m.Root))
	byteOrder.PutUint32(b[12:], m.Level)
	byteOrder.PutUint32(b[16:], uint32(m.FastRoot))
	byteOrder.PutUint32(b[20:], m.FastLevel)
}

// IndexTupleData layout
const (
	IndexTupleHeaderSize = 8

	indexSizeMask   = 0x1FFF
	indexAltTidMask = 0x2000

	btIsPosting  = 0x2000
	btOffsetMask = 0x0FFF
)

// IndexTuple is a decoded btree index tuple header
type IndexTuple struct {
	TID  TID
	Info uint16
	data []byte
}

func DecodeIndexTuple(item []byte) (IndexTuple, error) {
	if len(item) < IndexTupleHeaderSize {
		return IndexTuple{}, fmt.Errorf("index tuple too short: %d bytes", len(item))
	}
	itup := IndexTuple{
		TID:  decodeTID(item[0:]),
		Info: byteOrder.Uint16(item[6:]),
		data: item,
	}
	if int(itup.Info&indexSizeMask) > len(item) {
		return IndexTuple{}, fmt.Errorf("index tuple size %d beyond item length %d", itup.Info&indexSizeMask, len(item))
	}
	return itup, nil
}

// IsPosting reports a deduplicated tuple carrying a posting list of heap TIDs
func (t IndexTuple) IsPosting() bool {
	return t.Info&indexAltTidMask != 0 && uint16(t.TID.Offset)&btIsPosting != 0
}

// IsPivot reports a pivot tuple (high key or internal downlink)
func (t IndexTuple) IsPivot() bool {
	return t.Info&indexAltTidMask != 0 && uint16(t.TID.Offset)&btIsPosting == 0
}

// Downlink is the child block a pivot tuple points to
func (t IndexTuple) Downlink() BlockNumber {
	return t.TID.Block
}

// HeapTIDs returns every heap TID the tuple references: the posting list for
// deduplicated tuples, t_tid otherwise
func (t IndexTuple) HeapTIDs() ([]TID, error) {
	if !t.IsPosting() {
		return []TID{t.TID}, nil
	}
	n := int(uint16(t.TID.Offset) & btOffsetMask)
	start := int(t.TID.Block)
	end := start + n*tidSize
	if start < IndexTupleHeaderSize || end > len(t.data) {
		return nil, fmt.Errorf("posting list out of bounds: offset=%d count=%d tuple length=%d", start, n, len(t.data))
	}
	tids := make([]TID, n)
	for i := range tids {
		tids[i] = decodeTID(t.data[start+i*tidSize:])
	}
	return tids, nil
}
