package page

import "fmt"

// ItemID is a raw line pointer: lp_off:15, lp_flags:2, lp_len:15
type ItemID uint32

type ItemFlags uint8

const (
	LPUnused   ItemFlags = 0
	LPNormal   ItemFlags = 1
	LPRedirect ItemFlags = 2
	LPDead     ItemFlags = 3
)

func (f ItemFlags) String() string {
	switch f {
	case LPUnused:
		return "unused"
	case LPNormal:
		return "normal"
	case LPRedirect:
		return "redirect"
	case LPDead:
		return "dead"
	}
	return fmt.Sprintf("flags(%d)", uint8(f))
}

// MakeItemID packs a line pointer
func MakeItemID(off uint16, flags ItemFlags, length uint16) ItemID {
	return ItemID(uint32(off)&0x7FFF | (uint32(flags)&0x3)<<15 | (uint32(length)&0x7FFF)<<17)
}

func (id ItemID) Offset() uint16 {
	return uint16(id & 0x7FFF)
}

func (id ItemID) Flags() ItemFlags {
	return ItemFlags((id >> 15) & 0x3)
}

func (id ItemID) Length() uint16 {
	return uint16((id >> 17) & 0x7FFF)
}

func (id ItemID) HasStorage() bool {
	return id.Length() != 0
}

// IsDead reports a line pointer already marked dead by pruning or index
// scans (a tombstone)
func (id ItemID) IsDead() bool {
	return id.Flags() == LPDead
}

// IsNormal reports a used line pointer with storage that can be read as a
// tuple
func (id ItemID) IsNormal() bool {
	return id.Flags() == LPNormal && id.HasStorage()
}
