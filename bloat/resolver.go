package bloat

import (
	"fmt"

	"github.com/pganalyze/pgbloat/page"
	"github.com/pganalyze/pgbloat/relfile"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

type verdict int

const (
	live verdict = iota
	dead
)

func (v verdict) String() string {
	if v == dead {
		return "dead"
	}
	return "live"
}

// resolver decides whether a tuple version has been superseded, following
// its ctid to the next version when that is needed
type resolver struct {
	heap    relfile.Relation
	nblocks page.BlockNumber
	logger  *util.Logger
	stats   *state.BloatScanStats
}

// resolve classifies the tuple at (blkno, off) with header hdr; p is the
// page currently held for blkno and maxOff its max offset number
func (r *resolver) resolve(p *page.Page, blkno page.BlockNumber, off page.OffsetNumber, maxOff page.OffsetNumber, hdr page.HeapTupleHeader) (verdict, error) {
	self := page.TID{Block: blkno, Offset: off}
	fwd := hdr.Ctid

	if fwd == self {
		// deleted rows keep pointing at themselves
		if hdr.HasUpdatingXid() {
			return dead, nil
		}
		return live, nil
	}

	if fwd.Block == blkno {
		if fwd.Offset > maxOff {
			r.logger.PrintVerbose("Tuple %s points to %s beyond max offset %d", self, fwd, maxOff)
			return live, nil
		}
		next, err := heapTupleAt(p, fwd.Offset)
		if err != nil {
			r.logger.PrintVerbose("Tuple %s: successor %s could not be read: %s", self, fwd, err)
			return live, nil
		}
		return supersededBy(hdr, next), nil
	}

	if fwd.Block >= r.nblocks {
		r.logger.PrintVerbose("Tuple %s points to %s past the end of the table (%d blocks)", self, fwd, r.nblocks)
		return live, nil
	}

	r.stats.ChainsFollowed++
	v := live
	err := relfile.WithPage(r.heap, fwd.Block, func(target *page.Page) error {
		next, err := heapTupleAt(target, fwd.Offset)
		if err != nil {
			r.logger.PrintVerbose("Tuple %s: successor %s could not be read: %s", self, fwd, err)
			return nil
		}
		v = supersededBy(hdr, next)
		return nil
	})
	if err != nil {
		return live, err
	}
	return v, nil
}

// supersededBy reports dead when next was created by the transaction that
// updated hdr
func supersededBy(hdr page.HeapTupleHeader, next page.HeapTupleHeader) verdict {
	if hdr.HasUpdatingXid() && next.Xmin == hdr.Xmax {
		return dead
	}
	return live
}

// heapTupleAt decodes the tuple header stored at off. Unused, redirect and
// dead line pointers, or ones without readable storage, are errors.
func heapTupleAt(p *page.Page, off page.OffsetNumber) (page.HeapTupleHeader, error) {
	id, ok := p.ItemID(off)
	if !ok {
		return page.HeapTupleHeader{}, fmt.Errorf("offset %d beyond max offset %d", off, p.MaxOffsetNumber())
	}
	if id.Flags() != page.LPNormal {
		return page.HeapTupleHeader{}, fmt.Errorf("line pointer is %s", id.Flags())
	}
	item, err := p.Item(id)
	if err != nil {
		return page.HeapTupleHeader{}, err
	}
	return page.DecodeHeapTupleHeader(item)
}
