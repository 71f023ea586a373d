package bloat

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgbloat/page"
	"github.com/pganalyze/pgbloat/relfile"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

// IndexSource - One secondary index of the scanned table. Open is called
// once per flush and the relation is closed when the flush is done with it.
type IndexSource struct {
	Name         string
	AccessMethod string
	IsReady      bool
	Open         func() (relfile.Relation, error)
}

// Reconciler counts the index entries that still reference the TIDs in a
// DeadItems batch
type Reconciler struct {
	indexes []IndexSource
	logger  *util.Logger
	stats   *state.BloatScanStats
}

func NewReconciler(indexes []IndexSource, logger *util.Logger, stats *state.BloatScanStats) *Reconciler {
	if stats == nil {
		stats = &state.BloatScanStats{}
	}
	return &Reconciler{indexes: indexes, logger: logger, stats: stats}
}

// Flush scans every ready btree index for entries pointing at a TID in batch,
// then resets the batch. It returns the number of matching entries.
func (r *Reconciler) Flush(ctx context.Context, batch *DeadItems) (int64, error) {
	var stale int64

	r.stats.BatchFlushes++
	r.logger.PrintVerbose("Scanning %d indexes for %d dead items", len(r.indexes), batch.Len())

	for i, idx := range r.indexes {
		batch.indexCursor = i
		if !idx.IsReady {
			r.logger.PrintVerbose("Skipping index %s: not ready", idx.Name)
			r.stats.IndexesSkipped++
			continue
		}
		if idx.AccessMethod != "btree" {
			r.logger.PrintVerbose("Skipping index %s: unsupported access method %s", idx.Name, idx.AccessMethod)
			r.stats.IndexesSkipped++
			continue
		}

		n, err := r.scanIndex(ctx, idx, batch)
		if err != nil {
			return stale, errors.Wrapf(err, "could not scan index %s", idx.Name)
		}
		stale += n
		r.stats.IndexesScanned++
	}

	batch.indexCursor = len(r.indexes)
	batch.Reset()

	return stale, nil
}

func (r *Reconciler) scanIndex(ctx context.Context, idx IndexSource, batch *DeadItems) (int64, error) {
	rel, err := idx.Open()
	if err != nil {
		return 0, err
	}
	defer rel.Close()

	w := &leafWalker{
		rel:     rel,
		nblocks: rel.NumBlocks(),
		batch:   batch,
		logger:  r.logger.WithPrefix(idx.Name),
		stats:   r.stats,
	}
	if w.nblocks == 0 {
		w.logger.PrintVerbose("Index is empty")
		return 0, nil
	}

	leftmost, err := w.leftmostLeaf()
	if err != nil {
		w.logger.PrintVerbose("Could not descend from the meta page, reading leaf pages in block order: %s", err)
		return w.walkPhysical(ctx)
	}
	if leftmost == page.PNone {
		return 0, nil
	}
	return w.walkSiblings(ctx, leftmost)
}

// leafWalker visits the leaf pages of one btree index, holding one page at
// a time
type leafWalker struct {
	rel     relfile.Relation
	nblocks page.BlockNumber
	batch   *DeadItems
	logger  *util.Logger
	stats   *state.BloatScanStats
	stale   int64
}

// leftmostLeaf follows the leftmost downlink of each level from the root.
// PNone means the index has no root page yet.
func (w *leafWalker) leftmostLeaf() (page.BlockNumber, error) {
	var root page.BlockNumber
	var level uint32
	err := relfile.WithPage(w.rel, page.BTreeMetaBlock, func(p *page.Page) error {
		meta, err := p.BTMeta()
		if err != nil {
			return err
		}
		root = meta.Root
		level = meta.Level
		return nil
	})
	if err != nil {
		return page.PNone, err
	}
	if root == page.PNone {
		return page.PNone, nil
	}

	blkno := root
	for depth := uint32(0); depth <= level; depth++ {
		if blkno == page.PNone || blkno >= w.nblocks {
			return page.PNone, fmt.Errorf("downlink to block %d out of range (%d blocks)", blkno, w.nblocks)
		}
		var leaf bool
		var child page.BlockNumber
		err := relfile.WithPage(w.rel, blkno, func(p *page.Page) error {
			o, err := p.BTOpaque()
			if err != nil {
				return err
			}
			if o.IsLeaf() {
				leaf = true
				return nil
			}
			first := o.FirstDataKey()
			id, ok := p.ItemID(first)
			if !ok {
				return fmt.Errorf("internal page %d has no downlinks", blkno)
			}
			item, err := p.Item(id)
			if err != nil {
				return err
			}
			itup, err := page.DecodeIndexTuple(item)
			if err != nil {
				return err
			}
			child = itup.Downlink()
			return nil
		})
		if err != nil {
			return page.PNone, errors.Wrapf(err, "block %d", blkno)
		}
		if leaf {
			return blkno, nil
		}
		blkno = child
	}

	return page.PNone, fmt.Errorf("no leaf page found below root %d at level %d", root, level)
}

// walkSiblings visits leaf pages in key order, starting at leftmost and
// following right-links until the rightmost page
func (w *leafWalker) walkSiblings(ctx context.Context, leftmost page.BlockNumber) (int64, error) {
	blkno := leftmost
	for visited := page.BlockNumber(0); ; visited++ {
		if err := ctx.Err(); err != nil {
			return w.stale, err
		}
		if visited >= w.nblocks {
			w.logger.PrintVerbose("Right-link chain is longer than the index, stopping at block %d", blkno)
			break
		}

		next := page.PNone
		err := relfile.WithPage(w.rel, blkno, func(p *page.Page) error {
			o, err := p.BTOpaque()
			if err != nil {
				w.logger.PrintVerbose("Index Page=%d is invalid: %s", blkno, err)
				return nil
			}
			next = o.Next
			w.scanLeaf(p, o, blkno)
			return nil
		})
		if err != nil {
			return w.stale, err
		}

		if next == page.PNone {
			break
		}
		if next >= w.nblocks {
			w.logger.PrintVerbose("Index Page=%d has right-link %d past the end of the index", blkno, next)
			break
		}
		blkno = next
	}
	return w.stale, nil
}

// walkPhysical visits every leaf page in block order, skipping the meta page
func (w *leafWalker) walkPhysical(ctx context.Context) (int64, error) {
	for blkno := page.BTreeMetaBlock + 1; blkno < w.nblocks; blkno++ {
		if err := ctx.Err(); err != nil {
			return w.stale, err
		}
		err := relfile.WithPage(w.rel, blkno, func(p *page.Page) error {
			if p.IsNew() {
				w.logger.PrintVerbose("Index Page=%d may be empty", blkno)
				return nil
			}
			o, err := p.BTOpaque()
			if err != nil {
				w.logger.PrintVerbose("Index Page=%d is invalid: %s", blkno, err)
				return nil
			}
			if o.IsMeta() || !o.IsLeaf() {
				return nil
			}
			w.scanLeaf(p, o, blkno)
			return nil
		})
		if err != nil {
			return w.stale, err
		}
	}
	return w.stale, nil
}

func (w *leafWalker) scanLeaf(p *page.Page, o page.BTPageOpaque, blkno page.BlockNumber) {
	if !o.IsLeaf() {
		w.logger.PrintVerbose("Index Page=%d is not a leaf page", blkno)
		return
	}
	if o.IsIgnorable() {
		w.logger.PrintVerbose("Index Page=%d is deleted or half-dead", blkno)
		return
	}

	w.stats.IndexPagesRead++

	maxOff := p.MaxOffsetNumber()
	if maxOff == 0 {
		w.logger.PrintVerbose("Index Page=%d may be empty", blkno)
		return
	}

	for off := o.FirstDataKey(); off <= maxOff; off++ {
		id, _ := p.ItemID(off)
		if !id.HasStorage() || id.Flags() == page.LPUnused || id.Flags() == page.LPRedirect {
			w.logger.PrintVerbose("Index item=%d in page=%d could not be read", off, blkno)
			continue
		}
		item, err := p.Item(id)
		if err != nil {
			w.logger.PrintVerbose("Index item=%d in page=%d could not be read: %s", off, blkno, err)
			continue
		}
		itup, err := page.DecodeIndexTuple(item)
		if err != nil {
			w.logger.PrintVerbose("Index item=%d in page=%d could not be decoded: %s", off, blkno, err)
			continue
		}
		if itup.IsPivot() {
			continue
		}
		tids, err := itup.HeapTIDs()
		if err != nil {
			w.logger.PrintVerbose("Index item=%d in page=%d has a bad posting list: %s", off, blkno, err)
			continue
		}
		for _, tid := range tids {
			w.stats.IndexEntries++
			if w.batch.Contains(tid) {
				w.stale++
			}
		}
	}
}
