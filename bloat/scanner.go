package bloat

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgbloat/page"
	"github.com/pganalyze/pgbloat/relfile"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

// Options - Settings for one bloat scan
type Options struct {
	// Dead TIDs collected before the indexes are scanned (DefaultBatchSize if zero)
	BatchSize int

	// Only count dead tuples, skipping their sizes and the index scans
	CountOnly bool
}

// Scanner walks a table's heap pages in block order, counting dead tuples and
// feeding their TIDs to a Reconciler in batches
type Scanner struct {
	heap       relfile.Relation
	opts       Options
	logger     *util.Logger
	batch      *DeadItems
	reconciler *Reconciler
	stats      state.BloatScanStats
}

func NewScanner(heap relfile.Relation, indexes []IndexSource, opts Options, logger *util.Logger) *Scanner {
	s := &Scanner{
		heap:   heap,
		opts:   opts,
		logger: logger,
		batch:  NewDeadItems(opts.BatchSize),
	}
	s.reconciler = NewReconciler(indexes, logger, &s.stats)
	return s
}

// Scan reads every block of the table once. Pages are only read, so calling
// Scan again on an unchanged table gives the same result.
func (s *Scanner) Scan(ctx context.Context) (state.RelationBloat, error) {
	nblocks := s.heap.NumBlocks()
	if nblocks == 0 {
		return state.RelationBloat{}, &state.EmptyRelationError{Name: s.heap.Name()}
	}

	s.stats = state.BloatScanStats{}
	s.batch.Reset()

	result := state.RelationBloat{RelationName: s.heap.Name(), CountOnly: s.opts.CountOnly}
	res := &resolver{heap: s.heap, nblocks: nblocks, logger: s.logger, stats: &s.stats}

	for blkno := page.BlockNumber(0); blkno < nblocks; blkno++ {
		if err := ctx.Err(); err != nil {
			return state.RelationBloat{}, errors.Wrapf(err, "scan of %s stopped at block %d", s.heap.Name(), blkno)
		}
		err := relfile.WithPage(s.heap, blkno, func(p *page.Page) error {
			return s.scanPage(ctx, res, p, blkno, &result)
		})
		if err != nil {
			return state.RelationBloat{}, errors.Wrapf(err, "could not scan block %d of %s", blkno, s.heap.Name())
		}
		s.stats.PagesScanned++
	}

	if result.DeadTuples > 0 && !s.opts.CountOnly {
		stale, err := s.reconciler.Flush(ctx, s.batch)
		if err != nil {
			return state.RelationBloat{}, err
		}
		result.StaleIndexEntries += stale
	}

	result.Stats = s.stats
	s.logger.PrintVerbose("Scanned %d pages: %d dead tuples, %d flushes", s.stats.PagesScanned, result.DeadTuples, s.stats.BatchFlushes)

	return result, nil
}

func (s *Scanner) scanPage(ctx context.Context, res *resolver, p *page.Page, blkno page.BlockNumber, result *state.RelationBloat) error {
	maxOff := p.MaxOffsetNumber()
	if maxOff == 0 {
		s.logger.PrintVerbose("Page=%d may be empty", blkno)
		s.stats.EmptyPages++
		return nil
	}

	for off := page.FirstOffsetNumber; off <= maxOff; off++ {
		id, _ := p.ItemID(off)
		tid := page.TID{Block: blkno, Offset: off}

		if id.IsDead() {
			if err := s.countDead(ctx, id, tid, result); err != nil {
				return err
			}
			continue
		}

		hdr, err := heapTupleAt(p, off)
		if err != nil {
			s.logger.PrintVerbose("Tuple item=%d in page=%d could not be read: %s", off, blkno, err)
			s.stats.InvalidItems++
			continue
		}

		v, err := res.resolve(p, blkno, off, maxOff, hdr)
		if err != nil {
			return err
		}
		if v == dead {
			if err := s.countDead(ctx, id, tid, result); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scanner) countDead(ctx context.Context, id page.ItemID, tid page.TID, result *state.RelationBloat) error {
	result.DeadTuples++
	if s.opts.CountOnly {
		return nil
	}
	result.DeadTupleBytes += int64(id.Length())

	// A full batch is flushed and the same TID offered again
	for !s.batch.Append(tid) {
		stale, err := s.reconciler.Flush(ctx, s.batch)
		if err != nil {
			return err
		}
		result.StaleIndexEntries += stale
	}
	return nil
}
