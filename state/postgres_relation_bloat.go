package state

// RelationBloat - Dead tuple and stale index entry totals for one table
//
// The counts are gathered while the table is being written to, so they
// approximate the bloat at the time of the scan.
type RelationBloat struct {
	RelationName      string
	DeadTuples        int64
	DeadTupleBytes    int64
	StaleIndexEntries int64

	// Set when only dead tuples were counted, without sizing them or checking
	// indexes
	CountOnly bool

	Stats BloatScanStats
}

// BloatScanStats - Counters describing how the scan went
type BloatScanStats struct {
	PagesScanned   int64
	EmptyPages     int64
	InvalidItems   int64
	ChainsFollowed int64
	BatchFlushes   int64
	IndexesScanned int64
	IndexesSkipped int64
	IndexPagesRead int64
	IndexEntries   int64
}
