package bloat

import (
	"sort"

	"github.com/pganalyze/pgbloat/page"
)

// DefaultBatchSize is the number of dead TIDs collected before the indexes
// are scanned
const DefaultBatchSize = 1024

// DeadItems - A bounded set of dead heap TIDs waiting to be matched against
// the table's indexes
type DeadItems struct {
	items    []page.TID
	capacity int
	sorted   bool

	// number of indexes the last flush got through
	indexCursor int
}

func NewDeadItems(capacity int) *DeadItems {
	if capacity <= 0 {
		capacity = DefaultBatchSize
	}
	return &DeadItems{
		items:    make([]page.TID, 0, capacity),
		capacity: capacity,
		sorted:   true,
	}
}

// Append stores tid and reports true, or reports false without storing
// anything when the batch is full
func (d *DeadItems) Append(tid page.TID) bool {
	n := len(d.items)
	if n >= d.capacity {
		return false
	}
	if n > 0 && tid.Less(d.items[n-1]) {
		d.sorted = false
	}
	d.items = append(d.items, tid)
	return true
}

func (d *DeadItems) Len() int {
	return len(d.items)
}

func (d *DeadItems) Cap() int {
	return d.capacity
}

func (d *DeadItems) Full() bool {
	return len(d.items) >= d.capacity
}

// IndexCursor is the number of indexes visited by the most recent flush
func (d *DeadItems) IndexCursor() int {
	return d.indexCursor
}

// Contains reports whether tid is in the batch. Identifiers outside the
// [min, max] range of the batch are rejected without searching.
func (d *DeadItems) Contains(tid page.TID) bool {
	n := len(d.items)
	if n == 0 {
		return false
	}
	if !d.sorted {
		sort.Slice(d.items, func(i, j int) bool { return d.items[i].Less(d.items[j]) })
		d.sorted = true
	}

	item := tid.Encode()
	if item < d.items[0].Encode() || item > d.items[n-1].Encode() {
		return false
	}

	i := sort.Search(n, func(i int) bool { return !d.items[i].Less(tid) })
	return i < n && d.items[i] == tid
}

// Reset empties the batch, keeping its storage
func (d *DeadItems) Reset() {
	d.items = d.items[:0]
	d.sorted = true
}
