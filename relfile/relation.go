// Package relfile provides read-only, scoped access to the blocks of a
// relation: either the segment files PostgreSQL keeps under its data
// directory, or an in-memory image.
package relfile

import (
	"github.com/pganalyze/pgbloat/page"
)

// Relation is a source of blocks for one heap or index relation
type Relation interface {
	Name() string

	// NumBlocks is the relation size in blocks, fixed when the relation was
	// opened
	NumBlocks() page.BlockNumber

	// ReadBuffer acquires shared read access to a block. The caller must
	// Release the buffer before the page contents become invalid.
	ReadBuffer(blkno page.BlockNumber) (Buffer, error)

	Close() error
}

// Buffer is one held block
type Buffer interface {
	Page() *page.Page
	Release()
}

// WithPage holds blkno for the duration of fn and releases it on every
// return path, including panics
func WithPage(rel Relation, blkno page.BlockNumber, fn func(p *page.Page) error) error {
	buf, err := rel.ReadBuffer(blkno)
	if err != nil {
		return err
	}
	defer buf.Release()

	return fn(buf.Page())
}
