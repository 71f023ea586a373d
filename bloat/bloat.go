// Package bloat estimates table bloat: dead tuples left behind by UPDATE and
// DELETE, the bytes they occupy, and the index entries still pointing at
// them.
package bloat

import (
	"context"

	"github.com/pganalyze/pgbloat/relfile"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

// Catalog resolves tables and checks whether the caller may read them
type Catalog interface {
	CheckPrivilege(ctx context.Context) error
	OpenTable(ctx context.Context, schemaName string, relationName string) (*Table, error)
}

// Table - An opened heap relation together with its indexes
type Table struct {
	Heap    relfile.Relation
	Indexes []IndexSource
}

func (t *Table) Close() error {
	return t.Heap.Close()
}

// GetBloat scans schemaName.relationName and returns its dead tuple and stale
// index entry counts
func GetBloat(ctx context.Context, logger *util.Logger, catalog Catalog, schemaName string, relationName string, opts Options) (state.RelationBloat, error) {
	if err := catalog.CheckPrivilege(ctx); err != nil {
		return state.RelationBloat{}, err
	}

	table, err := catalog.OpenTable(ctx, schemaName, relationName)
	if err != nil {
		return state.RelationBloat{}, err
	}
	defer table.Close()

	if table.Heap.NumBlocks() == 0 {
		return state.RelationBloat{}, &state.EmptyRelationError{Name: table.Heap.Name()}
	}

	prefixedLogger := logger.WithPrefix(table.Heap.Name())
	prefixedLogger.PrintVerbose("Scanning %d blocks, %d indexes", table.Heap.NumBlocks(), len(table.Indexes))

	scanner := NewScanner(table.Heap, table.Indexes, opts, prefixedLogger)
	return scanner.Scan(ctx)
}
