package state

import (
	"errors"
	"fmt"
)

var ErrInsufficientPrivilege error = errors.New("must be superuser to use bloat function")

var ErrUnsupportedBlockSize error = errors.New("only a block_size of 8192 is supported")

// RelationNotFoundError - The named relation does not exist, or is not local
// to the database we're connected to
type RelationNotFoundError struct {
	SchemaName   string
	RelationName string
}

func (e *RelationNotFoundError) Error() string {
	return fmt.Sprintf("could not open table %s.%s; accessing cross-database tables is not allowed", e.SchemaName, e.RelationName)
}

// NotATableError - The relation exists but has no heap to scan (view, index, partitioned table, ...)
type NotATableError struct {
	Name         string
	RelationType string
}

func (e *NotATableError) Error() string {
	return fmt.Sprintf("%s is not a table (relkind %q)", e.Name, e.RelationType)
}

// EmptyRelationError - The table has no pages, so there is nothing to scan
type EmptyRelationError struct {
	Name string
}

func (e *EmptyRelationError) Error() string {
	return fmt.Sprintf("empty table: %s", e.Name)
}
