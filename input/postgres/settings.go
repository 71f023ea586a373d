package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pganalyze/pgbloat/page"
	"github.com/pganalyze/pgbloat/state"
)

// CheckBlockSize - Relation files can only be decoded when the server was
// built with the default 8kB block size
func CheckBlockSize(ctx context.Context, db *sql.DB) error {
	var blockSize int

	err := db.QueryRowContext(ctx, QueryMarkerSQL+"SELECT pg_catalog.current_setting('block_size')::int").Scan(&blockSize)
	if err != nil {
		return fmt.Errorf("BlockSize/Query: %s", err)
	}

	if blockSize != page.BlockSize {
		return state.ErrUnsupportedBlockSize
	}

	return nil
}
