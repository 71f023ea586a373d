package postgres

import (
	"context"
	"database/sql"
)

// CurrentDatabaseName - Get name of the database we're currently connected to
func CurrentDatabaseName(ctx context.Context, db *sql.DB) (result string, err error) {
	err = db.QueryRowContext(ctx, QueryMarkerSQL+"SELECT pg_catalog.current_database()").Scan(&result)
	return
}
