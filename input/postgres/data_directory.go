package postgres

import (
	"context"
	"database/sql"
)

// GetDataDirectory - Finds the location of the data directory
func GetDataDirectory(ctx context.Context, db *sql.DB) (dataDirectory string, err error) {
	err = db.QueryRowContext(ctx, QueryMarkerSQL+"SHOW data_directory").Scan(&dataDirectory)
	return
}
