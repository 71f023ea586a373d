package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // Enable database package to use Postgres

	"github.com/pganalyze/pgbloat/config"
	"github.com/pganalyze/pgbloat/util"
)

func EstablishConnection(ctx context.Context, config *config.ServerConfig, logger *util.Logger) (connection *sql.DB, err error) {
	connection, err = connectToDb(ctx, *config, logger)
	if err != nil {
		if err.Error() == "pq: SSL is not enabled on the server" && (config.DbSslMode == "prefer" || config.DbSslMode == "") {
			config.DbSslModePreferFailed = true
			connection, err = connectToDb(ctx, *config, logger)
		}
	}

	if err != nil {
		return
	}

	err = SetDefaultStatementTimeout(ctx, connection, logger, config.StatementTimeoutMs)
	if err != nil {
		connection.Close()
		return
	}

	return
}

func connectToDb(ctx context.Context, config config.ServerConfig, logger *util.Logger) (*sql.DB, error) {
	connectString := config.GetPqOpenString("")

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.PrintVerbose("Connected to database %s", config.GetDbName())

	return db, nil
}

func SetStatementTimeout(ctx context.Context, connection *sql.DB, statementTimeoutMs int) error {
	_, err := connection.ExecContext(ctx, fmt.Sprintf("%sSET statement_timeout = %d", QueryMarkerSQL, statementTimeoutMs))
	if err != nil {
		return err
	}

	return nil
}

func SetDefaultStatementTimeout(ctx context.Context, connection *sql.DB, logger *util.Logger, statementTimeoutMs int) error {
	if statementTimeoutMs == 0 { // Default value
		statementTimeoutMs = 30000
	}

	// Assume anything below 100ms to be set in error - its not reasonable to have our queries run faster than that
	if statementTimeoutMs < 100 {
		logger.PrintVerbose("Ignoring invalid statement timeout of %dms (set it to at least 100ms)", statementTimeoutMs)
		return nil
	}

	return SetStatementTimeout(ctx, connection, statementTimeoutMs)
}
