package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/ogier/pflag"

	"github.com/pganalyze/pgbloat/bloat"
	"github.com/pganalyze/pgbloat/config"
	"github.com/pganalyze/pgbloat/input/postgres"
	"github.com/pganalyze/pgbloat/output"
	"github.com/pganalyze/pgbloat/util"
)

type options struct {
	configFilename string
	sectionName    string
	dbURL          string
	dataDirectory  string
	batchSize      int
	countOnly      bool
	jsonOutput     bool
	withStats      bool
	verbose        bool
	quiet          bool
}

// splitRelationName - Splits "schema.table" on the first dot, a bare name
// is resolved through the search path
func splitRelationName(name string) (string, string) {
	if idx := strings.Index(name, "."); idx != -1 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

func serverConfig(logger *util.Logger, opts options) (config.ServerConfig, error) {
	var server config.ServerConfig

	if opts.dbURL != "" {
		server = config.ForURL(opts.dbURL)
	} else {
		conf, err := config.Read(logger, opts.configFilename)
		if err != nil {
			return server, err
		}
		s, err := conf.Server(opts.sectionName)
		if err != nil {
			return server, err
		}
		server = s
	}

	if opts.dataDirectory != "" {
		server.DataDirectory = opts.dataDirectory
	}
	if opts.batchSize > 0 {
		server.BloatBatchSize = opts.batchSize
	}
	return server, nil
}

func run(ctx context.Context, logger *util.Logger, opts options, relationArg string) error {
	server, err := serverConfig(logger, opts)
	if err != nil {
		return err
	}
	logger.PrintVerbose("Connecting to %s", server.GetDbURLRedacted())

	db, err := postgres.EstablishConnection(ctx, &server, logger)
	if err != nil {
		return fmt.Errorf("could not connect to database: %s", err)
	}
	defer db.Close()

	if dbName, err := postgres.CurrentDatabaseName(ctx, db); err == nil {
		logger.PrintVerbose("Reading relation files of database %s", dbName)
	}

	schemaName, relationName := splitRelationName(relationArg)
	catalog := postgres.NewCatalog(db, server.SystemType, server.DataDirectory, logger)
	result, err := bloat.GetBloat(ctx, logger, catalog, schemaName, relationName, bloat.Options{
		BatchSize: server.BloatBatchSize,
		CountOnly: opts.countOnly,
	})
	if err != nil {
		return err
	}

	format := output.FormatText
	if opts.jsonOutput {
		format = output.FormatJSON
	}
	return output.PrintBloat(os.Stdout, result, format, opts.withStats)
}

func main() {
	var opts options

	flag.StringVarP(&opts.configFilename, "config", "c", config.DefaultConfigFile, "Specify alternative path for config file")
	flag.StringVarP(&opts.sectionName, "section", "s", "", "Use the named server section of the config file (defaults to the first one)")
	flag.StringVar(&opts.dbURL, "db-url", "", "Connect using this URL instead of the config file")
	flag.StringVarP(&opts.dataDirectory, "data-directory", "D", "", "Postgres data directory containing the relation files")
	flag.IntVar(&opts.batchSize, "batch-size", 0, "Dead tuple identifiers collected before the indexes are scanned")
	flag.BoolVar(&opts.countOnly, "count-only", false, "Only count dead tuples, skipping tuple sizes and index scans")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	flag.BoolVar(&opts.withStats, "stats", false, "Include scan statistics in the output")
	flag.BoolVarP(&opts.verbose, "verbose", "v", false, "Include verbose logging output")
	flag.BoolVarP(&opts.quiet, "quiet", "q", false, "Only print log messages when an error occurs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pgbloat [options] [schema.]table\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := util.NewLogger(os.Stderr, opts.verbose, opts.quiet)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, opts, flag.Arg(0)); err != nil {
		logger.PrintError("Could not estimate bloat: %s", err)
		cancel()
		os.Exit(1)
	}
}
