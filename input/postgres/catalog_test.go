package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pganalyze/pgbloat/bloat"
	"github.com/pganalyze/pgbloat/input/postgres"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

type relationPathTestpair struct {
	dataDirectory string
	filePath      string
	expected      string
}

var relationPathTests = []relationPathTestpair{
	{"/var/lib/postgresql/16/main", "base/16384/16385", "/var/lib/postgresql/16/main/base/16384/16385"},
	{"/var/lib/postgresql/16/main/", "pg_tblspc/16390/PG_16_202307071/16384/16391", "/var/lib/postgresql/16/main/pg_tblspc/16390/PG_16_202307071/16384/16391"},
	{"/mnt/pgdata", "/srv/tablespace/16384/16391", "/srv/tablespace/16384/16391"},
}

func TestRelationPath(t *testing.T) {
	for _, pair := range relationPathTests {
		if got := postgres.RelationPath(pair.dataDirectory, pair.filePath); got != pair.expected {
			t.Errorf("want %s; got %s", pair.expected, got)
		}
	}
}

func setupTest(t *testing.T) *sql.DB {
	testDatabaseUrl := os.Getenv("TEST_DATABASE_URL")
	if testDatabaseUrl == "" {
		t.Skipf("Skipping test requiring database connection since TEST_DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", testDatabaseUrl)
	if err != nil {
		t.Fatalf("Could not connect to test database: %s", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"DROP VIEW IF EXISTS bloat_test_view",
		"DROP TABLE IF EXISTS bloat_test",
		"CREATE TABLE bloat_test (id int PRIMARY KEY, value text) WITH (autovacuum_enabled = off)",
		"CREATE INDEX bloat_test_value_idx ON bloat_test USING hash (value)",
		"INSERT INTO bloat_test SELECT i, 'value ' || i FROM generate_series(1, 1000) i",
		"DELETE FROM bloat_test WHERE id % 10 = 0",
		"UPDATE bloat_test SET value = 'updated' WHERE id % 10 = 5",
		"CHECKPOINT",
		"CREATE VIEW bloat_test_view AS SELECT * FROM bloat_test",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("Could not set up test table (%s): %s", stmt, err)
		}
	}

	return db
}

func TestGetRelation(t *testing.T) {
	db := setupTest(t)
	defer db.Close()
	ctx := context.Background()

	relation, err := postgres.GetRelation(ctx, db, "", "bloat_test")
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	if relation.QualifiedName() != "public.bloat_test" || relation.RelationType != "r" || !relation.FilePath.Valid {
		t.Errorf("unexpected relation: %+v", relation)
	}

	type indexSummary struct {
		Name         string
		AccessMethod string
		IsReady      bool
	}
	var got []indexSummary
	for _, index := range relation.Indices {
		got = append(got, indexSummary{index.Name, index.AccessMethod, index.IsReady})
	}
	expected := []indexSummary{
		{"bloat_test_pkey", "btree", true},
		{"bloat_test_value_idx", "hash", true},
	}
	cfg := pretty.CompareConfig
	if diff := cfg.Compare(expected, got); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRelationErrors(t *testing.T) {
	db := setupTest(t)
	defer db.Close()
	ctx := context.Background()

	_, err := postgres.GetRelation(ctx, db, "public", "bloat_test_missing")
	if _, ok := err.(*state.RelationNotFoundError); !ok {
		t.Errorf("want *state.RelationNotFoundError; got %v", err)
	}

	_, err = postgres.GetRelation(ctx, db, "public", "bloat_test_view")
	if notATable, ok := err.(*state.NotATableError); !ok || notATable.RelationType != "v" {
		t.Errorf("want *state.NotATableError for a view; got %v", err)
	}
}

func TestCheckBlockSize(t *testing.T) {
	db := setupTest(t)
	defer db.Close()

	if err := postgres.CheckBlockSize(context.Background(), db); err != nil {
		t.Errorf("want nil; got %s", err)
	}
}

func TestGetBloatFromServer(t *testing.T) {
	db := setupTest(t)
	defer db.Close()
	ctx := context.Background()

	if !postgres.ConnectedAsSuperUser(ctx, db, "self_hosted") {
		t.Skipf("Skipping test requiring superuser")
	}
	dataDirectory, err := postgres.GetDataDirectory(ctx, db)
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	if _, err := os.Stat(dataDirectory); err != nil {
		t.Skipf("Skipping test requiring local access to the data directory: %s", err)
	}

	catalog := postgres.NewCatalog(db, "self_hosted", dataDirectory, &util.Logger{})
	result, err := bloat.GetBloat(ctx, &util.Logger{}, catalog, "public", "bloat_test", bloat.Options{BatchSize: 16})
	if _, ok := errors.Cause(err).(*os.PathError); ok {
		t.Skipf("Skipping test, relation files are not readable: %s", err)
	}
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}

	// 100 deleted rows and 100 old versions of the updated ones; pruning may
	// already have turned some into dead line pointers, which still count
	if result.DeadTuples != 200 {
		t.Errorf("want 200 dead tuples; got %d", result.DeadTuples)
	}
	// only the btree primary key is checked, and it still points at every
	// dead version
	if result.StaleIndexEntries != 200 {
		t.Errorf("want 200 stale index entries; got %d", result.StaleIndexEntries)
	}
	if result.Stats.IndexesSkipped == 0 {
		t.Errorf("want hash index to be skipped")
	}
}
