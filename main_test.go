package main

import (
	"path/filepath"
	"testing"

	"github.com/pganalyze/pgbloat/util"
)

type relationNameTestpair struct {
	input        string
	schemaName   string
	relationName string
}

var relationNameTests = []relationNameTestpair{
	{"orders", "", "orders"},
	{"public.orders", "public", "orders"},
	{"app.orders.archive", "app", "orders.archive"},
}

func TestSplitRelationName(t *testing.T) {
	for _, pair := range relationNameTests {
		schemaName, relationName := splitRelationName(pair.input)
		if schemaName != pair.schemaName || relationName != pair.relationName {
			t.Errorf("want %s/%s; got %s/%s", pair.schemaName, pair.relationName, schemaName, relationName)
		}
	}
}

func TestServerConfigOverrides(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("PGDATA", "/from/env")
	t.Setenv("BLOAT_BATCH_SIZE", "")

	opts := options{
		configFilename: filepath.Join(t.TempDir(), "missing.conf"),
		dbURL:          "postgres://bloat@localhost/app",
		dataDirectory:  "/from/flag",
		batchSize:      32,
	}
	server, err := serverConfig(&util.Logger{}, opts)
	if err != nil {
		t.Fatalf("want nil; got %s", err)
	}
	if server.DataDirectory != "/from/flag" || server.BloatBatchSize != 32 || server.GetDbName() != "app" {
		t.Errorf("unexpected server config: %+v", server)
	}
}

func TestServerConfigMissing(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	opts := options{configFilename: filepath.Join(t.TempDir(), "missing.conf")}
	if _, err := serverConfig(&util.Logger{}, opts); err == nil {
		t.Errorf("want error; got nil")
	}
}
