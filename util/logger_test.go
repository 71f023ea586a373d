package util_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/pganalyze/pgbloat/util"
)

type loggerTestpair struct {
	verbose  bool
	quiet    bool
	expected string
}

var loggerTests = []loggerTestpair{
	{false, false, "I [public.t] scanning\nW [public.t] odd\n"},
	{true, false, "V [public.t] page 3 may be empty\nI [public.t] scanning\nW [public.t] odd\n"},
	{true, true, "W [public.t] odd\n"},
}

func TestLoggerLevels(t *testing.T) {
	for _, pair := range loggerTests {
		var buf bytes.Buffer
		logger := &util.Logger{Verbose: pair.verbose, Quiet: pair.quiet, Destination: log.New(&buf, "", 0)}
		logger = logger.WithPrefix("public.t")

		logger.PrintVerbose("page %d may be empty", 3)
		logger.PrintInfo("scanning")
		logger.PrintWarning("odd")

		if buf.String() != pair.expected {
			t.Errorf("verbose=%v quiet=%v: want %q; got %q", pair.verbose, pair.quiet, pair.expected, buf.String())
		}
	}
}

func TestLoggerNestedPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := (&util.Logger{Destination: log.New(&buf, "", 0)}).WithPrefix("public.t").WithPrefix("t_pkey")
	logger.PrintError("broken")

	if expected := "E [public.t/t_pkey] broken\n"; buf.String() != expected {
		t.Errorf("want %q; got %q", expected, buf.String())
	}
}

func TestLoggerWithoutDestination(t *testing.T) {
	logger := &util.Logger{Verbose: true}
	logger.PrintVerbose("dropped")
	logger.PrintError("dropped")
}
