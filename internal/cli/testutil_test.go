package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv points the CLI at a fresh local SQLite database and an isolated
// data directory.
func testEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("SPLITR_STORE", "turso")
	t.Setenv("SPLITR_DATABASE_URL", filepath.Join(dir, "splitr.db"))
	t.Setenv("SPLITR_LOG_LEVEL", "error")
	t.Setenv("SPLITR_SEED", "11")
	t.Setenv("SPLITR_OTEL_ENABLED", "false")

	run(t, "migrate")
}

// run executes the command line and fails the test on error.
func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("splitr %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func execute(args ...string) (string, error) {
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}
