package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reactboard/internal/adapter/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	return path
}

func seedMapping(t *testing.T, path, referenceID, counterID string) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	_, err = sqlite.NewMappingRepo(db, clock).Insert(ctx, referenceID, counterID)
	require.NoError(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate_SQLite(t *testing.T) {
	setupSQLiteEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Schema up to date (sqlite)\n", out)
}

func TestCount(t *testing.T) {
	path := setupSQLiteEnv(t)
	seedMapping(t, path, "111", "900")
	seedMapping(t, path, "222", "901")

	out, err := execute(t, "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = execute(t, "count", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 2}`, out)
}

func TestLookup_ByReference(t *testing.T) {
	path := setupSQLiteEnv(t)
	seedMapping(t, path, "111", "900")

	out, err := execute(t, "lookup", "111")
	require.NoError(t, err)
	assert.Equal(t, "reference=111 counter=900 created=2026-03-01T12:00:00Z\n", out)
}

func TestLookup_ByCounterJSON(t *testing.T) {
	path := setupSQLiteEnv(t)
	seedMapping(t, path, "111", "900")

	out, err := execute(t, "lookup", "--by-counter", "900", "--format", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "111", got["reference_id"])
	assert.Equal(t, "900", got["counter_id"])
}

func TestLookup_NotFound(t *testing.T) {
	setupSQLiteEnv(t)

	_, err := execute(t, "lookup", "404")
	require.Error(t, err)
	assert.Equal(t, "no mapping for 404", err.Error())
}

func TestLookup_RequiresArgument(t *testing.T) {
	setupSQLiteEnv(t)

	_, err := execute(t, "lookup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestInvalidFormat(t *testing.T) {
	setupSQLiteEnv(t)

	_, err := execute(t, "count", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestInvalidStoreConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, "count")
	require.Error(t, err)
	assert.Equal(t, "DATABASE_URL is required when STORE_DRIVER is postgres", err.Error())
}
