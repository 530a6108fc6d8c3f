package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/buildctl/api/v1"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunsRoundTripNewestFirst(t *testing.T) {
	db := openTemp(t)
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.PutRun(v1.RunRecord{ID: "a", Action: "build", Subcommand: "build_all", StartedAt: base}))
	require.NoError(t, db.PutRun(v1.RunRecord{ID: "b", Action: "lint", Subcommand: "lint_all", StartedAt: base.Add(time.Minute)}))
	require.NoError(t, db.PutRun(v1.RunRecord{ID: "c", Action: "build", Subcommand: "build_dev_server", StartedAt: base.Add(2 * time.Minute)}))

	all, err := db.ListRuns("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	builds, err := db.ListRuns("build", 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "build_dev_server", builds[0].Subcommand)

	got, err := db.GetRun("b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lint_all", got.Subcommand)

	missing, err := db.GetRun("zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPutRequiresID(t *testing.T) {
	db := openTemp(t)
	assert.Error(t, db.PutRun(v1.RunRecord{}))
	assert.Error(t, db.PutBootstrap(v1.BootstrapRecord{}))
}

func TestBootstraps(t *testing.T) {
	db := openTemp(t)
	now := time.Now().UTC()
	require.NoError(t, db.PutBootstrap(v1.BootstrapRecord{ID: "1", Compiled: true, StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.PutBootstrap(v1.BootstrapRecord{ID: "2", Compiled: false, StartedAt: now}))

	recs, err := db.ListBootstraps(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID)
	assert.True(t, recs[1].Compiled)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.PutRun(v1.RunRecord{ID: "x", Action: "docs", Subcommand: "docs"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.ListRuns("docs", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
