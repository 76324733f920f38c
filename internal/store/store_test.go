package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp("../../migrations"))
	return db
}

func sampleRun() *AnalysisRun {
	return &AnalysisRun{
		Source:     "bench interferometer",
		Samples:    128,
		Dia:        25.4,
		Wavelength: 0.6328,
		Terms:      3,
		Ordering:   "fringe",
		Normalized: false,
		ResidualNm: 1.5,
		InputPVNm:  120,
		InputRMSNm: 30,
		Coefficients: []RunCoefficient{
			{TermIndex: 0, TermName: "Piston", Value: 0},
			{TermIndex: 1, TermName: "Tilt Y", Value: 12.5},
			{TermIndex: 2, TermName: "Tilt X", Value: -4},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := testDB(t)
	runs := NewRunStore(db)

	run := sampleRun()
	require.NoError(t, runs.SaveRun(run))
	assert.NotEmpty(t, run.RunID, "SaveRun assigns an ID")
	assert.NotZero(t, run.CreatedAt)

	got, err := runs.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.Samples, got.Samples)
	assert.InDelta(t, run.Wavelength, got.Wavelength, 1e-12)
	assert.Equal(t, run.Ordering, got.Ordering)
	require.Len(t, got.Coefficients, 3)
	assert.Equal(t, "Tilt Y", got.Coefficients[1].TermName)
	assert.Equal(t, 12.5, got.Coefficients[1].Value)
}

func TestGetRunNotFound(t *testing.T) {
	db := testDB(t)
	runs := NewRunStore(db)

	_, err := runs.GetRun("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunKeepsExplicitID(t *testing.T) {
	db := testDB(t)
	runs := NewRunStore(db)

	run := sampleRun()
	run.RunID = "fixed-id"
	run.CreatedAt = 42
	require.NoError(t, runs.SaveRun(run))

	got, err := runs.GetRun("fixed-id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.CreatedAt)
}

func TestListRuns(t *testing.T) {
	db := testDB(t)
	runs := NewRunStore(db)

	for i := 0; i < 3; i++ {
		run := sampleRun()
		run.CreatedAt = int64(100 + i)
		require.NoError(t, runs.SaveRun(run))
	}

	list, err := runs.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Newest first; list rows omit coefficients.
	assert.EqualValues(t, 102, list[0].CreatedAt)
	assert.Empty(t, list[0].Coefficients)

	limited, err := runs.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteRun(t *testing.T) {
	db := testDB(t)
	runs := NewRunStore(db)

	run := sampleRun()
	require.NoError(t, runs.SaveRun(run))

	require.NoError(t, runs.DeleteRun(run.RunID))
	_, err := runs.GetRun(run.RunID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, runs.DeleteRun(run.RunID), ErrRunNotFound)
}

func TestMigrateVersionAndDown(t *testing.T) {
	db := testDB(t)

	version, dirty, err := db.MigrateVersion("../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)

	require.NoError(t, db.MigrateDown("../../migrations"))
	_, err = db.Exec("SELECT count(*) FROM analysis_runs")
	assert.Error(t, err, "tables are gone after down migration")
}

func TestMigrateForceClearsDirtyState(t *testing.T) {
	db := testDB(t)

	// Simulate an interrupted migration.
	_, err := db.Exec("UPDATE schema_migrations SET dirty = 1")
	require.NoError(t, err)

	_, dirty, err := db.MigrateVersion("../../migrations")
	require.NoError(t, err)
	require.True(t, dirty)

	require.NoError(t, db.MigrateForce("../../migrations", 1))

	version, dirty, err := db.MigrateVersion("../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("passes through success", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries lock conflicts", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("fails fast on other errors", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("constraint violation")
		err := retryOnBusy(func() error {
			calls++
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return errors.New("SQLITE_BUSY")
		})
		require.Error(t, err)
		assert.Equal(t, 5, calls)
	})
}
