package db

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var up, down int
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".sql":
			if matched, _ := filepath.Match("*.up.sql", e.Name()); matched {
				up++
			} else {
				down++
			}
		}
	}
	assert.Equal(t, up, down, "every up migration needs a down migration")
}

func TestMigrateUpDown(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Already migrated.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='evaluations'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestNewDB_NoMigrations(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO evaluations (evaluation_id, dataset, frame_count, total_detections,
		true_positives, false_negatives, false_positives, created_at) VALUES ('e1', 'ds', 1, 2, 1, 0, 1, 10)`)
	require.NoError(t, err)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.MigrationVersion)
	assert.Equal(t, []TableStats{{Name: "evaluations", Rows: 1}, {Name: "evaluation_frames", Rows: 0}}, stats.Tables)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := openTestDB(t)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	// Routes may answer 403 to non-local callers, but must be registered.
	for _, endpoint := range []string{"/debug/db-stats", "/debug/backup", "/debug/tailsql/"} {
		t.Run(endpoint, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, endpoint, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			assert.NotEqual(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestHandleBackup(t *testing.T) {
	db := openTestDB(t)

	w := httptest.NewRecorder()
	db.handleBackup(w, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))
	// gzip magic
	require.GreaterOrEqual(t, w.Body.Len(), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, w.Body.Bytes()[:2])
}
