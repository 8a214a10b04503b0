package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/detection.report/internal/httputil"
	"github.com/banshee-data/detection.report/internal/monitoring"
)

// TableStats is the row count of one table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// DatabaseStats summarises the evaluation tables.
type DatabaseStats struct {
	Path             string       `json:"path"`
	MigrationVersion uint         `json:"migration_version"`
	Dirty            bool         `json:"dirty"`
	Tables           []TableStats `json:"tables"`
}

var statsTables = []string{"evaluations", "evaluation_frames"}

// Stats reports the migration state and table sizes.
func (db *DB) Stats() (*DatabaseStats, error) {
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return nil, err
	}
	s := &DatabaseStats{Path: db.path, MigrationVersion: version, Dirty: dirty, Tables: []TableStats{}}
	for _, name := range statsTables {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		s.Tables = append(s.Tables, TableStats{Name: name, Rows: n})
	}
	return s, nil
}

// AttachAdminRoutes mounts tailsql, a stats endpoint and a backup download
// under /debug/ on mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Evaluation DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Evaluation table sizes and migration state", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.Stats()
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "eval-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Logf("Failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	if _, err := io.Copy(gz, f); err != nil {
		monitoring.Logf("Failed to stream backup: %v", err)
	}
	if err := gz.Close(); err != nil {
		monitoring.Logf("Failed to finish backup stream: %v", err)
	}
}
