package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"github.com/tern-robotics/episode.report/internal/monitoring"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

// DB wraps the sqlite handle holding evaluation reports.
type DB struct {
	*sql.DB
}

// NewDB opens (and creates if needed) the reports database at path.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.ensureSchema(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ensureSchema applies the baseline schema for fresh databases. Deployed
// databases migrate forward via MigrateUp instead.
func (db *DB) ensureSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quality_reports (
			report_id           TEXT PRIMARY KEY,
			dataset             TEXT NOT NULL,
			fps                 DOUBLE NOT NULL,
			episodes_evaluated  BIGINT NOT NULL,
			frame_drop_ratio    DOUBLE,
			lack_of_jitter      BOOLEAN NOT NULL,
			jerk_mean           DOUBLE,
			missing_topic_count BIGINT NOT NULL,
			has_nans            BOOLEAN NOT NULL,
			report_json         TEXT NOT NULL,
			summary_json        TEXT NOT NULL,
			created_at          BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_quality_reports_dataset
			ON quality_reports(dataset, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// isSQLiteBusy reports whether an error is a transient SQLITE_BUSY.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries fn with exponential backoff while it reports
// SQLITE_BUSY, up to 5 attempts. Other errors fail immediately.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 5
	backoff := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil || !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

// AttachAdminRoutes mounts debug endpoints: a tailSQL browser over the
// reports database and a gzip backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://reports.db", db.DB, &tailsql.DBOptions{
		Label: "Quality Reports DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the reports database", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		defer os.Remove(backupPath)

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()

		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, backupFile); err != nil {
			monitoring.Logf("failed to stream backup: %v", err)
		}
	}))
}
