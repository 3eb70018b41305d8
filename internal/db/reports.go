package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tern-robotics/episode.report/internal/quality"
)

// StoredReport is one persisted evaluation run: the full report plus the
// columns the triage UI filters on.
type StoredReport struct {
	ReportID          string   `json:"report_id"`
	Dataset           string   `json:"dataset"`
	FPS               float64  `json:"fps"`
	EpisodesEvaluated int      `json:"episodes_evaluated"`
	FrameDropRatio    *float64 `json:"frame_drop_ratio"`
	LackOfJitter      bool     `json:"lack_of_jitter"`
	JerkMean          *float64 `json:"jerk_mean"`
	MissingTopicCount int      `json:"missing_topic_count"`
	HasNaNs           bool     `json:"has_nans"`
	ReportJSON        string   `json:"report_json"`
	SummaryJSON       string   `json:"summary_json"`
	CreatedAt         int64    `json:"created_at"`
}

// InsertReport persists a finished evaluation run and returns its id.
func (db *DB) InsertReport(dataset string, report *quality.Report) (string, error) {
	reportJSON, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("serialize report: %w", err)
	}
	summary := report.Summary()
	summaryJSON, err := summaryToJSON(summary)
	if err != nil {
		return "", fmt.Errorf("serialize summary: %w", err)
	}

	id := uuid.New().String()
	createdAt := time.Now().UnixNano()

	err = retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO quality_reports (
				report_id, dataset, fps, episodes_evaluated,
				frame_drop_ratio, lack_of_jitter, jerk_mean,
				missing_topic_count, has_nans,
				report_json, summary_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, dataset, report.FPS, report.EpisodesEvaluated,
			report.FrameDropRatio, report.LackOfJitter, report.Jerk.Mean,
			summary.MissingTopicCount, summary.HasNaNs,
			reportJSON, summaryJSON, createdAt,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

// GetReport fetches one stored report by id. Returns sql.ErrNoRows when the
// id is unknown.
func (db *DB) GetReport(id string) (*StoredReport, error) {
	row := db.QueryRow(`
		SELECT report_id, dataset, fps, episodes_evaluated,
		       frame_drop_ratio, lack_of_jitter, jerk_mean,
		       missing_topic_count, has_nans,
		       report_json, summary_json, created_at
		FROM quality_reports
		WHERE report_id = ?`, id)
	return scanReport(row)
}

// ListReports returns stored reports newest first, optionally filtered by
// dataset label. limit <= 0 means no limit.
func (db *DB) ListReports(dataset string, limit int) ([]*StoredReport, error) {
	query := `
		SELECT report_id, dataset, fps, episodes_evaluated,
		       frame_drop_ratio, lack_of_jitter, jerk_mean,
		       missing_topic_count, has_nans,
		       report_json, summary_json, created_at
		FROM quality_reports`
	var args []any
	if dataset != "" {
		query += " WHERE dataset = ?"
		args = append(args, dataset)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func summaryToJSON(s quality.Summary) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*StoredReport, error) {
	var r StoredReport
	var dropRatio, jerkMean sql.NullFloat64
	err := row.Scan(
		&r.ReportID, &r.Dataset, &r.FPS, &r.EpisodesEvaluated,
		&dropRatio, &r.LackOfJitter, &jerkMean,
		&r.MissingTopicCount, &r.HasNaNs,
		&r.ReportJSON, &r.SummaryJSON, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dropRatio.Valid {
		r.FrameDropRatio = &dropRatio.Float64
	}
	if jerkMean.Valid {
		r.JerkMean = &jerkMean.Float64
	}
	return &r, nil
}
