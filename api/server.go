package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tern-robotics/episode.report/internal/config"
	"github.com/tern-robotics/episode.report/internal/db"
	"github.com/tern-robotics/episode.report/internal/episode"
	"github.com/tern-robotics/episode.report/internal/quality"
	"github.com/tern-robotics/episode.report/internal/security"
	"github.com/tern-robotics/episode.report/internal/version"
)

// OpenSource locates an episode source for a dataset label. The default
// implementation treats the label as a dataset directory path; tests swap in
// fakes.
type OpenSource func(dataset string) (episode.Source, error)

// Server exposes evaluation runs and stored reports over HTTP.
type Server struct {
	db       *db.DB
	open     OpenSource
	tuning   *config.TuningConfig
	dataRoot string
}

// NewServer builds the API server. A nil open falls back to directory-backed
// datasets; a nil tuning runs with engine defaults.
func NewServer(database *db.DB, open OpenSource, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = &config.TuningConfig{}
	}
	return &Server{db: database, open: open, tuning: tuning}
}

// SetDataRoot confines dataset labels to subdirectories of root and enables
// dataset discovery on /api/datasets. Without a root, labels are treated as
// raw directory paths.
func (s *Server) SetDataRoot(root string) {
	s.dataRoot = root
}

func (s *Server) openDataset(dataset string) (episode.Source, error) {
	if s.open != nil {
		return s.open(dataset)
	}
	path := dataset
	if s.dataRoot != "" {
		path = filepath.Join(s.dataRoot, filepath.FromSlash(dataset))
		if err := security.ValidatePathWithinDirectory(path, s.dataRoot); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", dataset, err)
		}
	}
	return episode.NewDirSource(path)
}

// ServeMux routes the API surface.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/evaluate", s.handleEvaluate)
	mux.HandleFunc("/api/reports", s.handleListReports)
	mux.HandleFunc("/api/report", s.handleGetReport)
	mux.HandleFunc("/api/datasets", s.handleListDatasets)
	mux.HandleFunc("/api/charts/deltas", s.handleDeltaChart)
	mux.HandleFunc("/", s.handleHome)
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Episode Quality Server %s\n", version.String())
}

// handleListDatasets reports the dataset directories under the data root,
// recognized by the presence of a meta/info.json descriptor.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.dataRoot == "" {
		s.writeJSONError(w, http.StatusBadRequest, "no data root configured")
		return
	}
	entries, err := os.ReadDir(s.dataRoot)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("read data root: %v", err))
		return
	}
	datasets := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		descriptor := filepath.Join(s.dataRoot, e.Name(), "meta", "info.json")
		if _, err := os.Stat(descriptor); err == nil {
			datasets = append(datasets, e.Name())
		}
	}
	s.writeJSON(w, http.StatusOK, datasets)
}

// evaluateRequest is the POST /api/evaluate body. Tuning fields override the
// server's startup tuning for this run only.
type evaluateRequest struct {
	Dataset string `json:"dataset"`
	config.TuningConfig
}

type evaluateResponse struct {
	ReportID string          `json:"report_id"`
	Report   *quality.Report `json:"report"`
	Summary  quality.Summary `json:"summary"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.Dataset == "" {
		s.writeJSONError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	report, err := s.runEvaluation(r.Context(), req.Dataset, &req.TuningConfig)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.db.InsertReport(req.Dataset, report)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("store report: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, evaluateResponse{
		ReportID: id,
		Report:   report,
		Summary:  report.Summary(),
	})
}

func (s *Server) runEvaluation(ctx context.Context, dataset string, overrides *config.TuningConfig) (*quality.Report, error) {
	src, err := s.openDataset(dataset)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	opts := s.tuning.Merge(overrides).Options()
	return quality.NewEvaluator(src, opts).Evaluate(ctx)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reports, err := s.db.ListReports(r.URL.Query().Get("dataset"), 100)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list reports: %v", err))
		return
	}
	if reports == nil {
		reports = []*db.StoredReport{}
	}
	s.writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "id is required")
		return
	}
	stored, err := s.db.GetReport(id)
	if errors.Is(err, sql.ErrNoRows) {
		s.writeJSONError(w, http.StatusNotFound, "no such report")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get report: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
