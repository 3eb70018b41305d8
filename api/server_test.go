package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tern-robotics/episode.report/internal/db"
	"github.com/tern-robotics/episode.report/internal/episode"
)

func testSource() *episode.MemorySource {
	b := episode.NewBuilder()
	order := []string{"timestamp", "qpos", "action", "observation.state"}
	for i := 0; i < 12; i++ {
		t := float64(i) * 33.0
		b.AppendRowOrdered(order, map[string]any{
			"timestamp":         t,
			"qpos":              []float64{t * t, 2 * t},
			"action":            1.0,
			"observation.state": 0.5,
		})
	}
	return &episode.MemorySource{
		Desc: &episode.Schema{
			FPS:           30,
			TotalEpisodes: 1,
			Features:      []string{"timestamp", "qpos", "action", "observation.state"},
		},
		Tables: []*episode.Table{b.Table()},
	}
}

func newTestServer(t *testing.T, open OpenSource) (*Server, *http.ServeMux) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	srv := NewServer(database, open, nil)
	return srv, srv.ServeMux()
}

func openFixed(src episode.Source) OpenSource {
	return func(dataset string) (episode.Source, error) {
		if dataset == "missing" {
			return nil, errors.New("no such dataset")
		}
		return src, nil
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))

	body := `{"dataset": "lab/pick-v1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ReportID)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 1, resp.Report.EpisodesEvaluated)
	assert.Equal(t, 30.0, resp.Report.FPS)
	assert.Empty(t, resp.Report.MissingTopics)
	require.NotNil(t, resp.Report.Jerk.Signal)
	assert.Equal(t, "qpos (list)", *resp.Report.Jerk.Signal)
	assert.Equal(t, 0, resp.Summary.MissingTopicCount)
}

func TestEvaluateStoresReport(t *testing.T) {
	srv, mux := newTestServer(t, openFixed(testSource()))

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": "d"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	stored, err := srv.db.GetReport(resp.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "d", stored.Dataset)
}

func TestEvaluateRejectsGet(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/evaluate", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvaluateRequiresDataset(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset is required")
}

func TestEvaluateBadBody(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": `))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateUnknownDataset(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": "missing"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "open dataset")
}

func TestEvaluateTuningOverrides(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))

	// an absurdly low drop threshold flags every delta as a drop
	body := `{"dataset": "d", "drop_threshold_multiplier": 0.0001}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Report.FrameDropRatio)
	assert.Equal(t, 1.0, *resp.Report.FrameDropRatio)
}

func TestListReportsEndpoint(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))

	// empty store serves an empty array, not null
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	for _, dataset := range []string{"a", "b"} {
		body := `{"dataset": "` + dataset + `"}`
		evalReq := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body))
		evalRec := httptest.NewRecorder()
		mux.ServeHTTP(evalRec, evalReq)
		require.Equal(t, http.StatusOK, evalRec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reports?dataset=a", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []*db.StoredReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "a", reports[0].Dataset)
}

func TestGetReportEndpoint(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))

	evalReq := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": "d"}`))
	evalRec := httptest.NewRecorder()
	mux.ServeHTTP(evalRec, evalReq)
	require.Equal(t, http.StatusOK, evalRec.Code)
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(evalRec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/report?id="+resp.ReportID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored db.StoredReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, resp.ReportID, stored.ReportID)
}

func TestGetReportNotFound(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/report?id=nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReportRequiresID(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeltaChartEndpoint(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/charts/deltas?dataset=d&bins=10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Inter-frame delta distribution")
}

func TestDeltaChartRequiresDataset(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/charts/deltas", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeltaChartRejectsPost(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodPost, "/api/charts/deltas?dataset=d", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeltaChartBadBins(t *testing.T) {
	_, mux := newTestServer(t, openFixed(testSource()))
	req := httptest.NewRequest(http.MethodGet, "/api/charts/deltas?dataset=d&bins=zero", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func writeDataset(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "meta"), 0o755))
	info := `{"fps": 30, "total_episodes": 1, "features": {"timestamp": {}, "action": {}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta", "info.json"), []byte(info), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data", "chunk-000"), 0o755))
	frames := `{"timestamp": 0, "action": [1, 2]}
{"timestamp": 33, "action": [1, 2]}
{"timestamp": 66, "action": [1, 2]}
{"timestamp": 100, "action": [1, 2]}
{"timestamp": 133, "action": [1, 2]}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "chunk-000", "episode_000000.jsonl"), []byte(frames), 0o644))
}

func TestListDatasetsEndpoint(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "pick-v1")
	writeDataset(t, root, "stack-v2")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-dataset"), 0o755))

	srv, mux := newTestServer(t, nil)
	srv.SetDataRoot(root)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var datasets []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &datasets))
	assert.Equal(t, []string{"pick-v1", "stack-v2"}, datasets)
}

func TestListDatasetsWithoutRoot(t *testing.T) {
	_, mux := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateUnderDataRoot(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "pick-v1")

	srv, mux := newTestServer(t, nil)
	srv.SetDataRoot(root)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": "pick-v1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Report.EpisodesEvaluated)
}

func TestEvaluateRejectsEscapingDataset(t *testing.T) {
	root := t.TempDir()
	srv, mux := newTestServer(t, nil)
	srv.SetDataRoot(root)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"dataset": "../outside"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHistogram(t *testing.T) {
	labels, counts := histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	require.Len(t, labels, 5)
	require.Len(t, counts, 5)
	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 10, total)
	// max value lands in the last bin
	assert.Greater(t, counts[4], 0)
}

func TestHistogramConstant(t *testing.T) {
	labels, counts := histogram([]float64{33, 33, 33}, 4)
	require.Len(t, labels, 1)
	assert.Equal(t, []int{3}, counts)
}
