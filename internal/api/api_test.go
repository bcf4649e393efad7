package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/models"
	"closing-journal/internal/resilience"
	"closing-journal/internal/store"
	"closing-journal/internal/view"
)

// MockReports implements view.ReportSource for testing
type MockReports struct {
	mock.Mock
}

func (m *MockReports) Fetch(ctx context.Context, bust bool) (*models.Report, error) {
	args := m.Called(ctx, bust)
	rep, _ := args.Get(0).(*models.Report)
	return rep, args.Error(1)
}

var fixedNow = time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T, reports *MockReports, staticDir string) (http.Handler, *journal.Service) {
	t.Helper()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	svc := journal.NewService(kv, zerolog.Nop())
	h := NewAPIHandler(svc, reports, 20, zerolog.Nop(), Options{
		Version:   "test",
		StaticDir: staticDir,
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
	})
	return h.SetupRoutes(), svc
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckAndRequestID(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeaderKey))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "test", body["version"])

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeaderKey, "req-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeaderKey))
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")
	w := doRequest(router, http.MethodOptions, "/api/trades", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCandidateLifecycle(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")

	w := doRequest(router, http.MethodPost, "/api/candidates",
		`{"symbol":"005930","name":"삼성전자","newsTier":"Tier1","pattern":"패턴1","checklist":{"liquidity":true}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cand models.Candidate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cand))
	assert.Equal(t, "2024-05-02", cand.Date)

	w = doRequest(router, http.MethodGet, "/api/candidates?date=2024-05-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	var panel view.TodayPanel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &panel))
	assert.Equal(t, 1, panel.Count)

	w = doRequest(router, http.MethodGet, "/api/candidates/"+cand.ID+"/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(w.Body.String(), "[종가후보] 2024-05-02\n- 종목: 005930 삼성전자"))

	w = doRequest(router, http.MethodPost, "/api/candidates/"+cand.ID+"/promote", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res view.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.TabJournal, res.State.Tab)
	assert.Equal(t, "뉴스:Tier1 / 패턴:패턴1 / 테마:-\n체크:liquidity", res.Draft.Plan)

	w = doRequest(router, http.MethodDelete, "/api/candidates/"+cand.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/candidates/"+cand.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddCandidateValidation(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")

	w := doRequest(router, http.MethodPost, "/api/candidates", `{"symbol":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "종목코드를 입력해주세요")

	w = doRequest(router, http.MethodPost, "/api/candidates", `{"symbol":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/candidates?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTradesAndStats(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")

	w := doRequest(router, http.MethodPost, "/api/trades", `{"symbol":"A","entry":100,"exit":"105","qty":"10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr models.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	require.NotNil(t, tr.PnL)
	assert.InDelta(t, 0.05, *tr.PnL, 1e-12)
	assert.Equal(t, "2024-05-02", tr.Date)

	w = doRequest(router, http.MethodPost, "/api/trades", `{"symbol":"B","entry":"abc","exit":null}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/api/trades", "")
	var panel view.JournalPanel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &panel))
	assert.Equal(t, 2, panel.Count)

	w = doRequest(router, http.MethodGet, "/api/trades/"+tr.ID+"/summary", "")
	assert.Equal(t, "[종가매매 결과] 2024-05-02\n- A \n- 진입:100 / 청산:105 / 수익:5.00%\n- 메모:-", w.Body.String())

	w = doRequest(router, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Stats   journal.Stats     `json:"stats"`
		Display map[string]string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Stats.Count)
	assert.Equal(t, "100.0%", stats.Display["승률"])

	w = doRequest(router, http.MethodDelete, "/api/trades/"+tr.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAutoEndpoints(t *testing.T) {
	reports := &MockReports{}
	rank := 1
	rep := &models.Report{Date: "2024-05-02", Candidates: []models.ReportCandidate{{Code: "005930", Name: "삼성전자", AmountRank: &rank}}}
	reports.On("Fetch", mock.Anything, false).Return(rep, nil)
	reports.On("Fetch", mock.Anything, true).Return(nil, errors.NewReportError("http://x", 500, nil))
	router, svc := setupTestServer(t, reports, "")

	w := doRequest(router, http.MethodGet, "/api/auto", "")
	require.Equal(t, http.StatusOK, w.Code)
	var panel view.AutoPanel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &panel))
	assert.Len(t, panel.Items, 1)

	w = doRequest(router, http.MethodGet, "/api/auto?bust=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &panel))
	assert.Empty(t, panel.Items)
	assert.Contains(t, panel.Error, "HTTP 500")

	w = doRequest(router, http.MethodPost, "/api/auto/005930/save?date=2024-05-03", "")
	require.Equal(t, http.StatusCreated, w.Code)
	items, err := svc.CandidatesForDate(context.Background(), "2024-05-03")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.DefaultPattern, items[0].Pattern)

	w = doRequest(router, http.MethodGet, "/api/auto/005930/summary", "")
	assert.Contains(t, w.Body.String(), "[자동후보] 2024-05-02")

	w = doRequest(router, http.MethodGet, "/api/auto/999999/summary", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatternsHTML(t *testing.T) {
	router, _ := setupTestServer(t, &MockReports{}, "")
	w := doRequest(router, http.MethodGet, "/api/patterns", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h2>패턴 2</h2>")
}

func TestExportImportClear(t *testing.T) {
	router, svc := setupTestServer(t, &MockReports{}, "")
	ctx := context.Background()

	_, err := svc.AddCandidate(ctx, journal.CandidateInput{Date: "2024-05-02", Symbol: "005930"})
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "closing-trade-2024-05-02.json")
	exported := w.Body.String()

	w = doRequest(router, http.MethodPost, "/api/clear", "")
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	w = doRequest(router, http.MethodPost, "/api/clear?confirm=yes", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	items, err := svc.CandidatesForDate(ctx, "2024-05-02")
	require.NoError(t, err)
	assert.Empty(t, items)

	w = doRequest(router, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "가져오기 완료")
	items, err = svc.CandidatesForDate(ctx, "2024-05-02")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	w = doRequest(router, http.MethodPost, "/api/import", `{"trades":[{"symbol":"no id"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/import", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaticAppShell(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	router, _ := setupTestServer(t, &MockReports{}, dir)

	w := doRequest(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shell")

	w = doRequest(router, http.MethodGet, "/missing.js", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportCircuitOpenMapsTo503(t *testing.T) {
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	source := &MockReports{}
	source.On("Fetch", mock.Anything, false).Return(nil, errors.NewReportError("http://x/reports/today.json", 500, nil))
	guarded := resilience.NewGuardedReports(source,
		resilience.CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, zerolog.Nop())

	var logs bytes.Buffer
	h := NewAPIHandler(journal.NewService(kv, zerolog.Nop()), guarded, 20, zerolog.New(&logs), Options{
		Version:  "test",
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	router := h.SetupRoutes()

	w := doRequest(router, http.MethodPost, "/api/auto/005930/save", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auto/005930/summary", nil)
	req.Header.Set(RequestIDHeaderKey, "req-open")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "circuit breaker is open")
	source.AssertNumberOfCalls(t, "Fetch", 1)

	// The error log line carries the request id from the request context.
	assert.Contains(t, logs.String(), `"request_id":"req-open"`)
	assert.Contains(t, logs.String(), "API error")

	w = doRequest(router, http.MethodGet, "/health", "")
	var health struct {
		Circuit resilience.CircuitBreakerStats `json:"report_circuit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, resilience.CircuitOpen, health.Circuit.State)
	assert.Equal(t, int64(1), health.Circuit.TotalRejected)
}
