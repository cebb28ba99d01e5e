package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "opspulse/internal/errors"
	"opspulse/internal/scanner"
)

type fakeScanService struct {
	running    bool
	last       *scanner.ScanSummary
	runErr     error
	dateErr    error
	dateResult *scanner.DateResult

	scanStarted chan bool // receives onlyNew from RunScan
	datesRun    []time.Time
}

func newFakeScanService() *fakeScanService {
	return &fakeScanService{scanStarted: make(chan bool, 1)}
}

func (f *fakeScanService) RunScan(_ context.Context, onlyNew bool) (*scanner.ScanSummary, error) {
	f.scanStarted <- onlyNew
	return &scanner.ScanSummary{OnlyNew: onlyNew}, f.runErr
}

func (f *fakeScanService) RunForDate(_ context.Context, date time.Time) (*scanner.DateResult, error) {
	f.datesRun = append(f.datesRun, date)
	if f.dateErr != nil {
		return nil, f.dateErr
	}
	if f.dateResult != nil {
		return f.dateResult, nil
	}
	return &scanner.DateResult{Date: date, Stage: scanner.StageComplete}, nil
}

func (f *fakeScanService) Running() bool { return f.running }

func (f *fakeScanService) LastSummary() *scanner.ScanSummary { return f.last }

func newTestHandler(service ScanService) *ScanHandler {
	return NewScanHandler(service, nil, 100, 100)
}

func TestTriggerScan(t *testing.T) {
	service := newFakeScanService()
	handler := newTestHandler(service)

	body := bytes.NewBufferString(`{"only_new": true}`)
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case onlyNew := <-service.scanStarted:
		assert.True(t, onlyNew)
	case <-time.After(time.Second):
		t.Fatal("scan was never started")
	}

	var resp scanAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan started", resp.Status)
	assert.True(t, resp.OnlyNew)
}

func TestTriggerScanEmptyBodyDefaultsToFull(t *testing.T) {
	service := newFakeScanService()
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case onlyNew := <-service.scanStarted:
		assert.False(t, onlyNew)
	case <-time.After(time.Second):
		t.Fatal("scan was never started")
	}
}

func TestTriggerScanConflictWhenRunning(t *testing.T) {
	service := newFakeScanService()
	service.running = true
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerScanMalformedBody(t *testing.T) {
	service := newFakeScanService()
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerScanRateLimited(t *testing.T) {
	service := newFakeScanService()
	service.scanStarted = make(chan bool, 10)
	handler := NewScanHandler(service, nil, 0.001, 1)

	router := handler.Routes()
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/scan", nil))
	assert.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/scan", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestTriggerDate(t *testing.T) {
	service := newFakeScanService()
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan/2025-06-09", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, service.datesRun, 1)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), service.datesRun[0])

	var result scanner.DateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, scanner.StageComplete, result.Stage)
}

func TestTriggerDateInvalidDate(t *testing.T) {
	service := newFakeScanService()
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan/20250609", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, service.datesRun)
}

func TestTriggerDateArchiveMissing(t *testing.T) {
	service := newFakeScanService()
	service.dateErr = fmt.Errorf("%w: no archive for 20250609", apierrors.ErrArchiveNotFound)
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan/2025-06-09", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerDateScanInProgress(t *testing.T) {
	service := newFakeScanService()
	service.dateErr = apierrors.NewAppValidationError("a scan is already running")
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan/2025-06-09", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerDateInternalError(t *testing.T) {
	service := newFakeScanService()
	service.dateErr = fmt.Errorf("disk full")
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/scan/2025-06-09", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatus(t *testing.T) {
	service := newFakeScanService()
	service.running = true
	service.last = &scanner.ScanSummary{RunID: "run-1", Processed: 3}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/scan/status", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Running  bool                 `json:"running"`
		LastScan *scanner.ScanSummary `json:"last_scan"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Running)
	require.NotNil(t, resp.LastScan)
	assert.Equal(t, "run-1", resp.LastScan.RunID)
	assert.Equal(t, 3, resp.LastScan.Processed)
}
