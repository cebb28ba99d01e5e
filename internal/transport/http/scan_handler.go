// Package http is the thin trigger surface over the scan scheduler. It
// exposes the three pipeline entry points (full scan, only-new scan, and
// run-for-date) plus status and health; all pipeline behavior lives behind
// the scheduler contract.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	apierrors "opspulse/internal/errors"
	"opspulse/internal/scanner"
	"opspulse/pkg/contracts/domain"
)

// ScanService is the scheduler contract the handlers call.
type ScanService interface {
	RunScan(ctx context.Context, onlyNew bool) (*scanner.ScanSummary, error)
	RunForDate(ctx context.Context, date time.Time) (*scanner.DateResult, error)
	Running() bool
	LastSummary() *scanner.ScanSummary
}

// ScanHandler handles pipeline trigger requests.
type ScanHandler struct {
	service ScanService
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewScanHandler creates a scan handler with a rate limiter guarding the
// manual trigger endpoints.
func NewScanHandler(service ScanService, logger *slog.Logger, rps float64, burst int) *ScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "scan")),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Routes mounts the trigger surface.
func (h *ScanHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/scan", h.TriggerScan)
	r.Post("/scan/{date}", h.TriggerDate)
	r.Get("/scan/status", h.Status)
	return r
}

type scanRequest struct {
	OnlyNew bool `json:"only_new"`
}

type scanAccepted struct {
	Status  string `json:"status"`
	OnlyNew bool   `json:"only_new"`
}

// TriggerScan handles POST /api/v1/scan. The scan runs in the background;
// 409 when one is already in flight.
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrRateLimitExceeded))
		return
	}

	var req scanRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
			return
		}
	}

	if h.service.Running() {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrScanInProgress))
		return
	}

	// Detach from the request context: the scan outlives the HTTP exchange.
	go func() {
		if _, err := h.service.RunScan(context.Background(), req.OnlyNew); err != nil {
			h.logger.Error("triggered scan failed", slog.String("error", err.Error()))
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, scanAccepted{Status: "scan started", OnlyNew: req.OnlyNew})
}

// TriggerDate handles POST /api/v1/scan/{date} with date in YYYY-MM-DD. Runs
// synchronously: operational tooling wants the result of the one date it
// asked for.
func (h *ScanHandler) TriggerDate(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrRateLimitExceeded))
		return
	}

	date, err := time.ParseInLocation(domain.DateFormat, chi.URLParam(r, "date"), time.UTC)
	if err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInvalidDate))
		return
	}

	result, err := h.service.RunForDate(r.Context(), date)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "run for date failed",
			slog.String("date", date.Format(domain.DateFormat)),
			slog.String("error", err.Error()))

		switch {
		case apierrors.IsType(err, apierrors.ErrTypeValidation):
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrScanInProgress))
		case isNotFound(err):
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrArchiveMissing))
		default:
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrScanExecution(err)))
		}
		return
	}

	render.JSON(w, r, result)
}

// Status handles GET /api/v1/scan/status.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"running":   h.service.Running(),
		"last_scan": h.service.LastSummary(),
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, apierrors.ErrArchiveNotFound)
}
