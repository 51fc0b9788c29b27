// Package api serves the progress snapshot and metrics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/l1jgo/progress/internal/persist"
	"github.com/l1jgo/progress/internal/progress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 500
	reportTimeout      = 3 * time.Second
	healthTimeout      = time.Second
)

// SnapshotSource is satisfied by *progress.Tracker.
type SnapshotSource interface {
	Snapshot() progress.Snapshot
}

// ReportLister is satisfied by *persist.ReportRepo.
type ReportLister interface {
	Recent(ctx context.Context, limit int) ([]persist.LoadReport, error)
}

// Pinger is satisfied by *persist.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the router's collaborators. Only Source is required.
type Deps struct {
	Source   SnapshotSource
	Gatherer prometheus.Gatherer // serves /metrics when set
	Reports  ReportLister        // /reports answers 503 when nil
	DB       Pinger              // checked by /healthz when set
	Log      *zap.Logger
}

type handler struct {
	Deps
}

// NewRouter builds the HTTP surface.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthz)
	r.Get("/progress", h.progress)
	r.Get("/reports", h.listReports)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Log.Warn("health check", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type progressResponse struct {
	progress.Snapshot
	Ratio float64 `json:"ratio"`
}

func (h *handler) progress(w http.ResponseWriter, _ *http.Request) {
	snap := h.Source.Snapshot()
	writeJSON(w, http.StatusOK, progressResponse{Snapshot: snap, Ratio: snap.Visible.Ratio()})
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	if h.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report store disabled")
		return
	}
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()
	reps, err := h.Reports.Recent(ctx, limit)
	if err != nil {
		h.Log.Error("list load reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	out := make([]reportDTO, 0, len(reps))
	for _, rep := range reps {
		out = append(out, toReportDTO(rep))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

type reportDTO struct {
	State       string            `json:"state"`
	Target      string            `json:"target"`
	Visible     progress.Progress `json:"visible"`
	Hidden      progress.Progress `json:"hidden"`
	Entries     int               `json:"entries"`
	Dropped     uint64            `json:"dropped"`
	DurationMs  int64             `json:"duration_ms"`
	CompletedAt time.Time         `json:"completed_at"`
}

func toReportDTO(rep persist.LoadReport) reportDTO {
	return reportDTO{
		State:       rep.State,
		Target:      rep.Target,
		Visible:     progress.Progress{Done: rep.VisibleDone, Total: rep.VisibleTotal},
		Hidden:      progress.Progress{Done: rep.HiddenDone, Total: rep.HiddenTotal},
		Entries:     rep.Entries,
		Dropped:     rep.Dropped,
		DurationMs:  rep.Duration.Milliseconds(),
		CompletedAt: rep.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server runs the router on addr until Shutdown.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(addr string, h http.Handler, log *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start listens in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("http listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
