package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stoik/phish-verdict/internal/application"
	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/feed"
)

const (
	// UserIDHeader opts a scan request into history recording
	UserIDHeader = "X-User-ID"

	maxBodyBytes = 5 << 20
)

// FeedStatus reports the health of the blocklist feed; feed.Cache implements it
type FeedStatus interface {
	Status() feed.Status
}

// Server is the HTTP API surface of the scan service
type Server struct {
	svc    *application.ScanService
	feed   FeedStatus
	router chi.Router
	logger *slog.Logger
}

// NewServer wires the routes; feedStatus may be nil when no feed is configured
func NewServer(svc *application.ScanService, feedStatus FeedStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		svc:    svc,
		feed:   feedStatus,
		router: chi.NewRouter(),
		logger: logger.With("component", "httpapi"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	// Scans
	r.Post("/scan/url", s.handleScanURL)
	r.Post("/scan/email", s.handleScanEmail)
	r.Post("/scan/qr", s.handleScanQR)
	r.Post("/trace", s.handleTrace)

	// History
	r.Post("/history", s.handleCreateHistory)
	r.Get("/history/{userID}", s.handleListHistory)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.feed != nil {
		st := s.feed.Status()
		resp["feed"] = st
		if st.Stale {
			resp["status"] = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ScanURL(r.Context(), r.Header.Get(UserIDHeader), body.URL))
}

func (s *Server) handleScanEmail(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailContext
	if !decodeBody(w, r, &msg) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ScanEmail(r.Context(), r.Header.Get(UserIDHeader), msg))
}

func (s *Server) handleScanQR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ScanQRContent(r.Context(), r.Header.Get(UserIDHeader), body.Content))
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.TraceRedirects(r.Context(), body.URL))
}

func (s *Server) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	var rec domain.ScanRecord
	if !decodeBody(w, r, &rec) {
		return
	}
	if err := s.svc.SaveHistory(r.Context(), &rec); err != nil {
		s.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.svc.ListHistory(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) historyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrHistoryDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Warn("history request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history store unavailable")
	}
}
