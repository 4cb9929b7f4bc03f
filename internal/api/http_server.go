package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"frontdesk/internal/backend"
	"frontdesk/internal/config"
	"frontdesk/internal/domain"
	"frontdesk/internal/export"
	"frontdesk/internal/metrics"
	"frontdesk/internal/outbox"
	"frontdesk/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the merged view and front-desk actions to the local
// dashboard UI.
type HTTPServer struct {
	cfg       config.APIConfig
	desk      domain.DeskService
	monitor   domain.ConnectivityMonitor
	logger    *zerolog.Logger
	server    *http.Server
	auth      *HTTPAuth
	exportDir string
}

func NewHTTPServer(cfg config.APIConfig, exportDir string, desk domain.DeskService, monitor domain.ConnectivityMonitor, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, desk: desk, monitor: monitor, logger: logger, exportDir: exportDir}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/view", srv.handleView)
	mux.HandleFunc("/api/v1/checkin", srv.handleCheckin)
	mux.HandleFunc("/api/v1/checkout", srv.handleCheckout)
	mux.HandleFunc("/api/v1/cancel", srv.handleCancel)
	mux.HandleFunc("/api/v1/hotels", srv.handleHotels)
	mux.HandleFunc("/api/v1/hotels/", srv.handleHotel)
	mux.HandleFunc("/api/v1/status", srv.handleStatus)
	mux.HandleFunc("/api/v1/connectivity", srv.handleConnectivity)
	mux.HandleFunc("/api/v1/export", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleView returns the merged view for a hotel/day, switching the active
// scope when the query names a different one.
func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("view")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hotelID := strings.TrimSpace(r.URL.Query().Get("hotel_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if hotelID == "" {
		writeError(w, http.StatusBadRequest, "hotel_id is required")
		return
	}

	status := s.desk.Status()
	if status.Scope.HotelID != hotelID || (date != "" && status.Scope.Date != date) {
		if err := s.desk.SetScope(r.Context(), hotelID, date); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	scope, view, degraded := s.desk.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"scope":    scope,
		"bookings": view,
		"degraded": degraded,
	})
}

func (s *HTTPServer) handleCheckin(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkin")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID  string `json:"booking_id"`
		RoomNumber int    `json:"room_number"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.desk.Checkin(r.Context(), body.BookingID, body.RoomNumber); err != nil {
		s.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkout")
	s.handleOnlineAction(w, r, s.desk.Checkout)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")
	s.handleOnlineAction(w, r, s.desk.Cancel)
}

func (s *HTTPServer) handleOnlineAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BookingID string `json:"booking_id"`
	}
	if err := decodeBody(r, &body); err != nil || body.BookingID == "" {
		writeError(w, http.StatusBadRequest, "booking_id is required")
		return
	}

	if err := action(r.Context(), body.BookingID); err != nil {
		s.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleHotels(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("hotels")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hotels, err := s.desk.ListHotels(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotels": hotels})
}

func (s *HTTPServer) handleHotel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("hotel")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hotelID := strings.TrimPrefix(r.URL.Path, "/api/v1/hotels/")
	if hotelID == "" || strings.Contains(hotelID, "/") {
		writeError(w, http.StatusBadRequest, "hotel id is required")
		return
	}

	hotel, err := s.desk.GetHotel(r.Context(), hotelID)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.desk.Status())
}

// handleConnectivity receives host-level network edge notifications from the
// terminal environment.
func (s *HTTPServer) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("connectivity")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Offline bool `json:"offline"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.Offline {
		s.monitor.ReportHostDown()
	} else {
		s.monitor.ReportHostUp()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scope, view, _ := s.desk.View()
	if scope.HotelID == "" {
		writeError(w, http.StatusBadRequest, "no active scope to export")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDaySheet(&buf, scope, view); err != nil {
		s.logger.Error().Err(err).Msg("write day sheet")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	fileName := fmt.Sprintf("day_sheet_%s_%s.xlsx", scope.HotelID, scope.Date)
	s.dropExportCopy(fileName, buf.Bytes())

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error().Err(err).Msg("stream day sheet")
	}
}

// dropExportCopy keeps a printable copy on disk so the sheet survives the
// browser session during long outages. Best effort.
func (s *HTTPServer) dropExportCopy(fileName string, data []byte) {
	if s.exportDir == "" {
		return
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		s.logger.Error().Err(err).Str("dir", s.exportDir).Msg("create exports directory")
		return
	}
	path := filepath.Join(s.exportDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("write day sheet copy")
		return
	}
	s.logger.Info().Str("path", path).Msg("day sheet saved")
}

func (s *HTTPServer) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOfflineUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, outbox.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case backend.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case backend.IsNetworkError(err), backend.IsServerError(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HTTPAuth provides API-key auth and per-key rate limiting.
type HTTPAuth struct {
	cfg      config.APIConfig
	keys     map[string]bool
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	keys := make(map[string]bool, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		keys[k] = true
	}
	return &HTTPAuth{cfg: cfg, keys: keys}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	for key := range a.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return nil
		}
	}
	return fmt.Errorf("invalid api key")
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	lim := a.getLimiter(a.clientKey(r))
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
