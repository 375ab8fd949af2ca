package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/repository"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/service/auth"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/service/recordings"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	auth       auth.Service
	recordings recordings.Service
	hub        *ws.Hub
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	maxUpload  int64
	dbHealth   func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	uploadsTotal       *prometheus.CounterVec
}

const (
	healthCheckTimeout = 2 * time.Second
	memoryParseLimit   = 8 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, recSvc recordings.Service, hub *ws.Hub, limiter RateLimiter, maxUpload int64, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		logger:     logger,
		auth:       authSvc,
		recordings: recSvc,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:   limiter,
		maxUpload: maxUpload,
		dbHealth:  dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/auth/register", r.audit("/auth/register", r.withRateLimit("/auth/register", policyRegister, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", policyLogin, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/recordings", r.audit("/recordings", r.handleRecordings))
	r.mux.HandleFunc("/recordings/", r.audit("/recordings/{id}", r.handlerAuthRate("/recordings/{id}", policyRead, r.handleRecordingSubroutes)))
	r.mux.HandleFunc("/ws/monitor", r.audit("/ws/monitor", r.handlerAuthRate("/ws/monitor", policyMonitor, r.handleMonitorWS)))
	r.mux.Handle("/metrics", promhttp.Handler())
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	admin, err := r.auth.Register(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    admin.ID,
		"email": admin.Email,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	session, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (r *Router) handleRecordings(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.handlerAuthRate("/recordings", policyUpload, r.handleUpload)(w, req)
	case http.MethodGet:
		r.handlerAuthRate("/recordings", policyRead, r.handleListRecordings)(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

// handleUpload accepts the agent's consolidated multipart submission.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) {
	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	}
	if err := req.ParseMultipartForm(memoryParseLimit); err != nil {
		r.recordUpload("rejected")
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = req.MultipartForm.RemoveAll()
	}()

	up := recordings.Upload{
		ParticipantID:  req.FormValue("userId"),
		DurationField:  req.FormValue("duration"),
		DurationSource: req.FormValue("durationSource"),
	}
	if raw := req.FormValue("samples"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &up.Samples); err != nil {
			r.recordUpload("rejected")
			writeError(w, http.StatusBadRequest, "samples field is not valid JSON")
			return
		}
	}
	if raw := req.FormValue("diagnostics"); raw != "" {
		up.Diagnostics = json.RawMessage(raw)
	}
	file, _, err := req.FormFile("video")
	if err != nil {
		r.recordUpload("rejected")
		writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()
	up.Video, err = io.ReadAll(file)
	if err != nil {
		r.recordUpload("rejected")
		writeError(w, http.StatusBadRequest, "could not read video payload")
		return
	}

	echo, err := r.recordings.Ingest(req.Context(), up)
	if err != nil {
		if errors.Is(err, recordings.ErrInvalidUpload) {
			r.recordUpload("rejected")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		r.recordUpload("failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	r.recordUpload("stored")
	writeJSON(w, http.StatusCreated, echo)
}

func (r *Router) handleListRecordings(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	participantID := strings.TrimSpace(req.URL.Query().Get("userId"))
	recs, err := r.recordings.List(req.Context(), participantID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recordingViews(recs))
}

func (r *Router) handleRecordingSubroutes(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/recordings/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1:
		rec, err := r.recordings.Get(req.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				r.notFound(w)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recordingView(rec))
	case len(parts) == 2 && parts[1] == "samples":
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		samples, err := r.recordings.Samples(req.Context(), id, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if samples == nil {
			samples = []domain.SentimentSample{}
		}
		writeJSON(w, http.StatusOK, samples)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleMonitorWS(w http.ResponseWriter, req *http.Request) {
	participantID := strings.TrimSpace(req.URL.Query().Get("userId"))
	if participantID == "" {
		participantID = ws.AllParticipants
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(participantID, client)
	go func() {
		defer func() {
			r.hub.Unregister(participantID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// recordingView shapes a stored recording for researcher dashboards.
func recordingView(rec *domain.Recording) map[string]any {
	return map[string]any{
		"id":             rec.ID,
		"userId":         rec.ParticipantID,
		"duration":       rec.DurationSeconds,
		"durationSource": rec.DurationSource,
		"durationValid":  rec.DurationValid,
		"videoBytes":     rec.VideoBytes,
		"sampleCount":    rec.SampleCount,
		"createdAt":      rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recordingViews(recs []domain.Recording) []map[string]any {
	views := make([]map[string]any, 0, len(recs))
	for i := range recs {
		views = append(views, recordingView(&recs[i]))
	}
	return views
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
