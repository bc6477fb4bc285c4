package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harun/toolbot/internal/metrics"
	"github.com/harun/toolbot/internal/tracing"
	"github.com/harun/toolbot/pkg/agent"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TraceHeader carries a caller supplied trace ID
const TraceHeader = "X-Trace-Id"

var newClientID = func() (string, error) { return gonanoid.New() }

// Server serves the chat API over HTTP and WebSocket
type Server struct {
	options     ServerOptions
	server      *http.Server
	responder   Responder
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
	startTime   time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup

	clients   map[string]*websocket.Conn
	clientsMu sync.Mutex
}

// NewServer creates a new gateway server. m may be nil.
func NewServer(options ServerOptions, responder Responder, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = 1 << 20
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = 10 * time.Second
	}

	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}

	s := &Server{
		options:   options,
		responder: responder,
		metrics:   m,
		logger:    logger,
		startTime: time.Now(),
		clients:   make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if options.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(options.RateLimitPerMinute)
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", options.Host, options.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.instrument("/api/chat", s.guard(s.handleChat)))
	mux.HandleFunc("/api/tools", s.instrument("/api/tools", s.guard(s.handleTools)))
	mux.HandleFunc("/health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("/ws", s.guard(s.handleWebSocket))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Start serves until Stop is called. It returns http.ErrServerClosed without
// listening when Stop has already begun.
func (s *Server) Start() error {
	if s.shuttingDown() {
		return http.ErrServerClosed
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting gateway server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	return nil
}

// Stop gracefully stops the gateway server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	// WebSocket sessions count as in flight until their connection closes.
	s.clientsMu.Lock()
	for _, conn := range s.clients {
		conn.Close()
	}
	s.clientsMu.Unlock()

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown gateway server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}

// guard rejects requests during shutdown or over the rate limit and tracks
// the rest as in flight.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: errShuttingDown})
			return
		}
		s.inFlightReqs.Add(1)
		s.shutdownMu.RUnlock()
		defer s.inFlightReqs.Done()

		if s.rateLimiter != nil {
			ip := s.clientIP(r)
			if !s.rateLimiter.CheckLimit(ip) {
				retryAfter := s.rateLimiter.GetRetryAfter(ip)
				s.logger.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Int("retryAfter", retryAfter).
					Msg("Rate limit exceeded")

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: errTooManyRequests})
				return
			}
		}

		next(w, r)
	}
}

// instrument records request count and latency per route
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, rec.status, time.Since(start))
		}
	}
}

// handleChat answers POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: errMethodNotAllowed})
		return
	}

	ctx := tracing.WithTraceID(r.Context(), tracing.TraceIDFromHeader(r.Header.Get(TraceHeader)))
	logger := tracing.LoggerFromContext(ctx, s.logger)

	var req ChatRequest
	body := http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Failed to decode chat request")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errInvalidMessage})
		return
	}

	status, resp := s.respond(ctx, logger, req)
	w.Header().Set(TraceHeader, tracing.GetTraceID(ctx))
	if resp.Error != "" {
		writeJSON(w, status, ErrorResponse{Error: resp.Error})
		return
	}
	writeJSON(w, status, ChatResponse{Message: resp.Message})
}

// respond runs one turn and maps its error kind to a status code
func (s *Server) respond(ctx context.Context, logger zerolog.Logger, req ChatRequest) (int, ChatResponse) {
	start := time.Now()
	reply, err := s.responder.Respond(ctx, req.Messages)
	if err != nil {
		if agent.IsInvalidInput(err) {
			logger.Warn().Err(err).Msg("Invalid chat request")
			return http.StatusBadRequest, ChatResponse{ID: req.ID, Error: errInvalidMessage}
		}
		logger.Error().Err(err).Msg("Chat turn failed")
		return http.StatusInternalServerError, ChatResponse{ID: req.ID, Error: errInternalServer}
	}

	logger.Info().
		Int("history", len(req.Messages)).
		Int("toolCalls", len(reply.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("Chat turn completed")

	return http.StatusOK, ChatResponse{ID: req.ID, Message: &reply}
}

// handleTools answers GET /api/tools
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: errMethodNotAllowed})
		return
	}
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: ToolInfos(s.responder.Tools())})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: errMethodNotAllowed})
		return
	}

	s.clientsMu.Lock()
	clients := len(s.clients)
	s.clientsMu.Unlock()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Seconds(),
		Tools:     len(s.responder.Tools()),
		Clients:   clients,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleWebSocket upgrades the connection and serves chat frames on it
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(s.options.MaxBodyBytes)

	clientID, err := newClientID()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to generate client ID, using UUID")
		clientID = uuid.NewString()
	}
	s.addClient(clientID, conn)
	defer s.removeClient(clientID)

	s.logger.Info().
		Str("clientId", clientID).
		Str("ip", s.clientIP(r)).
		Msg("Client connected")

	s.handleClient(clientID, conn)
}

// handleClient reads chat frames until the connection closes
func (s *Server) handleClient(clientID string, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.logger.Info().Str("clientId", clientID).Msg("Client disconnected")
	}()

	var limiter *rate.Limiter
	if perSec := s.options.WebSocketMessagesPerSecond; perSec > 0 {
		burst := int(perSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error().Err(err).Str("clientId", clientID).Msg("WebSocket error")
			}
			return
		}

		if limiter != nil && !limiter.Allow() {
			if err := conn.WriteJSON(ChatResponse{Error: errTooManyRequests}); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(s.handleFrame(clientID, message)); err != nil {
			s.logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to write frame")
			return
		}
	}
}

// handleFrame answers one WebSocket chat frame
func (s *Server) handleFrame(clientID string, message []byte) ChatResponse {
	ctx := tracing.NewRequestContext(context.Background())
	ctx = tracing.WithClientID(ctx, clientID)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	var req ChatRequest
	if err := json.Unmarshal(message, &req); err != nil {
		logger.Warn().Err(err).Msg("Failed to decode chat frame")
		return ChatResponse{Error: errInvalidMessage}
	}

	_, resp := s.respond(ctx, logger, req)
	return resp
}

func (s *Server) addClient(id string, conn *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[id] = conn
	s.clientsMu.Unlock()
	if s.metrics != nil {
		s.metrics.WebSocketClients.Inc()
	}
}

func (s *Server) removeClient(id string) {
	s.clientsMu.Lock()
	delete(s.clients, id)
	s.clientsMu.Unlock()
	if s.metrics != nil {
		s.metrics.WebSocketClients.Dec()
	}
}

// clientIP identifies the caller for rate limiting and logs. Forwarding
// headers are only honoured with TrustProxyHeaders, since any client can set
// them.
func (s *Server) clientIP(r *http.Request) string {
	if !s.options.TrustProxyHeaders {
		return remoteHost(r)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
