package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

// PoolService recomputes pools on demand. *aggregator.Aggregator implements it.
type PoolService interface {
	RunPass(ctx context.Context, projects ...string) []types.NormalizedPool
	Protocols() []types.ProtocolConfig
	HasProject(project string) bool
}

// AdaptorInfo is the public view of one registered protocol.
type AdaptorInfo struct {
	Project string `json:"project"`
	Adaptor string `json:"adaptor"`
	Chain   string `json:"chain"`
	URL     string `json:"url"`
}

// WebServer serves freshly computed pools over HTTP
type WebServer struct {
	router    *mux.Router
	handler   http.Handler
	port      string
	pools     PoolService
	gatherer  prometheus.Gatherer
	startedAt time.Time
	logger    zerolog.Logger
}

// NewWebServer creates a new web server instance. A nil gatherer serves the default registry.
func NewWebServer(port string, pools PoolService, gatherer prometheus.Gatherer) *WebServer {
	if port == "" {
		port = "8080"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		pools:     pools,
		gatherer:  gatherer,
		startedAt: time.Now(),
		logger:    logger.GetForComponent("web_server"),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods(http.MethodGet)
	ws.router.Handle("/metrics", promhttp.HandlerFor(ws.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/pools", ws.handleGetPools).Methods(http.MethodGet)
	api.HandleFunc("/pools/{project}", ws.handleGetProjectPools).Methods(http.MethodGet)
	api.HandleFunc("/adaptors", ws.handleGetAdaptors).Methods(http.MethodGet)

	ws.router.Use(ws.loggingMiddleware)

	ws.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(ws.router)
}

// Handler returns the full HTTP handler including CORS.
func (ws *WebServer) Handler() http.Handler {
	return ws.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	ws.logger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a pool request runs a full pass
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		ws.logger.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":     "lendnorm",
			"adaptors": len(ws.pools.Protocols()),
		},
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPools runs a fresh pass over every registered protocol
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.pools.RunPass(r.Context()))
}

// handleGetProjectPools runs a fresh pass over a single protocol
func (ws *WebServer) handleGetProjectPools(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	if !ws.pools.HasProject(project) {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown project: "+project)
		return
	}

	pools := ws.pools.RunPass(r.Context(), project)
	w.Header().Set("X-Pool-Count", strconv.Itoa(len(pools)))
	ws.writeJSONResponse(w, http.StatusOK, pools)
}

// handleGetAdaptors lists the registered protocols
func (ws *WebServer) handleGetAdaptors(w http.ResponseWriter, r *http.Request) {
	protocols := ws.pools.Protocols()
	adaptors := make([]AdaptorInfo, 0, len(protocols))
	for _, p := range protocols {
		adaptors = append(adaptors, AdaptorInfo{Project: p.Project, Adaptor: p.Adaptor, Chain: p.Chain, URL: p.URL})
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"adaptors": adaptors,
		"count":    len(adaptors),
	})
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ws.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
