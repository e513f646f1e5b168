package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// HTTPLogger provides leveled logging for the HTTP adapter
type HTTPLogger struct {
	component string
	verbose   bool
	level     entities.LogLevel
}

// NewHTTPLogger creates a new HTTP logger instance
func NewHTTPLogger(component string, verbose bool) *HTTPLogger {
	return &HTTPLogger{
		component: component,
		verbose:   verbose,
		level:     entities.LogLevelInfo,
	}
}

// NewHTTPLoggerWithLevel creates a new HTTP logger instance with a specific level
func NewHTTPLoggerWithLevel(component string, verbose bool, level entities.LogLevel) *HTTPLogger {
	return &HTTPLogger{
		component: component,
		verbose:   verbose,
		level:     level,
	}
}

// shouldLog checks if the message should be logged based on level
func (l *HTTPLogger) shouldLog(msgLevel entities.LogLevel) bool {
	levelMap := map[entities.LogLevel]int{
		entities.LogLevelDebug: 0,
		entities.LogLevelInfo:  1,
		entities.LogLevelWarn:  2,
		entities.LogLevelError: 3,
	}
	return levelMap[msgLevel] >= levelMap[l.level]
}

// Debug logs debug messages
func (l *HTTPLogger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(entities.LogLevelDebug) {
		log.Printf("[DEBUG] [%s] "+msg, append([]interface{}{l.component}, args...)...)
	}
}

// Info logs informational messages
func (l *HTTPLogger) Info(msg string, args ...interface{}) {
	if l.shouldLog(entities.LogLevelInfo) {
		log.Printf("[INFO] [%s] "+msg, append([]interface{}{l.component}, args...)...)
	}
}

// Warn logs warning messages
func (l *HTTPLogger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(entities.LogLevelWarn) {
		log.Printf("[WARN] [%s] "+msg, append([]interface{}{l.component}, args...)...)
	}
}

// Error logs error messages
func (l *HTTPLogger) Error(msg string, args ...interface{}) {
	if l.shouldLog(entities.LogLevelError) {
		log.Printf("[ERROR] [%s] "+msg, append([]interface{}{l.component}, args...)...)
	}
}

// Server is the thin HTTP surface over the site lifecycle services: request
// validation and translation only, no orchestration logic of its own.
type Server struct {
	server  *http.Server
	router  *mux.Router
	connMgr *ConnectionManager
	sites   ports.SiteService
	builder ports.BuildService
	preview ports.PreviewService
	config  *entities.ServerConfig
	logger  *HTTPLogger
	mu      sync.RWMutex
	running bool
}

// NewServer creates a new HTTP server.
// config must not be nil - use the config loader's defaults if needed.
func NewServer(
	sites ports.SiteService,
	builder ports.BuildService,
	preview ports.PreviewService,
	connMgr *ConnectionManager,
	config *entities.ServerConfig,
	logger *HTTPLogger,
) *Server {
	if config == nil {
		panic("server config is required")
	}
	if logger == nil {
		logger = NewHTTPLogger("server", false)
	}

	s := &Server{
		connMgr: connMgr,
		sites:   sites,
		builder: builder,
		preview: preview,
		config:  config,
		logger:  logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter wires all routes and middleware
func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/sites", s.handleCreateSite).Methods(http.MethodPost)
	api.HandleFunc("/sites", s.handleListSites).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}", s.handleGetSite).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}", s.handleDeleteSite).Methods(http.MethodDelete)
	api.HandleFunc("/sites/{id}/build", s.handleBuildSite).Methods(http.MethodPost)
	api.HandleFunc("/sites/{id}/serve", s.handleServeSite).Methods(http.MethodPost)
	api.HandleFunc("/sites/{id}/stop", s.handleStopSite).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket)

	return r
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := createLoggingMiddleware(s.router, s.logger)
	handler = recoveryMiddleware(handler, s.logger)
	return c.Handler(handler)
}

// Start begins serving on the configured host and port
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("listening on http://%s", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	s.connMgr.CloseAll()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// IsRunning reports whether the server is accepting requests
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
