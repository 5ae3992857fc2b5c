package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/metadata"
	"image-compressor-go/internal/statistics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed templates/index.html
var templateFS embed.FS

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	page       *template.Template
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex

	compressor compressor.Compressor
	inspector  metadata.Extractor
	bandwidth  float64

	// Session state
	inFlight int64
	stats    *statistics.Statistics
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer returns a Server using the default compressor and inspector.
func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	c := compressor.NewDefaultCompressor(log,
		compressor.WithBandwidth(cfg.Bandwidth),
		compressor.WithMaxPixels(cfg.Compression.MaxPixels))
	return NewServerWith(cfg, log, c, metadata.NewInspector(log).WithMaxPixels(cfg.Compression.MaxPixels))
}

// NewServerWith returns a Server backed by the given compressor and inspector.
func NewServerWith(cfg *config.Config, log *logrus.Logger, c compressor.Compressor, inspector metadata.Extractor) *Server {
	bandwidth := cfg.Bandwidth
	if bandwidth <= 0 {
		bandwidth = compressor.DefaultBandwidth
	}

	s := &Server{
		cfg:        cfg,
		log:        log,
		router:     mux.NewRouter(),
		page:       template.Must(template.ParseFS(templateFS, "templates/index.html")),
		wsClients:  make(map[*websocket.Conn]bool),
		compressor: c,
		inspector:  inspector,
		bandwidth:  bandwidth,
		stats:      statistics.NewStatistics(),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}
	s.stats.StartTime = time.Now()

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID)

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/limits", s.handleLimits).Methods("GET")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/download", s.handleDownload).Methods("POST")
	api.HandleFunc("/inspect", s.handleInspect).Methods("POST")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.cfg.Server.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Main page
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Statistics returns the session counters.
func (s *Server) Statistics() *statistics.Statistics {
	return s.stats
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	readTimeout := time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: 2 * readTimeout,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.wsMutex.Lock()
	for conn := range s.wsClients {
		conn.Close()
		delete(s.wsClients, conn)
	}
	s.wsMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// requestID tags every request with an id, echoed in X-Request-ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := logger.ContextWithRequest(r.Context(), id, r.URL.Path)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.FromContext(ctx, s.log).
			WithField("method", r.Method).
			WithField("duration", time.Since(start).String()).
			Debug("Request handled")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, s.limits()); err != nil {
		s.log.Errorf("Failed to render index page: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	active := atomic.LoadInt64(&s.inFlight)

	s.wsMutex.Lock()
	clients := len(s.wsClients)
	s.wsMutex.Unlock()

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":           active > 0,
			"active_requests":   active,
			"websocket_clients": clients,
			"statistics":        s.stats.Snapshot(),
		},
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary": s.stats.GetSummary(),
			"files": map[string]interface{}{
				"total_found":     snap.FilesFound,
				"total_processed": snap.FilesProcessed,
				"compressed":      snap.FilesCompressed,
				"static":          snap.StaticImages,
				"animated":        snap.AnimatedImages,
				"errors":          snap.FilesWithErrors,
			},
			"bytes": map[string]interface{}{
				"in":            snap.BytesIn,
				"out":           snap.BytesOut,
				"saved_percent": snap.SavedPercent,
			},
			"file_types": snap.FileTypes,
			"errors":     s.stats.GetErrorSummary(),
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeErrorCode(w, message, "", statusCode)
}

func (s *Server) writeErrorCode(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
