package api

import (
	"context"
	stdsql "database/sql"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/secretmask/pkg/config"
	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

// Masker masks a single in-memory document.
type Masker interface {
	MaskDocument(data []byte) ([]byte, *masking.Report, error)
}

// RunReader exposes recorded batch runs.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*database.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*database.RunRecord, error)
}

// Server is the HTTP front end of the masking engine.
type Server struct {
	cfg        *config.ServerConfig
	masker     Masker
	db         *stdsql.DB
	runs       RunReader
	engine     *gin.Engine
	httpServer *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithDatabase enables the database health check and the run history
// endpoints backed by db.
func WithDatabase(db *stdsql.DB) Option {
	return func(s *Server) {
		s.db = db
		s.runs = database.NewRunStore(db)
	}
}

// WithRunReader overrides the run history source.
func WithRunReader(runs RunReader) Option {
	return func(s *Server) { s.runs = runs }
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.ServerConfig, masker Masker, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		masker: masker,
		engine: gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery(), requestLogger(), securityHeaders())
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.POST("/mask", s.maskHandler)
	if s.runs != nil {
		v1.GET("/runs", s.listRunsHandler)
		v1.GET("/runs/:id", s.getRunHandler)
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP on addr and blocks until the server stops.
// Returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve serves HTTP on listener and blocks until the server stops.
func (s *Server) Serve(listener net.Listener) error {
	return s.httpServer.Serve(listener)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
