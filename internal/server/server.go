// Package server provides the HTTP API for Anveshak.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/catalog"
	"github.com/hyperjump/anveshak/internal/config"
	"github.com/hyperjump/anveshak/internal/indexer"
	"github.com/hyperjump/anveshak/internal/search"
	"github.com/hyperjump/anveshak/internal/storage"
	"github.com/hyperjump/anveshak/internal/tiles"
	"github.com/hyperjump/anveshak/pkg/utils"
)

// Server is the HTTP server for the Anveshak API.
type Server struct {
	engine      *search.Engine
	registry    *indexer.Registry
	tiles       tiles.Store
	annotations storage.AnnotationStore
	catalog     *catalog.Catalog
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies. The catalog may be nil,
// in which case the footprint endpoints answer 501.
func NewServer(
	engine *search.Engine,
	registry *indexer.Registry,
	tileStore tiles.Store,
	annotations storage.AnnotationStore,
	cat *catalog.Catalog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:      engine,
		registry:    registry,
		tiles:       tileStore,
		annotations: annotations,
		catalog:     cat,
		config:      cfg,
		logger:      utils.OrNop(logger),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/tiles/{dataset}/{footprint}/{z}/{x}/{y}", s.handleTile)
	r.Get("/tiles/{dataset}/{z}/{x}/{y}", s.handleTile)

	r.Route("/annotations", func(r chi.Router) {
		r.Get("/", s.handleListAnnotations)
		r.Post("/", s.handleCreateAnnotation)
		r.Post("/similar", s.handleSimilar)
		r.Post("/similar/more", s.handleSimilarMore)
		r.Get("/{id}", s.handleGetAnnotation)
		r.Put("/{id}", s.handleUpdateAnnotation)
		r.Delete("/{id}", s.handleDeleteAnnotation)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/status", s.handleStatus)
		r.Get("/indexes", s.handleIndexes)
		r.Post("/indexes/rebuild", s.handleRebuild)
		r.Get("/footprints", s.handleFootprints)
		r.Get("/footprints/{id}", s.handleFootprint)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
