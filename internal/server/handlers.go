package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/catalog"
	"github.com/hyperjump/anveshak/internal/compositor"
	"github.com/hyperjump/anveshak/internal/geometry"
	"github.com/hyperjump/anveshak/internal/indexer"
	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/storage"
	"github.com/hyperjump/anveshak/internal/tiles"
)

// errBadRequest marks request decoding and parameter errors.
var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	yParam := chi.URLParam(r, "y")
	y, errY := strconv.Atoi(strings.TrimSuffix(yParam, path.Ext(yParam)))
	if errZ != nil || errX != nil || errY != nil {
		s.respondError(w, http.StatusBadRequest, "tile coordinates must be integers")
		return
	}
	coord := models.TileCoordinate{
		Dataset:   chi.URLParam(r, "dataset"),
		Footprint: chi.URLParam(r, "footprint"),
		Zoom:      z,
		X:         x,
		Y:         y,
	}
	data, err := s.tiles.Fetch(r.Context(), coord)
	if err != nil {
		s.respondFailure(w, "tile fetch", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type annotationRequest struct {
	ID        string          `json:"id,omitempty"`
	Dataset   string          `json:"dataset"`
	Footprint string          `json:"footprint"`
	Label     string          `json:"label"`
	GeoJSON   json.RawMessage `json:"geojson"`
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	list, err := s.annotations.ListAnnotations(r.Context(), r.URL.Query().Get("dataset"))
	if err != nil {
		s.respondFailure(w, "list annotations", err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" {
		s.respondError(w, http.StatusBadRequest, "dataset is required")
		return
	}
	if _, err := geometry.Parse(req.GeoJSON); err != nil {
		s.respondFailure(w, "create annotation", err)
		return
	}
	a := &models.Annotation{
		ID:        req.ID,
		Dataset:   req.Dataset,
		Footprint: req.Footprint,
		Label:     req.Label,
		GeoJSON:   req.GeoJSON,
	}
	if err := s.annotations.CreateAnnotation(r.Context(), a); err != nil {
		s.respondFailure(w, "create annotation", err)
		return
	}
	s.logger.Debug("annotation created", zap.String("id", a.ID), zap.String("dataset", a.Dataset))
	s.respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	a, err := s.annotations.GetAnnotation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get annotation", err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var upd models.AnnotationUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(upd.GeoJSON) > 0 {
		if _, err := geometry.Parse(upd.GeoJSON); err != nil {
			s.respondFailure(w, "update annotation", err)
			return
		}
	}
	a, err := s.annotations.UpdateAnnotation(r.Context(), chi.URLParam(r, "id"), &upd)
	if err != nil {
		s.respondFailure(w, "update annotation", err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.annotations.DeleteAnnotation(r.Context(), id); err != nil {
		s.respondFailure(w, "delete annotation", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// similarRequest is the body of both similarity endpoints. GeoJSON may be omitted
// when AnnotationID names a stored annotation.
type similarRequest struct {
	AnnotationID string          `json:"annotation_id"`
	Dataset      string          `json:"dataset"`
	Footprint    string          `json:"footprint"`
	GeoJSON      json.RawMessage `json:"geojson"`
	ExcludeZooms []int           `json:"exclude_zooms"`
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	q, err := s.similarityQuery(r)
	if err != nil {
		s.respondFailure(w, "similar", err)
		return
	}
	resp, err := s.engine.FindSimilar(r.Context(), q)
	if err != nil {
		s.respondFailure(w, "similar", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimilarMore(w http.ResponseWriter, r *http.Request) {
	q, err := s.similarityQuery(r)
	if err != nil {
		s.respondFailure(w, "similar more", err)
		return
	}
	resp, err := s.engine.FindSimilarAcrossZooms(r.Context(), q)
	if err != nil {
		s.respondFailure(w, "similar more", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) similarityQuery(r *http.Request) (*models.SimilarityQuery, error) {
	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	topK, err := intParam(r, "top_k")
	if err != nil {
		return nil, err
	}
	zoom, err := optionalIntParam(r, "zoom")
	if err != nil {
		return nil, err
	}

	raw := req.GeoJSON
	if req.AnnotationID != "" {
		a, err := s.annotations.GetAnnotation(r.Context(), req.AnnotationID)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			raw = a.GeoJSON
		}
		if req.Dataset == "" {
			req.Dataset, req.Footprint = a.Dataset, a.Footprint
		}
	}
	geom, err := geometry.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &models.SimilarityQuery{
		Dataset:      req.Dataset,
		Footprint:    req.Footprint,
		Zoom:         zoom,
		TopK:         topK,
		ExcludeZooms: req.ExcludeZooms,
		Geometry:     geom,
	}, nil
}

func (s *Server) handleIndexes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"indexes": s.registry.Status()})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var key models.IndexKey
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if key.Dataset == "" || key.Zoom < 0 {
		s.respondError(w, http.StatusBadRequest, "dataset and a non-negative zoom are required")
		return
	}
	s.logger.Info("index rebuild requested", zap.Stringer("key", key))
	idx, err := s.registry.Rebuild(r.Context(), key)
	if err != nil {
		s.respondFailure(w, "rebuild", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"rows":       idx.Size(),
		"dimensions": idx.Dimensions(),
		"status":     "rebuilt",
	})
}

func (s *Server) handleFootprints(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "footprint catalog not configured")
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		s.respondFailure(w, "footprints", err)
		return
	}
	fps, err := s.catalog.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		s.respondFailure(w, "footprints", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"footprints": fps, "total": len(fps)})
}

func (s *Server) handleFootprint(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "footprint catalog not configured")
		return
	}
	id := chi.URLParam(r, "id")
	fp, err := s.catalog.Get(id)
	if err != nil {
		s.respondFailure(w, "footprint", err)
		return
	}
	zooms, _ := s.catalog.ZoomLevels(id)
	s.respondJSON(w, http.StatusOK, map[string]any{"footprint": fp, "zoom_levels": zooms})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := s.annotations.CountAnnotations(ctx)
	if err != nil {
		s.logger.Error("status: count annotations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := s.registry.Status()
	rows := 0
	for _, st := range status {
		rows += st.Rows
	}
	resp := map[string]any{
		"annotations":     count,
		"indexes":         len(status),
		"indexed_tiles":   rows,
		"builds":          s.registry.Builds(),
		"embedding_backend": s.config.Embedding.Backend,
		"config": map[string]any{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"input_size":           s.config.Embedding.InputSize,
			"high_threshold":       s.config.Search.HighThreshold,
			"low_threshold":        s.config.Search.LowThreshold,
			"canonical_zoom":       s.config.Search.CanonicalZoom,
			"tile_backend":         s.config.Tiles.Backend,
			"index_dir":            s.config.Storage.IndexDir,
		},
	}
	if s.catalog != nil {
		resp["footprints"] = s.catalog.Len()
	}
	if usage, err := storage.MeasureUsage(s.config.Storage.DatabasePath, s.config.Storage.IndexDir); err == nil {
		resp["disk_usage"] = usage
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := optionalIntParam(r, name)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

// optionalIntParam returns nil when the parameter is absent, so 0 stays a usable value.
func optionalIntParam(r *http.Request, name string) (*int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return &n, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrInvalidQuery),
		errors.Is(err, geometry.ErrInvalidGeometry),
		errors.Is(err, compositor.ErrTooManyTiles):
		return http.StatusBadRequest
	case errors.Is(err, compositor.ErrNoCoverage),
		errors.Is(err, indexer.ErrIndexNotFound),
		errors.Is(err, storage.ErrAnnotationNotFound),
		errors.Is(err, catalog.ErrFootprintNotFound),
		errors.Is(err, tiles.ErrTileNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
