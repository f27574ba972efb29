// Package catalog loads the footprint catalog and answers lookups and title searches over it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/blevesearch/bleve/v2"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/pkg/utils"
)

// Zoom levels outside this range are dropped on load.
const (
	MinZoom = 6
	MaxZoom = 13
)

// ErrFootprintNotFound is returned when no footprint has the requested ID.
var ErrFootprintNotFound = errors.New("footprint not found")

// Catalog holds footprints in file order plus a title search index.
type Catalog struct {
	mu         sync.RWMutex
	footprints []*models.Footprint
	byID       map[string]*models.Footprint
	index      bleve.Index
	logger     *zap.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.logger = utils.OrNop(l) }
}

// Load reads a footprint JSON array from path.
func Load(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var fps []models.Footprint
	if err := json.Unmarshal(data, &fps); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(fps, opts...)
}

// New builds a catalog from already decoded footprints. Entries without an ID
// are skipped; a repeated ID keeps the first entry.
func New(fps []models.Footprint, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]*models.Footprint, len(fps)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	idx, err := newTitleIndex()
	if err != nil {
		return nil, err
	}
	c.index = idx

	batch := idx.NewBatch()
	for i := range fps {
		fp := fps[i]
		if fp.ID == "" {
			c.logger.Warn("skipping footprint without id", zap.String("title", fp.Title))
			continue
		}
		if _, dup := c.byID[fp.ID]; dup {
			c.logger.Warn("duplicate footprint id", zap.String("id", fp.ID))
			continue
		}
		fp.DownloadInfo.TilesPerZoom = filterZooms(fp.DownloadInfo.TilesPerZoom)
		c.footprints = append(c.footprints, &fp)
		c.byID[fp.ID] = &fp
		if err := batch.Index(fp.ID, titleDoc{ID: fp.ID, Title: fp.Title}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index footprint %s: %w", fp.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index footprints: %w", err)
	}
	c.logger.Info("footprint catalog loaded", zap.Int("footprints", len(c.footprints)))
	return c, nil
}

// Get returns the footprint with the given ID.
func (c *Catalog) Get(id string) (*models.Footprint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFootprintNotFound, id)
	}
	return fp, nil
}

// List returns every footprint in catalog order.
func (c *Catalog) List() []*models.Footprint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.footprints)
}

// Len returns the number of footprints.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.footprints)
}

// ZoomLevels returns the ascending zoom levels with tiles for a footprint.
func (c *Catalog) ZoomLevels(id string) ([]int, error) {
	fp, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	zooms := make([]int, 0, len(fp.DownloadInfo.TilesPerZoom))
	for k, zt := range fp.DownloadInfo.TilesPerZoom {
		z, err := strconv.Atoi(k)
		if err != nil || zt.Count == 0 {
			continue
		}
		zooms = append(zooms, z)
	}
	slices.Sort(zooms)
	return zooms, nil
}

// Close releases the search index.
func (c *Catalog) Close() error {
	return c.index.Close()
}

func filterZooms(in map[string]models.ZoomTiles) map[string]models.ZoomTiles {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]models.ZoomTiles, len(in))
	for k, v := range in {
		z, err := strconv.Atoi(k)
		if err != nil || z < MinZoom || z > MaxZoom {
			continue
		}
		out[k] = v
	}
	return out
}
