package tiles

import (
	"context"
	"sync"

	"github.com/hyperjump/anveshak/internal/models"
)

// MemoryStore keeps encoded tiles in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	tiles map[models.TileCoordinate][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tiles: make(map[models.TileCoordinate][]byte)}
}

// Put stores encoded tile bytes under coord.
func (s *MemoryStore) Put(coord models.TileCoordinate, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[coord] = data
}

// Delete removes a tile.
func (s *MemoryStore) Delete(coord models.TileCoordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tiles, coord)
}

func (s *MemoryStore) Fetch(ctx context.Context, coord models.TileCoordinate) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.tiles[coord]
	if !ok {
		return nil, ErrTileNotFound
	}
	return data, nil
}

func (s *MemoryStore) List(ctx context.Context, dataset, footprint string, zoom int) ([]models.TileCoordinate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var coords []models.TileCoordinate
	for c := range s.tiles {
		if c.Dataset == dataset && c.Footprint == footprint && c.Zoom == zoom {
			coords = append(coords, c)
		}
	}
	sortCoords(coords)
	return coords, nil
}
