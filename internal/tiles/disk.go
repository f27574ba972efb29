package tiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/anveshak/internal/models"
)

// DiskStore serves tiles from a directory tree laid out as
// root/dataset[/footprint]/z/x/y.ext.
type DiskStore struct {
	root       string
	extensions []string
}

// NewDiskStore returns a store rooted at root. Extensions are probed in order; nil uses DefaultExtensions.
func NewDiskStore(root string, extensions []string) *DiskStore {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.TrimPrefix(strings.ToLower(e), ".")
	}
	return &DiskStore{root: root, extensions: exts}
}

// Root returns the directory the store reads from.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) zoomDir(dataset, footprint string, zoom int) string {
	parts := []string{s.root, dataset}
	if footprint != "" {
		parts = append(parts, footprint)
	}
	parts = append(parts, strconv.Itoa(zoom))
	return filepath.Join(parts...)
}

// Fetch reads the first existing file for coord among the configured extensions.
func (s *DiskStore) Fetch(ctx context.Context, coord models.TileCoordinate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !safeSegment(coord.Dataset) || (coord.Footprint != "" && !safeSegment(coord.Footprint)) {
		return nil, ErrTileNotFound
	}
	base := filepath.Join(s.zoomDir(coord.Dataset, coord.Footprint, coord.Zoom), strconv.Itoa(coord.X), strconv.Itoa(coord.Y))
	for _, ext := range s.extensions {
		data, err := os.ReadFile(base + "." + ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read tile %s: %w", coord, err)
		}
	}
	return nil, ErrTileNotFound
}

// List walks z/x/y.ext under the zoom directory. A missing directory yields an empty list.
func (s *DiskStore) List(ctx context.Context, dataset, footprint string, zoom int) ([]models.TileCoordinate, error) {
	dir := s.zoomDir(dataset, footprint, zoom)
	xDirs, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	seen := make(map[models.TileCoordinate]struct{})
	var coords []models.TileCoordinate
	for _, xd := range xDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !xd.IsDir() {
			continue
		}
		x, err := strconv.Atoi(xd.Name())
		if err != nil {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(dir, xd.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", xd.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			y, ok := s.parseTileName(e.Name())
			if !ok {
				continue
			}
			c := models.TileCoordinate{Dataset: dataset, Footprint: footprint, Zoom: zoom, X: x, Y: y}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			coords = append(coords, c)
		}
	}
	sortCoords(coords)
	return coords, nil
}

func (s *DiskStore) parseTileName(name string) (int, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !s.knownExt(ext) {
		return 0, false
	}
	y, err := strconv.Atoi(strings.TrimSuffix(name, filepath.Ext(name)))
	if err != nil {
		return 0, false
	}
	return y, true
}

func (s *DiskStore) knownExt(ext string) bool {
	for _, e := range s.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// KeyForPath resolves a tile file path under the root to its coordinate.
// Both root/dataset/z/x/y.ext and root/dataset/footprint/z/x/y.ext are recognised.
func (s *DiskStore) KeyForPath(path string) (models.TileCoordinate, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return models.TileCoordinate{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	var c models.TileCoordinate
	switch len(parts) {
	case 4:
		c.Dataset = parts[0]
		parts = parts[1:]
	case 5:
		c.Dataset, c.Footprint = parts[0], parts[1]
		parts = parts[2:]
	default:
		return models.TileCoordinate{}, false
	}
	z, errZ := strconv.Atoi(parts[0])
	x, errX := strconv.Atoi(parts[1])
	y, ok := s.parseTileName(parts[2])
	if errZ != nil || errX != nil || !ok {
		return models.TileCoordinate{}, false
	}
	c.Zoom, c.X, c.Y = z, x, y
	return c, true
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
