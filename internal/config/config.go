// Package config provides configuration loading and structs for the anveshak server and CLI.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Tiles     TilesConfig     `yaml:"tiles"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the annotation database, index artifacts, and footprint catalog.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
	CatalogPath  string `yaml:"catalog_path"`
}

// TilesConfig selects and configures the tile store.
type TilesConfig struct {
	Backend    string      `yaml:"backend"` // "disk" or "minio"
	Root       string      `yaml:"root"`
	Extensions []string    `yaml:"extensions"`
	Minio      MinioConfig `yaml:"minio"`
}

// MinioConfig holds S3-compatible object store settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

// EmbeddingConfig holds feature extractor settings.
type EmbeddingConfig struct {
	Backend            string `yaml:"backend"` // "onnx" or "mock"
	ModelPath          string `yaml:"model_path"`
	RuntimeLibraryPath string `yaml:"runtime_library_path"`
	Dimensions         int    `yaml:"dimensions"`
	InputSize          int    `yaml:"input_size"`
	InputName          string `yaml:"input_name"`
	OutputName         string `yaml:"output_name"`
	CacheSize          int    `yaml:"cache_size"`
	// CacheBudgetMB, when set, overrides CacheSize with as many entries as fit in the budget.
	CacheBudgetMB int   `yaml:"cache_budget_mb"`
	PadColor      []int `yaml:"pad_color"`
}

// Pad returns PadColor as an opaque color; missing channels are zero.
func (e *EmbeddingConfig) Pad() color.Color {
	var rgb [3]uint8
	for i := 0; i < len(rgb) && i < len(e.PadColor); i++ {
		rgb[i] = uint8(e.PadColor[i])
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

// SearchConfig holds similarity search settings.
type SearchConfig struct {
	DefaultTopK         int     `yaml:"default_top_k"`
	MaxTopK             int     `yaml:"max_top_k"`
	MinCandidates       int     `yaml:"min_candidates"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	HighThreshold       float64 `yaml:"high_threshold"`
	LowThreshold        float64 `yaml:"low_threshold"`
	// CanonicalZoom is the zoom a cross-zoom query image is composed at when the query has none.
	CanonicalZoom int `yaml:"canonical_zoom"`
	// MaxQueryTiles caps how many tiles one query composite may span.
	MaxQueryTiles int `yaml:"max_query_tiles"`
	// ZoomWorkers bounds how many zoom levels a cross-zoom search loads and scans at once.
	ZoomWorkers int `yaml:"zoom_workers"`
}

// IndexConfig holds index build settings.
type IndexConfig struct {
	BuildOnMiss  *bool          `yaml:"build_on_miss"`
	Workers      int            `yaml:"workers"`
	MaxTiles     int            `yaml:"max_tiles"`
	BuildTimeout time.Duration  `yaml:"build_timeout"`
	Warmup       []WarmupTarget `yaml:"warmup"`
}

// BuildOnMissOrDefault returns whether to build missing indexes on demand; defaults to true when unset.
func (i *IndexConfig) BuildOnMissOrDefault() bool {
	if i.BuildOnMiss != nil {
		return *i.BuildOnMiss
	}
	return true
}

// WarmupTarget names indexes to load or build at server start. Empty Zooms means
// every zoom level the footprint catalog lists.
type WarmupTarget struct {
	Dataset   string `yaml:"dataset"`
	Footprint string `yaml:"footprint"`
	Zooms     []int  `yaml:"zooms"`
}

// WatchConfig holds tile directory watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, applies defaults, and validates.
// Returns an error if the file cannot be read, parsed, or is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Tiles.Root = expandPath(cfg.Tiles.Root, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.RuntimeLibraryPath = expandPath(cfg.Embedding.RuntimeLibraryPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Search.LowThreshold >= c.Search.HighThreshold {
		return fmt.Errorf("search.low_threshold (%v) must be below search.high_threshold (%v)", c.Search.LowThreshold, c.Search.HighThreshold)
	}
	switch c.Tiles.Backend {
	case "disk":
	case "minio":
		if c.Tiles.Minio.Endpoint == "" || c.Tiles.Minio.Bucket == "" {
			return fmt.Errorf("tiles.minio.endpoint and tiles.minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown tiles.backend %q", c.Tiles.Backend)
	}
	switch c.Embedding.Backend {
	case "onnx", "mock":
	default:
		return fmt.Errorf("unknown embedding.backend %q", c.Embedding.Backend)
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)", c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
