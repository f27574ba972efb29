package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/anveshak/data/db/annotations.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/anveshak/data/indices"
	}
	if cfg.Tiles.Backend == "" {
		cfg.Tiles.Backend = "disk"
	}
	if cfg.Tiles.Root == "" {
		cfg.Tiles.Root = "/usr/local/var/anveshak/data/tiles"
	}
	if cfg.Tiles.Extensions == nil {
		cfg.Tiles.Extensions = []string{"webp", "png", "jpg", "jpeg"}
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/anveshak/data/models/resnet50.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 2048
	}
	if cfg.Embedding.InputSize == 0 {
		cfg.Embedding.InputSize = 224
	}
	if cfg.Embedding.InputName == "" {
		cfg.Embedding.InputName = "input"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "output"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 50000
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.MinCandidates == 0 {
		cfg.Search.MinCandidates = 50
	}
	if cfg.Search.CandidateMultiplier == 0 {
		cfg.Search.CandidateMultiplier = 5
	}
	if cfg.Search.HighThreshold == 0 {
		cfg.Search.HighThreshold = 0.75
	}
	if cfg.Search.LowThreshold == 0 {
		cfg.Search.LowThreshold = 0.65
	}
	if cfg.Search.CanonicalZoom == 0 {
		cfg.Search.CanonicalZoom = 10
	}
	if cfg.Search.MaxQueryTiles == 0 {
		cfg.Search.MaxQueryTiles = 1024
	}
	if cfg.Search.ZoomWorkers == 0 {
		cfg.Search.ZoomWorkers = 4
	}
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = 4
	}
	if cfg.Index.BuildTimeout == 0 {
		cfg.Index.BuildTimeout = 30 * time.Minute
	}
	if cfg.Index.BuildOnMiss == nil {
		t := true
		cfg.Index.BuildOnMiss = &t
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
