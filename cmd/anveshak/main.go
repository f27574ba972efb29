// Package main is the Anveshak CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/catalog"
	"github.com/hyperjump/anveshak/internal/cli"
	"github.com/hyperjump/anveshak/internal/compositor"
	"github.com/hyperjump/anveshak/internal/config"
	"github.com/hyperjump/anveshak/internal/embedding"
	"github.com/hyperjump/anveshak/internal/geometry"
	"github.com/hyperjump/anveshak/internal/indexer"
	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/search"
	"github.com/hyperjump/anveshak/internal/server"
	"github.com/hyperjump/anveshak/internal/storage"
	"github.com/hyperjump/anveshak/internal/tiles"
	"github.com/hyperjump/anveshak/internal/watcher"
	"github.com/hyperjump/anveshak/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/anveshak/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, so running from a checkout uses the local config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "footprints":
		runFootprints()
	case "version", "--version", "-v":
		fmt.Printf("anveshak version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustSetup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := mustSetup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if keys := warmupKeys(cfg, components.Catalog, logger); len(keys) > 0 {
		go func() {
			logger.Info("warming indexes", zap.Int("keys", len(keys)))
			if err := components.Registry.Warm(ctx, keys); err != nil {
				logger.Warn("warm-up finished with errors", zap.Error(err))
			}
		}()
	}

	if cfg.Watch.Enabled {
		disk, ok := components.Tiles.(*tiles.DiskStore)
		if !ok {
			logger.Warn("tile watching needs the disk backend; watcher disabled", zap.String("backend", cfg.Tiles.Backend))
		} else {
			w := watcher.New(disk.Root(), disk, components.Registry,
				watcher.WithLogger(logger),
				watcher.WithDebounce(cfg.Watch.Debounce),
				watcher.WithExtensions(cfg.Tiles.Extensions))
			if err := w.Start(ctx); err != nil {
				logger.Fatal("Failed to start tile watcher", zap.Error(err))
			}
			defer w.Stop()
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Registry,
		components.Tiles,
		components.Annotations,
		components.Catalog,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataset := fs.String("dataset", "", "dataset name (required)")
	footprint := fs.String("footprint", "", "footprint id (empty for datasets without footprints)")
	zoomsFlag := fs.String("zooms", "", "comma separated zoom levels; empty uses the catalog's levels for the footprint")
	rebuild := fs.Bool("rebuild", false, "rebuild even when a persisted index exists")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *dataset == "" {
		fmt.Println("Usage: anveshak index --dataset NAME [--footprint ID] [--zooms 8,9,10] [--rebuild]")
		os.Exit(1)
	}
	zooms, err := cli.ParseZooms(*zoomsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --zooms: %v\n", err)
		os.Exit(1)
	}

	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if len(zooms) == 0 && components.Catalog != nil {
		zooms, _ = components.Catalog.ZoomLevels(*footprint)
	}
	if len(zooms) == 0 {
		fmt.Fprintln(os.Stderr, "No zoom levels given and none known from the catalog; pass --zooms")
		os.Exit(1)
	}

	ctx := context.Background()
	failed := 0
	for _, z := range zooms {
		key := models.IndexKey{Dataset: *dataset, Footprint: *footprint, Zoom: z}
		if *rebuild {
			_, err = components.Registry.Rebuild(ctx, key)
		} else {
			_, err = components.Registry.Ensure(ctx, key)
		}
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Indexing %s failed: %v\n", key, err)
		}
	}
	if err := cli.WriteIndexStatus(os.Stdout, components.Registry.Status(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// similarRequest mirrors the body accepted by the similarity endpoints.
type similarRequest struct {
	AnnotationID string          `json:"annotation_id,omitempty"`
	Dataset      string          `json:"dataset"`
	Footprint    string          `json:"footprint"`
	GeoJSON      json.RawMessage `json:"geojson,omitempty"`
	ExcludeZooms []int           `json:"exclude_zooms,omitempty"`
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search locally without a server)")
	dataset := fs.String("dataset", "", "dataset name")
	footprint := fs.String("footprint", "", "footprint id")
	zoom := fs.Int("zoom", -1, "zoom level the geometry was drawn at (-1 = configured canonical zoom)")
	geojsonPath := fs.String("geojson", "", "file holding a GeoJSON geometry or feature (- for stdin)")
	annotationID := fs.String("annotation", "", "stored annotation id to use as the query (server mode)")
	topK := fs.Int("top-k", 0, "maximum medium-confidence results (0 = configured default)")
	more := fs.Bool("more", false, "search every available zoom level")
	excludeFlag := fs.String("exclude-zooms", "", "comma separated zoom levels to skip with --more")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	exclude, err := cli.ParseZooms(*excludeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --exclude-zooms: %v\n", err)
		os.Exit(1)
	}
	if *geojsonPath == "" && *annotationID == "" {
		fmt.Println("Usage: anveshak search --dataset NAME [--footprint ID] [--zoom Z] --geojson FILE [--more] [--exclude-zooms 8,9]")
		os.Exit(1)
	}

	req := similarRequest{
		AnnotationID: *annotationID,
		Dataset:      *dataset,
		Footprint:    *footprint,
		ExcludeZooms: exclude,
	}
	if *geojsonPath != "" {
		if req.GeoJSON, err = readGeoJSON(*geojsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read geometry: %v\n", err)
			os.Exit(1)
		}
	}

	var zoomLevel *int
	if *zoom >= 0 {
		zoomLevel = zoom
	}
	var resp *models.SimilarityResponse
	if *serverURL != "" {
		resp, err = searchViaHTTP(*serverURL, similarEndpoint(*more, zoomLevel, *topK), req)
	} else {
		resp, err = searchLocally(*configPath, req, zoomLevel, *topK, *more)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSimilarResults(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func readGeoJSON(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if _, err := geometry.Parse(data); err != nil {
		return nil, err
	}
	return data, nil
}

// similarEndpoint returns the path and query string of the similarity endpoint to call.
func similarEndpoint(more bool, zoom *int, topK int) string {
	path := "/annotations/similar"
	if more {
		path += "/more"
	}
	q := url.Values{}
	if zoom != nil {
		q.Set("zoom", strconv.Itoa(*zoom))
	}
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

func searchViaHTTP(serverURL, endpoint string, req similarRequest) (*models.SimilarityResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out models.SimilarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func searchLocally(configPath string, req similarRequest, zoom *int, topK int, more bool) (*models.SimilarityResponse, error) {
	if req.AnnotationID != "" {
		return nil, errors.New("--annotation needs a running server")
	}
	cfg, _, logger := mustSetup(configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	geom, err := geometry.Parse(req.GeoJSON)
	if err != nil {
		return nil, err
	}
	q := &models.SimilarityQuery{
		Dataset:      req.Dataset,
		Footprint:    req.Footprint,
		Zoom:         zoom,
		TopK:         topK,
		ExcludeZooms: req.ExcludeZooms,
		Geometry:     geom,
	}
	ctx := context.Background()
	if more {
		return components.Engine.FindSimilarAcrossZooms(ctx, q)
	}
	return components.Engine.FindSimilar(ctx, q)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		var out struct {
			Indexes []indexer.IndexStatus `json:"indexes"`
		}
		if err := getJSON(*serverURL+"/api/v1/indexes", &out); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteIndexStatus(os.Stdout, out.Indexes, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()
	usage, err := storage.MeasureUsage(cfg.Storage.DatabasePath, cfg.Storage.IndexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Disk usage failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"disk_usage": usage, "index_dir": cfg.Storage.IndexDir})
		return
	}
	fmt.Printf("index_dir:         %s\n", cfg.Storage.IndexDir)
	fmt.Printf("persisted_indexes: %d\n", usage.IndexFiles)
	fmt.Printf("index_bytes:       %d\n", usage.IndexBytes)
	fmt.Printf("database_bytes:    %d\n", usage.DatabaseBytes)
	fmt.Printf("embedding:         %s (%d dims, %dpx input)\n", cfg.Embedding.Backend, cfg.Embedding.Dimensions, cfg.Embedding.InputSize)
	fmt.Printf("thresholds:        high > %.2f, medium > %.2f\n", cfg.Search.HighThreshold, cfg.Search.LowThreshold)
}

func getJSON(u string, out any) error {
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runFootprints() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("footprints", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "maximum footprints to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()
	if cfg.Storage.CatalogPath == "" {
		fmt.Fprintln(os.Stderr, "storage.catalog_path is not configured")
		os.Exit(1)
	}
	cat, err := catalog.Load(cfg.Storage.CatalogPath, catalog.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	fps, err := cat.Search(joinQuery(fs.Args()), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFootprints(os.Stdout, fps, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// joinQuery joins positional args so multi-word queries work with or without quotes.
func joinQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that follow the positional query to the front, since
// flag.Parse stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// warmupKeys expands the configured warm-up targets. A target without zooms takes
// the footprint's zoom levels from the catalog when one is loaded.
func warmupKeys(cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) []models.IndexKey {
	var keys []models.IndexKey
	for _, t := range cfg.Index.Warmup {
		zooms := t.Zooms
		if len(zooms) == 0 && cat != nil {
			var err error
			if zooms, err = cat.ZoomLevels(t.Footprint); err != nil {
				logger.Warn("warm-up target has no zooms", zap.String("dataset", t.Dataset), zap.String("footprint", t.Footprint), zap.Error(err))
				continue
			}
		}
		for _, z := range zooms {
			keys = append(keys, models.IndexKey{Dataset: t.Dataset, Footprint: t.Footprint, Zoom: z})
		}
	}
	return keys
}

// Components holds initialized services.
type Components struct {
	Tiles       tiles.Store
	Extractor   embedding.Extractor
	Embedder    *embedding.TileEmbedder
	Registry    *indexer.Registry
	Engine      *search.Engine
	Annotations *storage.SQLiteStorage
	Catalog     *catalog.Catalog
}

// Close releases every component that holds resources.
func (c *Components) Close() {
	if c.Annotations != nil {
		_ = c.Annotations.Close()
	}
	if c.Extractor != nil {
		_ = c.Extractor.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

func newTileStore(cfg *config.Config) (tiles.Store, error) {
	switch cfg.Tiles.Backend {
	case "minio":
		m := cfg.Tiles.Minio
		return tiles.NewMinioStore(tiles.MinioOptions{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			Bucket:     m.Bucket,
			Prefix:     m.Prefix,
			Secure:     m.Secure,
			Extensions: cfg.Tiles.Extensions,
		})
	default:
		return tiles.NewDiskStore(cfg.Tiles.Root, cfg.Tiles.Extensions), nil
	}
}

func newExtractor(cfg *config.EmbeddingConfig) (embedding.Extractor, error) {
	if cfg.Backend == "mock" {
		return embedding.NewMockExtractor(cfg.Dimensions), nil
	}
	return embedding.NewONNXExtractor(embedding.ONNXOptions{
		ModelPath:          cfg.ModelPath,
		RuntimeLibraryPath: cfg.RuntimeLibraryPath,
		Dimensions:         cfg.Dimensions,
		InputSize:          cfg.InputSize,
		InputName:          cfg.InputName,
		OutputName:         cfg.OutputName,
	})
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := newTileStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tile store: %w", err)
	}
	c.Tiles = store

	if c.Extractor, err = newExtractor(&cfg.Embedding); err != nil {
		return nil, fmt.Errorf("failed to initialize feature extractor: %w", err)
	}

	capacity := cfg.Embedding.CacheSize
	if cfg.Embedding.CacheBudgetMB > 0 {
		capacity = embedding.CapacityForBudget(int64(cfg.Embedding.CacheBudgetMB)<<20, cfg.Embedding.Dimensions)
	}
	c.Embedder = embedding.NewTileEmbedder(store, c.Extractor, embedding.NewEmbeddingCache(capacity), cfg.Embedding.Pad())

	c.Registry = indexer.New(cfg.Storage.IndexDir, store, c.Embedder,
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Index.Workers),
		indexer.WithMaxTiles(cfg.Index.MaxTiles),
		indexer.WithBuildTimeout(cfg.Index.BuildTimeout),
		indexer.WithBuildOnMiss(cfg.Index.BuildOnMissOrDefault()),
	)

	comp := compositor.New(store,
		compositor.WithLogger(logger),
		compositor.WithPadColor(cfg.Embedding.Pad()),
		compositor.WithMaxTiles(cfg.Search.MaxQueryTiles),
	)
	c.Engine = search.NewEngine(comp, c.Embedder, c.Registry, &cfg.Search, search.WithLogger(logger))

	if c.Annotations, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize annotation storage: %w", err)
	}

	if cfg.Storage.CatalogPath != "" {
		if c.Catalog, err = catalog.Load(cfg.Storage.CatalogPath, catalog.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("failed to load footprint catalog: %w", err)
		}
	}

	logger.Info("components initialized",
		zap.String("tile_backend", cfg.Tiles.Backend),
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("cache_capacity", capacity),
		zap.String("index_dir", cfg.Storage.IndexDir))
	ok = true
	return c, nil
}

func printUsage() {
	fmt.Println(`anveshak - Visual similarity search over planetary map tiles

Usage:
  anveshak server [flags]               Start the HTTP server
  anveshak index [flags]                Build or load tile indexes
  anveshak search [flags]               Find tiles similar to a drawn geometry
  anveshak status [flags]               Show loaded or persisted indexes
  anveshak footprints [flags] <query>   Search the footprint catalog
  anveshak version                      Show version
  anveshak help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/anveshak/config.yaml)
  --debug            Enable debug logging

Index Flags:
  --dataset string   Dataset name (required)
  --footprint string Footprint id
  --zooms string     Comma separated zoom levels (default: catalog zoom levels)
  --rebuild          Rebuild even if a persisted index exists

Search Flags:
  --server string         Server URL (default: http://localhost:8000). Use --server "" to search locally.
  --dataset string        Dataset name
  --footprint string      Footprint id
  --zoom int              Zoom the geometry was drawn at (default: canonical zoom)
  --geojson string        GeoJSON geometry or feature file (- for stdin)
  --annotation string     Stored annotation id (server mode)
  --top-k int             Maximum medium-confidence results
  --more                  Search every available zoom level
  --exclude-zooms string  Zoom levels to skip with --more
  --output string         text, compact, or json

Examples:
  anveshak server
  anveshak index --dataset ctx --footprint B01 --zooms 8,9,10
  anveshak search --dataset ctx --footprint B01 --zoom 8 --geojson crater.json
  anveshak search --dataset ctx --footprint B01 --geojson crater.json --more --exclude-zooms 8
  anveshak status --output json
  anveshak footprints jezero`)
}
