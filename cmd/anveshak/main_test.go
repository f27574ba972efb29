package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/catalog"
	"github.com/hyperjump/anveshak/internal/config"
	"github.com/hyperjump/anveshak/internal/models"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"flags first unchanged", []string{"--limit", "5", "jezero"}, []string{"--limit", "5", "jezero"}},
		{"query then flags", []string{"gale", "crater", "--limit", "5"}, []string{"--limit", "5", "gale", "crater"}},
		{"query only", []string{"jezero"}, []string{"jezero"}},
		{"empty", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("argsReorder(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestJoinQuery(t *testing.T) {
	if got := joinQuery([]string{"gale", "crater"}); got != "gale crater" {
		t.Errorf("joinQuery = %q", got)
	}
	if got := joinQuery(nil); got != "" {
		t.Errorf("joinQuery(nil) = %q, want empty", got)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	tests := []struct {
		more bool
		zoom *int
		topK int
		want string
	}{
		{false, nil, 0, "/annotations/similar"},
		{false, models.ZoomLevel(8), 0, "/annotations/similar?zoom=8"},
		{false, models.ZoomLevel(0), 0, "/annotations/similar?zoom=0"},
		{true, nil, 5, "/annotations/similar/more?top_k=5"},
		{true, models.ZoomLevel(9), 5, "/annotations/similar/more?top_k=5&zoom=9"},
	}
	for _, tt := range tests {
		if got := similarEndpoint(tt.more, tt.zoom, tt.topK); got != tt.want {
			t.Errorf("similarEndpoint(%v, %v, %d) = %q, want %q", tt.more, tt.zoom, tt.topK, got, tt.want)
		}
	}
}

func TestSearchViaHTTP(t *testing.T) {
	var got similarRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/annotations/similar/more" {
			http.Error(w, "wrong path", http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(models.SimilarityResponse{HighCount: 1, QueryZoom: 8, SearchedZooms: []int{8, 9}})
	}))
	defer srv.Close()

	req := similarRequest{Dataset: "ctx", Footprint: "B01", GeoJSON: json.RawMessage(`{"type":"Point","coordinates":[77.4,18.4]}`), ExcludeZooms: []int{10}}
	resp, err := searchViaHTTP(srv.URL+"/", similarEndpoint(true, nil, 0), req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.HighCount != 1 || resp.QueryZoom != 8 || len(resp.SearchedZooms) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got.Dataset != "ctx" || got.Footprint != "B01" || !reflect.DeepEqual(got.ExcludeZooms, []int{10}) {
		t.Errorf("server received %+v", got)
	}
}

func TestSearchViaHTTP_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no index coverage"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := searchViaHTTP(srv.URL, "/annotations/similar", similarRequest{Dataset: "ctx"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want status 404", err)
	}
}

func TestWarmupKeys(t *testing.T) {
	cat, err := catalog.New([]models.Footprint{{
		ID: "B01",
		DownloadInfo: models.DownloadInfo{TilesPerZoom: map[string]models.ZoomTiles{
			"8": {Count: 4},
			"9": {Count: 16},
		}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	cfg := config.Default()
	cfg.Index.Warmup = []config.WarmupTarget{
		{Dataset: "ctx", Footprint: "B01"},
		{Dataset: "ctx", Footprint: "E03", Zooms: []int{10}},
		{Dataset: "ctx", Footprint: "missing"},
	}
	got := warmupKeys(cfg, cat, zap.NewNop())
	want := []models.IndexKey{
		{Dataset: "ctx", Footprint: "B01", Zoom: 8},
		{Dataset: "ctx", Footprint: "B01", Zoom: 9},
		{Dataset: "ctx", Footprint: "E03", Zoom: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("warmupKeys = %v, want %v", got, want)
	}

	if got := warmupKeys(cfg, nil, zap.NewNop()); len(got) != 1 {
		t.Errorf("without catalog got %v, want only the explicit zoom", got)
	}
}

func TestInitializeComponents_mockBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Embedding.Backend = "mock"
	cfg.Embedding.Dimensions = 16
	cfg.Embedding.CacheBudgetMB = 1
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Storage.IndexDir = filepath.Join(dir, "indices")
	cfg.Tiles.Root = filepath.Join(dir, "tiles")

	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.Engine == nil || c.Registry == nil || c.Annotations == nil {
		t.Fatal("missing component")
	}
	if c.Catalog != nil {
		t.Error("catalog should be nil without catalog_path")
	}
	if got := c.Embedder.Cache().Capacity(); got <= 0 || got == cfg.Embedding.CacheSize {
		t.Errorf("cache capacity = %d, want budget-derived value", got)
	}
}

func TestInitializeComponents_badCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Embedding.Backend = "mock"
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Storage.IndexDir = dir
	cfg.Storage.CatalogPath = filepath.Join(dir, "missing.json")

	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing catalog")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 8080
embedding:
  backend: mock
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved = %q, want %q", resolved, configPath)
	}
	if !cfg.Debug || cfg.Server.Port != 8080 || cfg.Embedding.Backend != "mock" {
		t.Errorf("unexpected config: debug=%v port=%d backend=%s", cfg.Debug, cfg.Server.Port, cfg.Embedding.Backend)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "anveshak.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath || cfg.Server.Port != 9000 {
		t.Errorf("resolved=%q port=%d", resolved, cfg.Server.Port)
	}
}
