package tiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperjump/anveshak/internal/models"
)

// MinioOptions configures a MinIO / S3-compatible tile store.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Prefix     string
	Secure     bool
	Extensions []string
}

// MinioStore serves tiles from an S3-compatible bucket using the disk layout as object keys.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	prefix     string
	extensions []string
}

// NewMinioStore connects to the endpoint described by opts.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinioStoreWithClient(client, opts.Bucket, opts.Prefix, opts.Extensions), nil
}

// NewMinioStoreWithClient wraps an existing client.
func NewMinioStoreWithClient(client *minio.Client, bucket, prefix string, extensions []string) *MinioStore {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &MinioStore{client: client, bucket: bucket, prefix: prefix, extensions: extensions}
}

func (s *MinioStore) zoomPrefix(dataset, footprint string, zoom int) string {
	parts := []string{s.prefix, dataset}
	if footprint != "" {
		parts = append(parts, footprint)
	}
	parts = append(parts, strconv.Itoa(zoom))
	return path.Join(parts...) + "/"
}

// Fetch returns the first object found for coord among the configured extensions.
func (s *MinioStore) Fetch(ctx context.Context, coord models.TileCoordinate) ([]byte, error) {
	base := s.zoomPrefix(coord.Dataset, coord.Footprint, coord.Zoom) + strconv.Itoa(coord.X) + "/" + strconv.Itoa(coord.Y)
	for _, ext := range s.extensions {
		data, err := s.get(ctx, base+"."+ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrTileNotFound) {
			return nil, fmt.Errorf("failed to fetch tile %s: %w", coord, err)
		}
	}
	return nil, ErrTileNotFound
}

func (s *MinioStore) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioError(err)
	}
	return data, nil
}

func mapMinioError(err error) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return ErrTileNotFound
	}
	return err
}

// List enumerates x/y objects under the zoom prefix.
func (s *MinioStore) List(ctx context.Context, dataset, footprint string, zoom int) ([]models.TileCoordinate, error) {
	prefix := s.zoomPrefix(dataset, footprint, zoom)
	seen := make(map[models.TileCoordinate]struct{})
	var coords []models.TileCoordinate
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		x, y, ok := parseObjectTile(strings.TrimPrefix(obj.Key, prefix), s.extensions)
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
	sortCoords(coords)
	return coords, nil
}

// parseObjectTile parses "x/y.ext".
func parseObjectTile(rel string, extensions []string) (int, int, bool) {
	xs, file, ok := strings.Cut(rel, "/")
	if !ok || strings.Contains(file, "/") {
		return 0, 0, false
	}
	ys, ext, ok := strings.Cut(file, ".")
	if !ok {
		return 0, 0, false
	}
	known := false
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			known = true
			break
		}
	}
	if !known {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}
