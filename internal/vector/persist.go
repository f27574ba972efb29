package vector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/hyperjump/anveshak/internal/models"
)

// An index named N is persisted as three files in one directory:
//
//	N.npy    raw vectors, NumPy v1.0 <f4 (rows, dim)
//	N.json   row coordinates as [[dataset, footprint, zoom, x, y], ...]
//	N.index  header with checksums of the other two, then the normalized matrix (zstd)
//
// N.index is renamed into place last and acts as the commit record.

const (
	indexMagic   = "ANVK"
	indexVersion = 1

	flagZstd uint16 = 1 << 0

	// ExtIndex, ExtJSON and ExtNPY are the artifact file extensions.
	ExtIndex = ".index"
	ExtJSON  = ".json"
	ExtNPY   = ".npy"
)

type indexHeader struct {
	Magic      [4]byte
	Version    uint16
	Flags      uint16
	Dimensions uint32
	Rows       uint32
	JSONCRC    uint32
	NPYCRC     uint32
	MatrixCRC  uint32
	PayloadLen uint64
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ArtifactPaths returns the .index, .json and .npy paths for name in dir.
func ArtifactPaths(dir, name string) (index, coords, npy string) {
	base := filepath.Join(dir, name)
	return base + ExtIndex, base + ExtJSON, base + ExtNPY
}

// Save atomically writes the index as name.{npy,json,index} in dir.
func (f *FlatIndex) Save(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Op: "save", Path: dir, Err: err}
	}
	indexPath, jsonPath, npyPath := ArtifactPaths(dir, name)

	var npyBuf bytes.Buffer
	if err := writeNPY(&npyBuf, f.raw, f.Size(), f.dimensions); err != nil {
		return &PersistenceError{Op: "save", Path: npyPath, Err: err}
	}
	jsonData, err := encodeCoords(f.coords)
	if err != nil {
		return &PersistenceError{Op: "save", Path: jsonPath, Err: err}
	}

	matrix := float32sToBytes(f.normalized)
	payload := zstdEncoder.EncodeAll(matrix, nil)
	hdr := indexHeader{
		Version:    indexVersion,
		Flags:      flagZstd,
		Dimensions: uint32(f.dimensions),
		Rows:       uint32(f.Size()),
		JSONCRC:    crc32.ChecksumIEEE(jsonData),
		NPYCRC:     crc32.ChecksumIEEE(npyBuf.Bytes()),
		MatrixCRC:  crc32.ChecksumIEEE(matrix),
		PayloadLen: uint64(len(payload)),
	}
	copy(hdr.Magic[:], indexMagic)
	var indexBuf bytes.Buffer
	if err := binary.Write(&indexBuf, binary.LittleEndian, hdr); err != nil {
		return &PersistenceError{Op: "save", Path: indexPath, Err: err}
	}
	indexBuf.Write(payload)

	// the commit record goes last
	return atomicWriteFiles(dir, []pendingFile{
		{path: npyPath, data: npyBuf.Bytes()},
		{path: jsonPath, data: jsonData},
		{path: indexPath, data: indexBuf.Bytes()},
	})
}

type pendingFile struct {
	path string
	data []byte
	tmp  string
}

// atomicWriteFiles writes every file to a synced temp file in dir, then renames them in order.
func atomicWriteFiles(dir string, files []pendingFile) error {
	defer func() {
		for _, pf := range files {
			if pf.tmp != "" {
				_ = os.Remove(pf.tmp)
			}
		}
	}()

	for i := range files {
		pf := &files[i]
		tmp, err := os.CreateTemp(dir, filepath.Base(pf.path)+".tmp-*")
		if err != nil {
			return &PersistenceError{Op: "save", Path: pf.path, Err: err}
		}
		pf.tmp = tmp.Name()
		_ = tmp.Chmod(0644)
		if _, err := tmp.Write(pf.data); err != nil {
			_ = tmp.Close()
			return &PersistenceError{Op: "save", Path: pf.path, Err: err}
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return &PersistenceError{Op: "save", Path: pf.path, Err: err}
		}
		if err := tmp.Close(); err != nil {
			return &PersistenceError{Op: "save", Path: pf.path, Err: err}
		}
	}

	for i := range files {
		pf := &files[i]
		if err := os.Rename(pf.tmp, pf.path); err != nil {
			return &PersistenceError{Op: "save", Path: pf.path, Err: err}
		}
		pf.tmp = ""
	}

	// Best-effort: fsync the directory so the renames are durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFlatIndex reads name.{index,json,npy} from dir. It returns ErrArtifactNotFound when
// none of the files exist and a PersistenceError wrapping ErrCorrupt when only some exist
// or they fail verification.
func LoadFlatIndex(dir, name string) (*FlatIndex, error) {
	indexPath, jsonPath, npyPath := ArtifactPaths(dir, name)

	present := 0
	contents := make(map[string][]byte, 3)
	for _, p := range []string{indexPath, jsonPath, npyPath} {
		data, err := os.ReadFile(p)
		switch {
		case err == nil:
			present++
			contents[p] = data
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, &PersistenceError{Op: "load", Path: p, Err: err}
		}
	}
	switch present {
	case 0:
		return nil, ErrArtifactNotFound
	case 3:
	default:
		return nil, corrupt(filepath.Join(dir, name), "incomplete artifact set (%d of 3 files)", present)
	}

	indexData, jsonData, npyData := contents[indexPath], contents[jsonPath], contents[npyPath]

	var hdr indexHeader
	r := bytes.NewReader(indexData)
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt(indexPath, "short header: %v", err)
	}
	if string(hdr.Magic[:]) != indexMagic {
		return nil, corrupt(indexPath, "bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != indexVersion {
		return nil, corrupt(indexPath, "unsupported version %d", hdr.Version)
	}
	if crc32.ChecksumIEEE(jsonData) != hdr.JSONCRC {
		return nil, corrupt(jsonPath, "checksum mismatch")
	}
	if crc32.ChecksumIEEE(npyData) != hdr.NPYCRC {
		return nil, corrupt(npyPath, "checksum mismatch")
	}

	payload, err := io.ReadAll(r)
	if err != nil || uint64(len(payload)) != hdr.PayloadLen {
		return nil, corrupt(indexPath, "payload is %d bytes, header says %d", len(payload), hdr.PayloadLen)
	}
	matrix := payload
	if hdr.Flags&flagZstd != 0 {
		matrix, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, corrupt(indexPath, "decompress: %v", err)
		}
	}
	if crc32.ChecksumIEEE(matrix) != hdr.MatrixCRC {
		return nil, corrupt(indexPath, "matrix checksum mismatch")
	}

	dim, rows := int(hdr.Dimensions), int(hdr.Rows)
	if dim <= 0 || len(matrix) != rows*dim*4 {
		return nil, corrupt(indexPath, "matrix is %d bytes for %d x %d", len(matrix), rows, dim)
	}
	coords, err := decodeCoords(jsonData)
	if err != nil {
		return nil, corrupt(jsonPath, "%v", err)
	}
	if len(coords) != rows {
		return nil, corrupt(jsonPath, "%d coordinates for %d rows", len(coords), rows)
	}
	raw, npyRows, npyCols, err := readNPY(npyData)
	if err != nil {
		return nil, corrupt(npyPath, "%v", err)
	}
	if npyRows != rows || npyCols != dim {
		return nil, corrupt(npyPath, "shape (%d, %d), want (%d, %d)", npyRows, npyCols, rows, dim)
	}

	return &FlatIndex{
		dimensions: dim,
		coords:     coords,
		normalized: bytesToFloat32s(matrix),
		raw:        raw,
	}, nil
}

func encodeCoords(coords []models.TileCoordinate) ([]byte, error) {
	rows := make([][5]any, len(coords))
	for i, c := range coords {
		rows[i] = [5]any{c.Dataset, c.Footprint, c.Zoom, c.X, c.Y}
	}
	return json.Marshal(rows)
}

func decodeCoords(data []byte) ([]models.TileCoordinate, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	coords := make([]models.TileCoordinate, len(rows))
	for i, row := range rows {
		if len(row) != 5 {
			return nil, fmt.Errorf("row %d has %d fields, want 5", i, len(row))
		}
		c := &coords[i]
		for j, dst := range []any{&c.Dataset, &c.Footprint, &c.Zoom, &c.X, &c.Y} {
			if err := json.Unmarshal(row[j], dst); err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, j, err)
			}
		}
	}
	return coords, nil
}
