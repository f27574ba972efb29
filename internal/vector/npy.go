package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
)

// NumPy .npy version 1.0 with a little-endian float32 matrix.

var npyMagic = []byte("\x93NUMPY")

const npyAlign = 64

func writeNPY(w io.Writer, data []float32, rows, cols int) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// magic(6) + version(2) + header length(2) + header + '\n', padded to npyAlign
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % npyAlign; pad != 0 {
		header += string(bytes.Repeat([]byte{' '}, npyAlign-pad))
	}
	header += "\n"
	if len(header) > math.MaxUint16 {
		return fmt.Errorf("npy header too long: %d", len(header))
	}

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(float32sToBytes(data))
	return err
}

var (
	npyShapeRe = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+)\)`)
	npyDescrRe = regexp.MustCompile(`'descr':\s*'([^']*)'`)
)

// readNPY parses a 2-D little-endian float32 .npy file.
func readNPY(data []byte) ([]float32, int, int, error) {
	if len(data) < 10 || !bytes.Equal(data[:6], npyMagic) {
		return nil, 0, 0, fmt.Errorf("not an npy file")
	}
	major := data[6]
	var headerLen, offset int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return nil, 0, 0, fmt.Errorf("truncated npy header")
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return nil, 0, 0, fmt.Errorf("unsupported npy version %d", major)
	}
	if len(data) < offset+headerLen {
		return nil, 0, 0, fmt.Errorf("truncated npy header")
	}
	header := string(data[offset : offset+headerLen])

	descr := npyDescrRe.FindStringSubmatch(header)
	if descr == nil || descr[1] != "<f4" {
		return nil, 0, 0, fmt.Errorf("unsupported npy dtype in header %q", header)
	}
	if bytes.Contains([]byte(header), []byte("'fortran_order': True")) {
		return nil, 0, 0, fmt.Errorf("fortran-ordered npy is not supported")
	}
	shape := npyShapeRe.FindStringSubmatch(header)
	if shape == nil {
		return nil, 0, 0, fmt.Errorf("npy shape is not 2-D: %q", header)
	}
	rows, _ := strconv.Atoi(shape[1])
	cols, _ := strconv.Atoi(shape[2])

	body := data[offset+headerLen:]
	if len(body) != rows*cols*4 {
		return nil, 0, 0, fmt.Errorf("npy body is %d bytes, want %d", len(body), rows*cols*4)
	}
	return bytesToFloat32s(body), rows, cols, nil
}

func float32sToBytes(s []float32) []byte {
	b := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32s(b []byte) []float32 {
	s := make([]float32, len(b)/4)
	for i := range s {
		s[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return s
}
