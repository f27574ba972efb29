//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"
)

// ONNXOptions describes the model an ONNXExtractor runs.
type ONNXOptions struct {
	ModelPath          string
	RuntimeLibraryPath string
	Dimensions         int
	InputSize          int
	InputName          string
	OutputName         string
}

// ONNXExtractor stub type when built without CGO (see onnx.go for real implementation).
type ONNXExtractor struct{}

var errNoCGO = errors.New("ONNX extractor requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// NewONNXExtractor returns an error when built without CGO (ONNX not available).
func NewONNXExtractor(_ ONNXOptions) (*ONNXExtractor, error) {
	return nil, errNoCGO
}

func (e *ONNXExtractor) Extract(context.Context, image.Image) ([]float32, error) {
	return nil, errNoCGO
}

func (e *ONNXExtractor) Dimensions() int { return 0 }

func (e *ONNXExtractor) InputSize() int { return 0 }

func (e *ONNXExtractor) Close() error { return nil }
