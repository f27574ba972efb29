//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ImageNet channel statistics used to normalize model input.
var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ONNXOptions describes the model an ONNXExtractor runs.
type ONNXOptions struct {
	ModelPath string
	// RuntimeLibraryPath points at the onnxruntime shared library; empty uses the platform default.
	RuntimeLibraryPath string
	Dimensions         int
	InputSize          int
	InputName          string
	OutputName         string
}

// ONNXExtractor runs an image backbone through ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXExtractor struct {
	session      *ort.AdvancedSession
	dimensions   int
	inputSize    int
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXExtractor creates an extractor with a (1, 3, S, S) float32 input and a (1, D) output.
// InitializeEnvironment is called if not already done.
func NewONNXExtractor(opts ONNXOptions) (*ONNXExtractor, error) {
	if opts.InputName == "" {
		opts.InputName = "input"
	}
	if opts.OutputName == "" {
		opts.OutputName = "output"
	}
	if !ort.IsInitialized() {
		if opts.RuntimeLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.RuntimeLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	size := int64(opts.InputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(opts.Dimensions)), make([]float32, opts.Dimensions))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXExtractor{
		session:      session,
		dimensions:   opts.Dimensions,
		inputSize:    opts.InputSize,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Extract runs the model on img. The output is copied out while the session is held,
// so concurrent callers never observe each other's results.
func (e *ONNXExtractor) Extract(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != e.inputSize || b.Dy() != e.inputSize {
		img = imaging.Resize(img, e.inputSize, e.inputSize, imaging.Lanczos)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("extractor is closed")
	}

	fillNCHW(e.inputTensor.GetData(), img, e.inputSize)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, e.dimensions)
	copy(out, e.outputTensor.GetData()[:e.dimensions])
	return out, nil
}

// fillNCHW writes img as normalized planar RGB into dst.
func fillNCHW(dst []float32, img image.Image, size int) {
	b := img.Bounds()
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*size + x
			dst[i] = (float32(r)/0xffff - imageNetMean[0]) / imageNetStd[0]
			dst[plane+i] = (float32(g)/0xffff - imageNetMean[1]) / imageNetStd[1]
			dst[2*plane+i] = (float32(bl)/0xffff - imageNetMean[2]) / imageNetStd[2]
		}
	}
}

func (e *ONNXExtractor) Dimensions() int { return e.dimensions }

func (e *ONNXExtractor) InputSize() int { return e.inputSize }

// Close destroys the session and tensors.
func (e *ONNXExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		_ = e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
