package task

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/util"
)

// Default bounding box applied when a ResizeInput leaves the
// dimensions zero.
const (
	DefaultMaxWidth  = 1024
	DefaultMaxHeight = 1024
)

// jpegQuality is used when re-encoding JPEG output.
const jpegQuality = 85

// ResizeInput is the payload for an image-resize task.
type ResizeInput struct {
	// File holds the image bytes. Only PNG and JPEG are supported.
	File multipart.FilePart

	// MaxWidth and MaxHeight bound the output. Zero means the
	// default box.
	MaxWidth  int
	MaxHeight int
}

// ResizeResult is the outcome of an image-resize task.
type ResizeResult struct {
	// Content is the re-encoded image. When no scaling was needed it
	// is the original bytes untouched.
	Content []byte `json:"-"`

	// Format is the decoded image format, "png" or "jpeg".
	Format string `json:"format"`

	// OriginalWidth and OriginalHeight are the source dimensions.
	OriginalWidth  int `json:"original_width"`
	OriginalHeight int `json:"original_height"`

	// Width and Height are the output dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Resized is false when the source already fit the bounding box.
	Resized bool `json:"resized"`
}

// resizer scales PNG and JPEG uploads down to a bounding box. Images
// already inside the box pass through unmodified.
type resizer struct{}

// NewResizer returns the image-resize executor.
func NewResizer() pool.Executor {
	return &resizer{}
}

func (r *resizer) Kind() pool.TaskKind {
	return pool.TaskImageResize
}

func (r *resizer) Execute(ctx context.Context, payload any) (any, error) {
	input, ok := payload.(ResizeInput)
	if !ok {
		return nil, fmt.Errorf("image-resize payload must be task.ResizeInput, got %T: %w",
			payload, util.ErrInvalidInput)
	}

	maxW, maxH := input.MaxWidth, input.MaxHeight
	if maxW <= 0 {
		maxW = DefaultMaxWidth
	}
	if maxH <= 0 {
		maxH = DefaultMaxHeight
	}

	src, format, err := image.Decode(bytes.NewReader(input.File.Content))
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %v: %w", input.File.Filename, err, util.ErrInvalidInput)
	}
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported image format %q: %w", format, util.ErrInvalidInput)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	result := ResizeResult{
		Format:         format,
		OriginalWidth:  srcW,
		OriginalHeight: srcH,
	}

	if srcW <= maxW && srcH <= maxH {
		result.Content = input.File.Content
		result.Width = srcW
		result.Height = srcH
		return result, nil
	}

	dstW, dstH := fitDimensions(srcW, srcH, maxW, maxH)
	dst := scaleNearest(src, dstW, dstH)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode resized %s: %w", format, err)
	}

	result.Content = buf.Bytes()
	result.Width = dstW
	result.Height = dstH
	result.Resized = true
	return result, nil
}

// fitDimensions scales (w, h) down to fit (maxW, maxH) preserving the
// aspect ratio. Both outputs are at least 1.
func fitDimensions(w, h, maxW, maxH int) (int, int) {
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

// scaleNearest resamples src to (w, h) with nearest-neighbor lookup.
func scaleNearest(src image.Image, w, h int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/h
		for x := 0; x < w; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/w
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
