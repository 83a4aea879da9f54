// Package imaging turns an agent's encoded observation into the bitmap
// shown to the operator: decode, normalize with a cheap nearest-neighbor
// upscale, one Lanczos downscale, then rotate to the agent's facing.
//
// Every step is a pure function of its input.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	dimg "github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/DoyleJ11/commons-client/pkg/types"
)

const (
	DefaultDisplaySize = 1000
	DefaultViewSize    = 400
)

var ErrEmptyImage = errors.New("empty image payload")

type ImageDecodeError struct {
	Stage string // "base64" or "image"
	Err   error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode image (%s): %v", e.Stage, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

type Pipeline struct {
	DisplaySize int
	ViewSize    int
}

func NewPipeline(displaySize, viewSize int) *Pipeline {
	if displaySize <= 0 {
		displaySize = DefaultDisplaySize
	}
	if viewSize <= 0 {
		viewSize = DefaultViewSize
	}
	return &Pipeline{DisplaySize: displaySize, ViewSize: viewSize}
}

// Transform runs the full pipeline. On error the caller keeps whatever it
// was showing before.
func (p *Pipeline) Transform(encoded string, o types.Orientation) (image.Image, error) {
	img, err := Decode(encoded)
	if err != nil {
		return nil, err
	}
	img = Upscale(img, p.DisplaySize)
	img = Downscale(img, p.ViewSize)
	return Rotate(img, o), nil
}

// Decode accepts base64 text of a PNG, JPEG, GIF, BMP or WebP image.
func Decode(encoded string) (image.Image, error) {
	if encoded == "" {
		return nil, &ImageDecodeError{Stage: "base64", Err: ErrEmptyImage}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ImageDecodeError{Stage: "base64", Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &ImageDecodeError{Stage: "image", Err: err}
	}
	return img, nil
}

// Upscale stretches src to size x size with nearest-neighbor sampling.
func Upscale(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Downscale resamples src to size x size with a Lanczos3 kernel.
func Downscale(src image.Image, size int) image.Image {
	return resize.Resize(uint(size), uint(size), src, resize.Lanczos3)
}

// Rotate turns src counter-clockwise by 90 degrees per quarter turn of the
// orientation: up 0, right 90, down 180, left 270.
func Rotate(src image.Image, o types.Orientation) image.Image {
	switch o.QuarterTurns() {
	case 1:
		return dimg.Rotate90(src)
	case 2:
		return dimg.Rotate180(src)
	case 3:
		return dimg.Rotate270(src)
	}
	return src
}

func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
