package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/commons-client/pkg/types"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// splitFrame is red on the left half and blue on the right half.
func splitFrame(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r>>8 > 200 && b>>8 < 50
}

func isBlue(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return b>>8 > 200 && r>>8 < 50
}

func TestTransform_SizeAndOrientation(t *testing.T) {
	encoded := splitFrame(t, 12, 12)
	p := NewPipeline(120, 40)

	cases := []struct {
		name        string
		orientation types.Orientation
		redAt       image.Point
		blueAt      image.Point
	}{
		// Red starts on the left; each quarter turn moves it counter-clockwise.
		{name: "up", orientation: types.OrientationUp, redAt: image.Pt(5, 20), blueAt: image.Pt(35, 20)},
		{name: "right", orientation: types.OrientationRight, redAt: image.Pt(20, 35), blueAt: image.Pt(20, 5)},
		{name: "down", orientation: types.OrientationDown, redAt: image.Pt(35, 20), blueAt: image.Pt(5, 20)},
		{name: "left", orientation: types.OrientationLeft, redAt: image.Pt(20, 5), blueAt: image.Pt(20, 35)},
		{name: "out of range behaves as up", orientation: types.Orientation(42), redAt: image.Pt(5, 20), blueAt: image.Pt(35, 20)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := p.Transform(encoded, tc.orientation)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 40, 40), out.Bounds())
			assert.True(t, isRed(out.At(tc.redAt.X, tc.redAt.Y)), "expected red at %v, got %v", tc.redAt, out.At(tc.redAt.X, tc.redAt.Y))
			assert.True(t, isBlue(out.At(tc.blueAt.X, tc.blueAt.Y)), "expected blue at %v, got %v", tc.blueAt, out.At(tc.blueAt.X, tc.blueAt.Y))
		})
	}
}

func TestRotate_ExactPixels(t *testing.T) {
	// a b
	// c d
	a := color.RGBA{R: 1, A: 255}
	b := color.RGBA{R: 2, A: 255}
	c := color.RGBA{R: 3, A: 255}
	d := color.RGBA{R: 4, A: 255}
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, a)
	src.Set(1, 0, b)
	src.Set(0, 1, c)
	src.Set(1, 1, d)

	cases := []struct {
		o    types.Orientation
		want [4]color.RGBA // top-left, top-right, bottom-left, bottom-right
	}{
		{o: types.OrientationUp, want: [4]color.RGBA{a, b, c, d}},
		{o: types.OrientationRight, want: [4]color.RGBA{b, d, a, c}},
		{o: types.OrientationDown, want: [4]color.RGBA{d, c, b, a}},
		{o: types.OrientationLeft, want: [4]color.RGBA{c, a, d, b}},
	}

	for _, tc := range cases {
		out := Rotate(src, tc.o)
		got := [4]color.RGBA{
			color.RGBAModel.Convert(out.At(0, 0)).(color.RGBA),
			color.RGBAModel.Convert(out.At(1, 0)).(color.RGBA),
			color.RGBAModel.Convert(out.At(0, 1)).(color.RGBA),
			color.RGBAModel.Convert(out.At(1, 1)).(color.RGBA),
		}
		assert.Equal(t, tc.want, got, "orientation %d", tc.o)
	}
}

func TestRotate_NonSquareSwapsBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	assert.Equal(t, image.Rect(0, 0, 1, 3), Rotate(src, types.OrientationRight).Bounds())
	assert.Equal(t, image.Rect(0, 0, 3, 1), Rotate(src, types.OrientationDown).Bounds())
}

func TestRotate_SubImageStartsAtOrigin(t *testing.T) {
	full := image.NewRGBA(image.Rect(0, 0, 3, 3))
	mark := color.RGBA{G: 200, A: 255}
	full.Set(2, 1, mark)
	sub := full.SubImage(image.Rect(1, 1, 3, 3))

	out := Rotate(sub, types.OrientationRight)
	require.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	// The sub-image's top-right pixel lands top-left after a counter-clockwise turn.
	assert.Equal(t, mark, color.RGBAModel.Convert(out.At(0, 0)).(color.RGBA))
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name    string
		encoded string
		stage   string
	}{
		{name: "empty", encoded: "", stage: "base64"},
		{name: "bad base64", encoded: "!!not base64!!", stage: "base64"},
		{name: "not an image", encoded: base64.StdEncoding.EncodeToString([]byte("plain text")), stage: "image"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPipeline(0, 0).Transform(tc.encoded, types.OrientationUp)
			var decodeErr *ImageDecodeError
			require.True(t, errors.As(err, &decodeErr), "want ImageDecodeError, got %v", err)
			assert.Equal(t, tc.stage, decodeErr.Stage)
		})
	}
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline(0, -1)
	assert.Equal(t, DefaultDisplaySize, p.DisplaySize)
	assert.Equal(t, DefaultViewSize, p.ViewSize)
}
