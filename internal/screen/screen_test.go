package screen

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/gridpilot/internal/grid"
)

// fakeCapturer returns a fixed-size solid frame, or an error.
type fakeCapturer struct {
	width, height int
	err           error
}

func (f *fakeCapturer) Capture() (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for i := range img.Pix {
		img.Pix[i] = 0x30
	}
	return img, nil
}

func (f *fakeCapturer) Size() (int, int) { return f.width, f.height }

func TestTake(t *testing.T) {
	snap, err := Take(&fakeCapturer{width: 800, height: 600})
	require.NoError(t, err)

	assert.False(t, snap.TakenAt.IsZero())
	assert.Equal(t, snap.Raw.Bounds(), snap.Composited.Bounds())

	// The composited frame must differ from the raw one: grid lines were drawn.
	rawPNG, err := snap.RawPNG()
	require.NoError(t, err)
	compPNG, err := snap.CompositedPNG()
	require.NoError(t, err)
	assert.NotEqual(t, rawPNG, compPNG)

	// Both encodings are valid PNGs.
	for _, data := range [][]byte{rawPNG, compPNG} {
		_, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
	}
}

func TestTakePropagatesCaptureFailure(t *testing.T) {
	_, err := Take(&fakeCapturer{err: ErrCaptureUnavailable})
	require.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestRenderOverlayDrawsGridLines(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	dst := RenderOverlay(src)

	// Cells are 48x27; (100, 27) sits on the top border of the second row,
	// away from any label box, and must carry the cyan grid color.
	r, g, b, _ := dst.At(100, 27).RGBA()
	assert.Greater(t, g, r, "grid line should add green")
	assert.Greater(t, b, r, "grid line should add blue")
	assert.Positive(t, g)
}

func TestRenderOverlayLeavesSourceUntouched(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 400))
	_ = RenderOverlay(src)

	for _, p := range src.Pix {
		require.Zero(t, p, "source image must not be modified")
	}
}

func TestAnnotateTarget(t *testing.T) {
	table, err := grid.NewPositionTable(1920, 1080)
	require.NoError(t, err)
	coord, err := grid.Parse("aa01")
	require.NoError(t, err)

	src := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	dst, err := AnnotateTarget(src, coord, table)
	require.NoError(t, err)

	// Crosshair center at the reference pixel (24, 13) is pure red.
	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(24, 13))

	// A pixel inside the highlighted cell but off the marks carries the
	// yellow tint.
	r, g, b, _ := dst.At(2, 2).RGBA()
	assert.Equal(t, r, g)
	assert.Greater(t, r, b)
}

func TestRenderClickTest(t *testing.T) {
	img, err := RenderClickTest(1920, 1080)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), img.Bounds())

	// Center of aa01 carries the red sample crosshair.
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(24, 13))

	// Background stays white away from samples.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(1000, 500))
}

func TestEncodePNGRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	data, err := EncodePNG(src)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())
}

func TestFakeCapturerContract(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := (&fakeCapturer{err: sentinel}).Capture()
	assert.ErrorIs(t, err, sentinel)
}
