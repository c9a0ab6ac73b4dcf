package screen

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/xkilldash9x/gridpilot/internal/grid"
)

var (
	targetCellFill    = color.NRGBA{R: 255, G: 255, B: 0, A: 64}
	targetCellOutline = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	targetMarkColor   = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

// AnnotateTarget renders the intended click onto a copy of the capture:
// the target cell highlighted, a crosshair, and concentric circles at the
// exact pixel. Shown to the model for pre-click approval.
func AnnotateTarget(src image.Image, coord grid.Coordinate, table *grid.PositionTable) (*image.RGBA, error) {
	pt, ok := table.Lookup(coord)
	if !ok {
		return nil, grid.ErrInvalidCoordinate
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	w, h := table.Bounds()
	cw, ch := grid.CellSize(w, h)
	cx, cy := coord.CellOrigin(w, h)

	fillRect(dst, cx, cy, cw, ch, targetCellFill)
	drawRectOutline(dst, cx, cy, cw, ch, targetCellOutline)

	drawCrosshair(dst, pt.X, pt.Y, 20, targetMarkColor)
	for _, radius := range []int{20, 15, 10} {
		drawCircle(dst, pt.X, pt.Y, radius, targetMarkColor)
	}
	return dst, nil
}

// RenderClickTest draws sample coordinates over a white canvas for manual
// calibration of the grid math against the physical display.
func RenderClickTest(width, height int) (*image.RGBA, error) {
	samples := []struct {
		coord string
		color color.NRGBA
	}{
		{"aa01", color.NRGBA{R: 255, A: 255}},                  // top left
		{"an01", color.NRGBA{B: 255, A: 255}},                  // top right of first block
		{"aa20", color.NRGBA{G: 128, A: 255}},                  // middle left
		{"an20", color.NRGBA{R: 128, B: 128, A: 255}},          // middle
		{"aa40", color.NRGBA{R: 255, G: 165, A: 255}},          // bottom left
		{"an40", color.NRGBA{G: 255, B: 255, A: 255}},          // bottom
		{"ah20", color.NRGBA{R: 255, B: 255, A: 255}},          // center-ish
		{"bn40", color.NRGBA{R: 128, G: 128, B: 128, A: 255}}, // far corner
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	cw, ch := grid.CellSize(width, height)
	for _, s := range samples {
		coord, err := grid.Parse(s.coord)
		if err != nil {
			return nil, err
		}
		x, y, err := coord.Center(width, height)
		if err != nil {
			return nil, err
		}

		ox, oy := coord.CellOrigin(width, height)
		drawRectOutline(dst, ox, oy, cw, ch, s.color)
		drawCrosshair(dst, x, y, 10, s.color)
		drawCircle(dst, x, y, 5, s.color)
	}
	return dst, nil
}

func drawCrosshair(dst *image.RGBA, x, y, size int, c color.Color) {
	drawHLine(dst, x-size, x+size+1, y, c)
	drawVLine(dst, x, y-size, y+size+1, c)
}

// drawCircle rasterizes a 1px circle outline by scanning the bounding box.
func drawCircle(dst *image.RGBA, cx, cy, r int, c color.Color) {
	rr := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d := dx*dx + dy*dy
			if d >= rr-r && d <= rr+r {
				dst.Set(cx+dx, cy+dy, c)
			}
		}
	}
}
