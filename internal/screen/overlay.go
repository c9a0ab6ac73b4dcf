package screen

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/xkilldash9x/gridpilot/internal/grid"
)

// Overlay colors follow the desktop mapper: cyan cell borders, yellow
// labels on a translucent black backing box, everything at half opacity so
// the underlying UI stays legible to the model.
var (
	gridLineColor  = color.NRGBA{R: 0, G: 255, B: 255, A: 127}
	labelColor     = color.NRGBA{R: 255, G: 255, B: 0, A: 127}
	labelBackColor = color.NRGBA{R: 0, G: 0, B: 0, A: 127}
)

// RenderOverlay flattens the 40x40 grid and center-anchored coordinate
// labels onto a copy of the capture. The input image is not modified.
func RenderOverlay(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	cw, ch := grid.CellSize(w, h)
	if cw < 1 || ch < 1 {
		return dst
	}

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(labelColor), Face: face}

	for _, coord := range grid.All() {
		x, y := coord.CellOrigin(w, h)
		drawRectOutline(dst, x, y, cw, ch, gridLineColor)

		label := coord.String()
		textWidth := drawer.MeasureString(label).Ceil()
		textHeight := face.Metrics().Height.Ceil()
		textX := x + (cw-textWidth)/2
		textY := y + (ch+textHeight)/2

		fillRect(dst, textX-2, textY-textHeight, textWidth+4, textHeight+2, labelBackColor)
		drawer.Dot = fixed.P(textX, textY)
		drawer.DrawString(label)
	}
	return dst
}

// drawRectOutline blends a 1px rectangle border into dst.
func drawRectOutline(dst *image.RGBA, x, y, w, h int, c color.Color) {
	drawHLine(dst, x, x+w, y, c)
	drawHLine(dst, x, x+w, y+h-1, c)
	drawVLine(dst, x, y, y+h, c)
	drawVLine(dst, x+w-1, y, y+h, c)
}

func drawHLine(dst *image.RGBA, x0, x1, y int, c color.Color) {
	blend := image.NewUniform(c)
	draw.Draw(dst, image.Rect(x0, y, x1, y+1), blend, image.Point{}, draw.Over)
}

func drawVLine(dst *image.RGBA, x, y0, y1 int, c color.Color) {
	blend := image.NewUniform(c)
	draw.Draw(dst, image.Rect(x, y0, x+1, y1), blend, image.Point{}, draw.Over)
}

func fillRect(dst *image.RGBA, x, y, w, h int, c color.Color) {
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), image.NewUniform(c), image.Point{}, draw.Over)
}
