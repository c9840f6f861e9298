package tile

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"hangar-inspect/pkg/geometry"
)

var (
	colorPending   = color.RGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF} // unvalidated box
	colorValidated = color.RGBA{R: 0x43, G: 0xA0, B: 0x47, A: 0xFF} // validated box
	colorDraft     = color.RGBA{R: 0xFF, G: 0xD5, B: 0x00, A: 0xFF} // in-progress draft
	colorLabelBG   = color.RGBA{R: 0, G: 0, B: 0, A: 0xB0}
)

// drawRectOutline draws a 2px rectangle outline clipped to the output.
func drawRectOutline(out *image.RGBA, r geometry.Rect, col color.RGBA) {
	x0, y0 := int(r.X), int(r.Y)
	x1, y1 := int(r.X+r.Width), int(r.Y+r.Height)
	for t := 0; t < 2; t++ {
		drawHLine(out, x0, x1, y0+t, col)
		drawHLine(out, x0, x1, y1-t, col)
		drawVLine(out, x0+t, y0, y1, col)
		drawVLine(out, x1-t, y0, y1, col)
	}
}

func drawHLine(out *image.RGBA, x0, x1, y int, col color.RGBA) {
	b := out.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := max(x0, b.Min.X); x <= min(x1, b.Max.X-1); x++ {
		out.SetRGBA(x, y, col)
	}
}

func drawVLine(out *image.RGBA, x, y0, y1 int, col color.RGBA) {
	b := out.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := max(y0, b.Min.Y); y <= min(y1, b.Max.Y-1); y++ {
		out.SetRGBA(x, y, col)
	}
}

// drawLabel renders box labels with a dark backing strip so they stay
// readable over bright frames.
func drawLabel(out *image.RGBA, x, y int, text string, col color.RGBA) {
	if text == "" {
		return
	}

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x+2, y+11),
	}

	w := d.MeasureString(text).Ceil()
	bg := image.Rect(x, y, x+w+4, y+14).Intersect(out.Bounds())
	for py := bg.Min.Y; py < bg.Max.Y; py++ {
		for px := bg.Min.X; px < bg.Max.X; px++ {
			out.SetRGBA(px, py, colorLabelBG)
		}
	}

	d.DrawString(text)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
