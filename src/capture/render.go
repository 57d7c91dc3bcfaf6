package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	maskAlpha    = 100
	outlineWidth = 2
	labelOffsetX = 5
	labelOffsetY = 20
)

var outlineColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Render draws one overlay frame: background darkened by a translucent black mask,
// the selection left as the untouched background, a white outline around it and a
// "W x H" label. The selection is in background coordinates. background is not modified.
func Render(background *image.RGBA, selection image.Rectangle, visible bool) *image.RGBA {
	bounds := background.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, background, bounds.Min, draw.Src)
	draw.Draw(out, bounds, image.NewUniform(color.RGBA{A: maskAlpha}), image.Point{}, draw.Over)

	if !visible {
		return out
	}
	hole := selection.Intersect(bounds)
	if !hole.Empty() {
		draw.Draw(out, hole, background, hole.Min, draw.Src)
	}
	drawOutline(out, selection)
	drawLabel(out, selection)
	return out
}

// Label returns the size text shown next to a selection.
func Label(selection image.Rectangle) string {
	return fmt.Sprintf("%d x %d", selection.Dx(), selection.Dy())
}

func drawOutline(dst *image.RGBA, r image.Rectangle) {
	src := image.NewUniform(outlineColor)
	outer := r.Inset(-outlineWidth)
	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, r.Min.Y),
		image.Rect(outer.Min.X, r.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, r.Min.Y, r.Min.X, r.Max.Y),
		image.Rect(r.Max.X, r.Min.Y, outer.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, r image.Rectangle) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(outlineColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(r.Max.X+labelOffsetX, r.Min.Y+labelOffsetY),
	}
	d.DrawString(Label(r))
}
