package shadow

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrDegeneratePlacement is returned when the foreground would be drawn at
// zero width or height.
var ErrDegeneratePlacement = errors.New("foreground placement has zero size")

const (
	fitFraction  = 0.6 // share of the limiting canvas dimension the subject fills
	bottomMargin = 50  // pixels between the subject's base and the canvas bottom
)

// Placement is where and how large the foreground is drawn on the canvas.
type Placement struct {
	Scale  float64 `json:"scale"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	// X and Y are the unrounded top-left corner; Origin gives the pixel grid position.
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Place fits a fgW x fgH subject into 60% of the limiting dimension of a
// bgW x bgH canvas, centered horizontally and resting 50px above the bottom.
// Scaled sizes are truncated to whole pixels.
func Place(bgW, bgH, fgW, fgH int) (Placement, error) {
	return PlaceScaled(bgW, bgH, fgW, fgH, 1)
}

// PlaceScaled is Place on a canvas drawn at pixelScale times the nominal
// resolution: the bottom margin shrinks with it.
func PlaceScaled(bgW, bgH, fgW, fgH int, pixelScale float64) (Placement, error) {
	if bgW <= 0 || bgH <= 0 || fgW <= 0 || fgH <= 0 {
		return Placement{}, fmt.Errorf("%w: background %dx%d, foreground %dx%d",
			ErrDegeneratePlacement, bgW, bgH, fgW, fgH)
	}

	scale := math.Min(float64(bgW)/float64(fgW), float64(bgH)/float64(fgH)) * fitFraction
	w := float64(fgW) * scale
	h := float64(fgH) * scale

	p := Placement{
		Scale:  scale,
		Width:  int(w),
		Height: int(h),
		X:      (float64(bgW) - w) / 2,
		Y:      float64(bgH) - h - bottomMargin*pixelScale,
	}
	if p.Width == 0 || p.Height == 0 {
		return Placement{}, fmt.Errorf("%w: %.3fx%.3f", ErrDegeneratePlacement, w, h)
	}
	return p, nil
}

// Origin is the top-left corner snapped to the pixel grid.
func (p Placement) Origin() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Rect is the canvas rectangle covered by the foreground.
func (p Placement) Rect() image.Rectangle {
	o := p.Origin()
	return image.Rect(o.X, o.Y, o.X+p.Width, o.Y+p.Height)
}
