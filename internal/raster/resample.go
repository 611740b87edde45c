package raster

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Crop copies rect out of src into a new buffer of rect's size. Parts of rect
// that fall outside src read as transparent black.
func Crop(src *Buffer, rect image.Rectangle) (*Buffer, error) {
	dst, err := New(rect.Dx(), rect.Dy())
	if err != nil {
		return nil, fmt.Errorf("crop %v: %w", rect, err)
	}

	visible := rect.Intersect(src.Bounds())
	if visible.Empty() {
		return dst, nil
	}

	rowLen := visible.Dx() * 4
	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		si := (y*src.Width + visible.Min.X) * 4
		di := ((y-rect.Min.Y)*dst.Width + (visible.Min.X - rect.Min.X)) * 4
		copy(dst.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
	return dst, nil
}

// Resize resamples src to width x height. Scaling is done on premultiplied
// samples so transparent edges do not bleed dark fringes into the result.
func Resize(src *Buffer, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize to %dx%d: %w", width, height, ErrEmptyRaster)
	}
	if src.Width == width && src.Height == height {
		return src.Clone(), nil
	}

	premul := image.NewRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		a := uint32(src.Pix[i+3])
		premul.Pix[i+0] = uint8((uint32(src.Pix[i+0])*a + 127) / 255)
		premul.Pix[i+1] = uint8((uint32(src.Pix[i+1])*a + 127) / 255)
		premul.Pix[i+2] = uint8((uint32(src.Pix[i+2])*a + 127) / 255)
		premul.Pix[i+3] = uint8(a)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	interp := draw.Interpolator(draw.CatmullRom)
	if width > src.Width || height > src.Height {
		// CatmullRom overshoots when enlarging hard alpha edges
		interp = draw.BiLinear
	}
	interp.Scale(scaled, scaled.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	dst := &Buffer{Width: width, Height: height, Pix: make([]uint8, width*height*4)}
	for i := 0; i < len(scaled.Pix); i += 4 {
		a := scaled.Pix[i+3]
		dst.Pix[i+3] = a
		if a == 0 {
			continue
		}
		inv := 255.0 / float64(a)
		dst.Pix[i+0] = clamp8(float64(scaled.Pix[i+0]) * inv)
		dst.Pix[i+1] = clamp8(float64(scaled.Pix[i+1]) * inv)
		dst.Pix[i+2] = clamp8(float64(scaled.Pix[i+2]) * inv)
	}
	return dst, nil
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
