package shadow

import (
	"github.com/cwbudde/shadowcast/internal/raster"
)

const inv255 = 1.0 / 255.0

// DrawOver composites src onto dst with its top-left corner at (x,y) using
// the Porter-Duff "over" operator. Parts of src outside dst are clipped.
func DrawOver(dst, src *raster.Buffer, x, y int) {
	minX, minY := max(0, x), max(0, y)
	maxX, maxY := min(dst.Width, x+src.Width), min(dst.Height, y+src.Height)
	if minX >= maxX || minY >= maxY {
		return
	}

	for dy := minY; dy < maxY; dy++ {
		si := ((dy-y)*src.Width + (minX - x)) * 4
		di := (dy*dst.Width + minX) * 4
		for dx := minX; dx < maxX; dx++ {
			if a := src.Pix[si+3]; a == 255 {
				copy(dst.Pix[di:di+4], src.Pix[si:si+4])
			} else if a > 0 {
				blendPixel(dst.Pix[di:di+4], src.Pix[si:si+4])
			}
			si += 4
			di += 4
		}
	}
}

// blendPixel blends one non-premultiplied source sample over dst in place.
func blendPixel(dst, src []uint8) {
	fgA := float64(src[3]) * inv255
	bgA := float64(dst[3]) * inv255

	outA := fgA + bgA*(1-fgA)
	if outA == 0 {
		return
	}

	invOutA := 1.0 / outA
	bgBlend := bgA * (1 - fgA)

	for c := 0; c < 3; c++ {
		fg := float64(src[c]) * inv255 * fgA
		bg := float64(dst[c]) * inv255 * bgBlend
		dst[c] = uint8((fg+bg)*invOutA*255 + 0.5)
	}
	dst[3] = uint8(outA*255 + 0.5)
}
