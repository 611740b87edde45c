package shadow

import (
	"math"

	"github.com/cwbudde/shadowcast/internal/raster"
)

// blurPasses is how many box passes stand in for one Gaussian.
const blurPasses = 3

// boxRadii returns the radii of blurPasses box filters whose combined
// variance approximates a Gaussian with the given sigma. Widths are odd and
// differ by at most 2.
func boxRadii(sigma float64) []int {
	radii := make([]int, blurPasses)
	if sigma <= 0 {
		return radii
	}

	n := float64(blurPasses)
	ideal := math.Sqrt(12*sigma*sigma/n + 1)
	lower := int(math.Floor(ideal))
	if lower%2 == 0 {
		lower--
	}
	upper := lower + 2

	wl := float64(lower)
	m := int(math.Round((12*sigma*sigma - n*wl*wl - 4*n*wl - 3*n) / (-4*wl - 4)))
	m = min(max(m, 0), blurPasses)

	for i := range radii {
		w := upper
		if i < m {
			w = lower
		}
		radii[i] = (w - 1) / 2
	}
	return radii
}

// BlurPadding is how far Blur grows the raster on every side for radius.
func BlurPadding(radius float64) int {
	pad := 0
	for _, r := range boxRadii(radius) {
		pad += r
	}
	return pad
}

// Blur softens src like a canvas blur(Npx) filter: three box passes per axis
// approximate a Gaussian with sigma = radius, at a cost per pixel that does
// not depend on the radius. Pixels outside src count as transparent, so the
// result is padded by BlurPadding(radius) on each side to hold the spread;
// the caller shifts its draw position back by that padding. Filtering runs
// on premultiplied samples.
func Blur(src *raster.Buffer, radius float64) (*raster.Buffer, int, error) {
	radii := boxRadii(radius)
	pad := 0
	for _, r := range radii {
		pad += r
	}
	if pad == 0 {
		return src.Clone(), 0, nil
	}

	sw, sh := src.Width, src.Height
	ow, oh := sw+2*pad, sh+2*pad

	plane := make([]float32, ow*oh*4)
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			si := (y*sw + x) * 4
			a := float32(src.Pix[si+3])
			if a == 0 {
				continue
			}
			f := a / 255
			pi := ((y+pad)*ow + x + pad) * 4
			plane[pi+0] = float32(src.Pix[si+0]) * f
			plane[pi+1] = float32(src.Pix[si+1]) * f
			plane[pi+2] = float32(src.Pix[si+2]) * f
			plane[pi+3] = a
		}
	}

	// Rows outside the source stay empty until the vertical passes
	scratch := make([]float32, max(ow, oh)*4)
	for _, r := range radii {
		for y := pad; y < pad+sh; y++ {
			boxLine(plane, scratch, y*ow*4, 4, ow, r)
		}
	}
	for _, r := range radii {
		for x := 0; x < ow; x++ {
			boxLine(plane, scratch, x*4, ow*4, oh, r)
		}
	}

	out, err := raster.New(ow, oh)
	if err != nil {
		return nil, 0, err
	}
	for i := 0; i < len(plane); i += 4 {
		a := plane[i+3]
		alpha := clampUint8(a)
		if alpha == 0 {
			continue
		}
		inv := 255 / a
		out.Pix[i+0] = clampUint8(plane[i+0] * inv)
		out.Pix[i+1] = clampUint8(plane[i+1] * inv)
		out.Pix[i+2] = clampUint8(plane[i+2] * inv)
		out.Pix[i+3] = alpha
	}
	return out, pad, nil
}

// boxLine replaces n RGBA samples of buf, starting at offset and stride
// floats apart, with their mean over a window of 2r+1 samples. Samples past
// either end count as zero. scratch must hold n*4 floats.
func boxLine(buf, scratch []float32, offset, stride, n, r int) {
	if r == 0 {
		return
	}
	line := scratch[:n*4]
	for i := 0; i < n; i++ {
		copy(line[i*4:i*4+4], buf[offset+i*stride:offset+i*stride+4])
	}

	inv := 1 / float32(2*r+1)
	var sum [4]float32
	for i := 0; i < min(r, n); i++ {
		for c := 0; c < 4; c++ {
			sum[c] += line[i*4+c]
		}
	}
	for i := 0; i < n; i++ {
		if in := i + r; in < n {
			for c := 0; c < 4; c++ {
				sum[c] += line[in*4+c]
			}
		}
		if out := i - r - 1; out >= 0 {
			for c := 0; c < 4; c++ {
				sum[c] -= line[out*4+c]
			}
		}
		di := offset + i*stride
		for c := 0; c < 4; c++ {
			buf[di+c] = sum[c] * inv
		}
	}
}

func clampUint8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
