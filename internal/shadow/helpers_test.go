package shadow

import (
	"image/color"
	"testing"

	"github.com/cwbudde/shadowcast/internal/raster"
)

func solid(t *testing.T, w, h int, c color.NRGBA) *raster.Buffer {
	t.Helper()
	buf, err := raster.New(w, h)
	if err != nil {
		t.Fatalf("raster.New(%d,%d): %v", w, h, err)
	}
	buf.Fill(c)
	return buf
}

func pixel(t *testing.T, buf *raster.Buffer, x, y int) color.NRGBA {
	t.Helper()
	c, err := buf.Pixel(x, y)
	if err != nil {
		t.Fatalf("Pixel(%d,%d): %v", x, y, err)
	}
	return c
}

func alphaSum(buf *raster.Buffer) float64 {
	var sum float64
	for i := 3; i < len(buf.Pix); i += 4 {
		sum += float64(buf.Pix[i])
	}
	return sum
}

var (
	white       = color.NRGBA{255, 255, 255, 255}
	black       = color.NRGBA{0, 0, 0, 255}
	transparent = color.NRGBA{}
)
