package shadow

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/cwbudde/shadowcast/internal/raster"
)

// gradientLayer has a distinct alpha per column so shifts are easy to see.
func gradientLayer(t *testing.T, w, h int) *raster.Buffer {
	t.Helper()
	buf := solid(t, w, h, transparent)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.SetPixel(x, y, color.NRGBA{0, 0, 0, uint8(10 + x*10 + y)})
		}
	}
	return buf
}

func depthOf(t *testing.T, w, h int, d uint8) *raster.Buffer {
	return solid(t, w, h, color.NRGBA{d, d, d, 255})
}

func TestWarpDimensionMismatch(t *testing.T) {
	layer := solid(t, 4, 4, black)
	_, err := Warp(layer, depthOf(t, 4, 5, 0), 10, 0)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestWarpZeroDepthIsIdentity(t *testing.T) {
	layer := gradientLayer(t, 8, 6)
	out, err := Warp(layer, depthOf(t, 8, 6, 0), 90, -40)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if !bytes.Equal(out.Pix, layer.Pix) {
		t.Error("Zero depth should leave the layer unchanged")
	}
}

func TestWarpSubPixelOffsetIsIdentity(t *testing.T) {
	// Mid-grey depth with a small light offset shifts by less than a pixel
	layer := gradientLayer(t, 8, 6)
	out, err := Warp(layer, depthOf(t, 8, 6, 128), 1.5, 1.5)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if !bytes.Equal(out.Pix, layer.Pix) {
		t.Error("Sub-pixel warp should leave the layer unchanged")
	}
}

func TestWarpShift(t *testing.T) {
	layer := gradientLayer(t, 8, 2)
	// d = 1 so the sample offset is dx * 0.5 = 2 columns
	out, err := Warp(layer, depthOf(t, 8, 2, 255), 4, 0)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}

	for y := 0; y < 2; y++ {
		for x := 0; x < 6; x++ {
			if got, want := pixel(t, out, x, y), pixel(t, layer, x+2, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
		for x := 6; x < 8; x++ {
			if pixel(t, out, x, y).A != 0 {
				t.Errorf("(%d,%d) samples outside the layer and should be transparent", x, y)
			}
		}
	}
}

func TestWarpNegativeShiftFloors(t *testing.T) {
	layer := gradientLayer(t, 6, 1)
	// Offset -1.5: column x samples floor(x-1.5) = x-2
	out, err := Warp(layer, depthOf(t, 6, 1, 255), -3, 0)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if pixel(t, out, 0, 0).A != 0 || pixel(t, out, 1, 0).A != 0 {
		t.Error("Leading columns sample outside and should be transparent")
	}
	for x := 2; x < 6; x++ {
		if got, want := pixel(t, out, x, 0), pixel(t, layer, x-2, 0); got != want {
			t.Errorf("(%d,0) = %v, want %v", x, got, want)
		}
	}
}

func TestWarpLeavesGaps(t *testing.T) {
	// Depth varies per column, so neighbouring destinations sample the same
	// source and some source pixels are never copied.
	layer := gradientLayer(t, 6, 1)
	depth := solid(t, 6, 1, transparent)
	for x := 0; x < 6; x++ {
		depth.SetPixel(x, 0, color.NRGBA{uint8(x * 51), 0, 0, 255})
	}

	// Column x samples floor(1.5x): 0, 1, 3, 4, then outside
	out, err := Warp(layer, depth, 5, 0)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}

	skipped := pixel(t, layer, 2, 0).A
	for x := 0; x < 6; x++ {
		if pixel(t, out, x, 0).A == skipped {
			t.Errorf("Source column 2 should not be copied, found at %d", x)
		}
	}
	for x := 4; x < 6; x++ {
		if pixel(t, out, x, 0).A != 0 {
			t.Errorf("Column %d should be a transparent hole", x)
		}
	}
}
