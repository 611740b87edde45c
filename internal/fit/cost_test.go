package fit

import (
	"image/color"
	"math"
	"testing"

	"github.com/cwbudde/shadowcast/internal/raster"
)

func filled(t *testing.T, w, h int, c color.NRGBA) *raster.Buffer {
	t.Helper()
	buf, err := raster.New(w, h)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	buf.Fill(c)
	return buf
}

func TestMSECost(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	cost := MSECost(filled(t, 2, 2, white), filled(t, 2, 2, white))
	if cost != 0 {
		t.Errorf("Identical rasters should have cost 0, got %f", cost)
	}
}

func TestMSECostDifferent(t *testing.T) {
	white := filled(t, 2, 2, color.NRGBA{255, 255, 255, 255})
	black := filled(t, 2, 2, color.NRGBA{0, 0, 0, 255})

	// Each pixel diff: 255^2 * 3 channels; mean over pixels and channels = 255^2
	if cost := MSECost(white, black); cost != 65025.0 {
		t.Errorf("Expected cost 65025, got %f", cost)
	}
}

func TestMSECostSinglePixel(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	a := filled(t, 2, 2, white)
	b := filled(t, 2, 2, white)
	b.SetPixel(0, 0, color.NRGBA{255, 0, 0, 255})

	// MSE = (0 + 65025 + 65025) / (4 pixels * 3 channels) = 10837.5
	if cost := MSECost(a, b); cost != 10837.5 {
		t.Errorf("Expected cost 10837.5, got %f", cost)
	}
}

func TestMSECostIgnoresAlpha(t *testing.T) {
	a := filled(t, 2, 1, color.NRGBA{10, 20, 30, 255})
	b := filled(t, 2, 1, color.NRGBA{10, 20, 30, 0})
	if cost := MSECost(a, b); cost != 0 {
		t.Errorf("Alpha should not count, got %f", cost)
	}
}

func TestMSECostSizeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on size mismatch")
		}
	}()
	MSECost(filled(t, 2, 2, color.NRGBA{}), filled(t, 3, 2, color.NRGBA{}))
}

func TestSSDUnrolledMatchesNaive(t *testing.T) {
	// Widths around the four-pixel batch boundary
	for _, w := range []int{1, 3, 4, 5, 7, 8, 13} {
		a := filled(t, w, 3, color.NRGBA{})
		b := filled(t, w, 3, color.NRGBA{})
		for i := range a.Pix {
			a.Pix[i] = uint8(i * 37)
			b.Pix[i] = uint8(i * 11)
		}

		var naive float64
		for i := 0; i < len(a.Pix); i += 4 {
			for c := 0; c < 3; c++ {
				d := float64(a.Pix[i+c]) - float64(b.Pix[i+c])
				naive += d * d
			}
		}

		if got := ssd(a.Pix, b.Pix); got != naive {
			t.Errorf("width %d: ssd = %f, naive = %f", w, got, naive)
		}
	}
}

func TestWeightedSADCost(t *testing.T) {
	white := filled(t, 2, 2, color.NRGBA{255, 255, 255, 255})
	if cost := WeightedSADCost(white, white); cost != 0 {
		t.Errorf("Identical rasters should have cost 0, got %f", cost)
	}

	b := filled(t, 2, 2, color.NRGBA{255, 255, 255, 255})
	b.SetPixel(0, 0, color.NRGBA{255, 255, 245, 0})

	// One pixel differs by 10: 10*(255+90) over 4 pixels
	want := 3450 * sadScale / 4
	if cost := WeightedSADCost(white, b); math.Abs(cost-want) > 1e-12 {
		t.Errorf("Expected %g, got %g", want, cost)
	}
}

func TestWeightedSADPenalizesLargeDifferences(t *testing.T) {
	ref := filled(t, 2, 1, color.NRGBA{100, 100, 100, 255})

	// Same total absolute difference, spread versus concentrated
	spread := filled(t, 2, 1, color.NRGBA{110, 100, 100, 255})
	concentrated := filled(t, 2, 1, color.NRGBA{100, 100, 100, 255})
	concentrated.SetPixel(0, 0, color.NRGBA{120, 100, 100, 255})

	if WeightedSADCost(concentrated, ref) <= WeightedSADCost(spread, ref) {
		t.Error("Concentrated differences should cost more")
	}
}

func TestCostByName(t *testing.T) {
	for _, name := range []string{"", "mse", "sad"} {
		if _, err := CostByName(name); err != nil {
			t.Errorf("CostByName(%q) failed: %v", name, err)
		}
	}
	if _, err := CostByName("ssim"); err == nil {
		t.Error("Expected error for unknown cost")
	}
}
