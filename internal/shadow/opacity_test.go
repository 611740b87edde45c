package shadow

import (
	"context"
	"image/color"
	"math"
	"testing"
)

func TestSilhouetteThreshold(t *testing.T) {
	fg := solid(t, 4, 1, transparent)
	fg.SetPixel(0, 0, color.NRGBA{0, 0, 0, 10})
	fg.SetPixel(1, 0, color.NRGBA{0, 0, 0, 11})
	fg.SetPixel(2, 0, color.NRGBA{255, 255, 255, 255})

	sil := ExtractSilhouette(fg)
	want := []bool{false, true, true, false}
	for x, w := range want {
		if sil.Contains(x, 0) != w {
			t.Errorf("Contains(%d,0) = %v, want %v", x, !w, w)
		}
	}
	if sil.Count() != 2 {
		t.Errorf("Count = %d, want 2", sil.Count())
	}
	if sil.Contains(-1, 0) || sil.Contains(4, 0) {
		t.Error("Out-of-range coordinates must not be inside")
	}
}

func TestEmptySilhouette(t *testing.T) {
	sil := ExtractSilhouette(solid(t, 8, 8, transparent))
	if !sil.Empty() {
		t.Error("Transparent foreground should yield an empty silhouette")
	}

	layer, err := Shaper{Intensity: 1}.Layer(context.Background(), sil, 0)
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}
	if alphaSum(layer) != 0 {
		t.Error("Empty silhouette should produce a transparent layer")
	}
}

func TestLowAlphaCastsNoShadow(t *testing.T) {
	fg := solid(t, 16, 16, transparent)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			fg.SetPixel(x, y, color.NRGBA{0, 0, 0, uint8((x + y*16) % 11)}) // alpha 0..10
		}
	}
	sil := ExtractSilhouette(fg)
	s := Shaper{Intensity: 1}

	for layer := 0; layer < DefaultLayers; layer++ {
		buf, err := s.Layer(context.Background(), sil, layer)
		if err != nil {
			t.Fatalf("Layer failed: %v", err)
		}
		if alphaSum(buf) != 0 {
			t.Errorf("Layer %d has shadow from alpha <= 10", layer)
		}
	}
}

func TestLayerOpacityNonIncreasing(t *testing.T) {
	for _, intensity := range []float64{0.1, 0.5, 0.7, 1} {
		s := Shaper{Intensity: intensity}
		for y := 0; y < 100; y += 7 {
			base := s.BaseOpacity(y, 100)
			prev := 2.0
			for layer := 0; layer < DefaultLayers; layer++ {
				op := LayerOpacity(base, layer)
				if op > prev {
					t.Errorf("intensity %v row %d: layer %d opacity %v > layer %d opacity %v",
						intensity, y, layer, op, layer-1, prev)
				}
				if op < 0 || op > 1 {
					t.Errorf("Opacity %v out of [0,1]", op)
				}
				prev = op
			}
		}
	}

	if f := LayerOpacity(1, 4); f < 0.4-1e-9 || f > 0.4+1e-9 {
		t.Errorf("Faintest of 5 layers should have factor 0.4, got %v", f)
	}
}

func TestBaseOpacityProfile(t *testing.T) {
	s := Shaper{Intensity: 0.7}
	const h = 100

	bottom := s.BaseOpacity(h-1, h)
	top := s.BaseOpacity(0, h)
	if bottom <= top {
		t.Errorf("Bottom row (%v) should be darker than top row (%v)", bottom, top)
	}

	// Above 30% of the height only the ambient term remains
	y := 50
	want := 0.7 * expFalloff(float64(h-y), h)
	if got := s.BaseOpacity(y, h); math.Abs(got-want) > 1e-12 {
		t.Errorf("BaseOpacity(%d) = %v, want %v", y, got, want)
	}

	// In the contact zone the boost is added and capped at 1
	if got := (Shaper{Intensity: 1}).BaseOpacity(h-1, h); got != 1 {
		t.Errorf("Full intensity at the base should cap at 1, got %v", got)
	}
}

func TestBaseOpacityDegenerate(t *testing.T) {
	s := Shaper{Intensity: 1}
	if got := s.BaseOpacity(0, 0); got != 0 {
		t.Errorf("Zero height should give 0, got %v", got)
	}
}

func TestZeroIntensityIsTransparent(t *testing.T) {
	sil := ExtractSilhouette(solid(t, 10, 10, black))
	s := Shaper{Intensity: 0}
	for y := 0; y < 10; y++ {
		if op := s.BaseOpacity(y, 10); op != 0 {
			t.Errorf("Row %d: opacity %v with zero intensity", y, op)
		}
	}
	buf, err := s.Layer(context.Background(), sil, 0)
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}
	if alphaSum(buf) != 0 {
		t.Error("Zero intensity layer should be transparent")
	}
}

func TestLayerPixelsAreBlack(t *testing.T) {
	sil := ExtractSilhouette(solid(t, 6, 6, white))
	buf, err := Shaper{Intensity: 0.9}.Layer(context.Background(), sil, 1)
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}
	for i := 0; i < len(buf.Pix); i += 4 {
		if buf.Pix[i] != 0 || buf.Pix[i+1] != 0 || buf.Pix[i+2] != 0 {
			t.Fatalf("Shadow pixel %d is not black: %v", i/4, buf.Pix[i:i+4])
		}
	}
	if pixel(t, buf, 0, 5).A <= pixel(t, buf, 0, 0).A {
		t.Error("Bottom row should be more opaque than top row")
	}
}

func TestLayerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sil := ExtractSilhouette(solid(t, 4, 4, black))
	if _, err := (Shaper{Intensity: 1}).Layer(ctx, sil, 0); err == nil {
		t.Error("Cancelled context should abort shaping")
	}
}

func expFalloff(fromBottom float64, h int) float64 {
	return math.Exp(-fromBottom / (float64(h) * 0.5))
}
