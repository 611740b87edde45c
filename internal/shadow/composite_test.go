package shadow

import (
	"image/color"
	"testing"
)

func TestDrawOverOpaqueAndTransparent(t *testing.T) {
	dst := solid(t, 4, 4, white)
	src := solid(t, 2, 2, transparent)
	src.SetPixel(0, 0, color.NRGBA{255, 0, 0, 255})

	DrawOver(dst, src, 1, 1)

	if got := pixel(t, dst, 1, 1); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("Opaque pixel not copied: %v", got)
	}
	if got := pixel(t, dst, 2, 2); got != white {
		t.Errorf("Transparent pixel changed destination: %v", got)
	}
}

func TestDrawOverHalfAlpha(t *testing.T) {
	dst := solid(t, 1, 1, white)
	src := solid(t, 1, 1, color.NRGBA{0, 0, 0, 128})

	DrawOver(dst, src, 0, 0)

	got := pixel(t, dst, 0, 0)
	if got.A != 255 {
		t.Errorf("Alpha over opaque should stay opaque, got %d", got.A)
	}
	if got.R < 126 || got.R > 128 || got.R != got.G || got.G != got.B {
		t.Errorf("Half black over white = %v, want ~127 grey", got)
	}
}

func TestDrawOverTransparentDestination(t *testing.T) {
	dst := solid(t, 1, 1, transparent)
	src := solid(t, 1, 1, color.NRGBA{200, 100, 50, 64})

	DrawOver(dst, src, 0, 0)

	if got := pixel(t, dst, 0, 0); got != (color.NRGBA{200, 100, 50, 64}) {
		t.Errorf("Over transparent should yield the source, got %v", got)
	}
}

func TestDrawOverClips(t *testing.T) {
	dst := solid(t, 4, 4, white)
	src := solid(t, 3, 3, black)

	DrawOver(dst, src, -2, -2)
	if pixel(t, dst, 0, 0) != black || pixel(t, dst, 1, 1) != white {
		t.Error("Negative offset should clip the top-left of src")
	}

	DrawOver(dst, src, 3, 3)
	if pixel(t, dst, 3, 3) != black || pixel(t, dst, 2, 2) != white {
		t.Error("Overhang should clip the bottom-right of src")
	}

	// Entirely outside: no panic, no change
	DrawOver(dst, src, 10, 10)
	DrawOver(dst, src, -10, 0)
}
