package shadow

import (
	"math"
	"testing"
)

func TestLightNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Light
		want Light
	}{
		{"in_range", Light{45, 45, 0.7}, Light{45, 45, 0.7}},
		{"wrap_positive", Light{450, 10, 0.5}, Light{90, 10, 0.5}},
		{"wrap_negative", Light{-90, 10, 0.5}, Light{270, 10, 0.5}},
		{"full_turn", Light{360, 10, 0.5}, Light{0, 10, 0.5}},
		{"clamp_high", Light{0, 120, 3}, Light{0, 90, 1}},
		{"clamp_low", Light{0, -5, -1}, Light{0, 0, 0}},
		{"nan", Light{math.NaN(), math.NaN(), math.NaN()}, Light{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if math.Abs(got.Angle-tt.want.Angle) > 1e-9 ||
				got.Elevation != tt.want.Elevation ||
				got.Intensity != tt.want.Intensity {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOffsetAndBlurNonIncreasingInElevation(t *testing.T) {
	prevDist := math.Inf(1)
	prevBlur := math.Inf(1)
	prevLayerBlur := math.MaxInt

	for elev := 0.0; elev <= 90; elev++ {
		l := Light{Angle: 30, Elevation: elev, Intensity: 0.5}
		m := MapLight(l, DefaultLayers)

		if m.BaseDistance < 0 {
			t.Fatalf("elevation %v: negative base distance %v", elev, m.BaseDistance)
		}
		if m.BaseDistance > prevDist {
			t.Errorf("elevation %v: base distance increased %v -> %v", elev, prevDist, m.BaseDistance)
		}
		mag := math.Hypot(m.OffsetX, m.OffsetY)
		if math.Abs(mag-m.BaseDistance) > 1e-9 {
			t.Errorf("elevation %v: offset magnitude %v != base distance %v", elev, mag, m.BaseDistance)
		}

		ds := l.DropShadow()
		if ds.Blur < 0 || ds.Blur > prevBlur {
			t.Errorf("elevation %v: drop shadow blur %v after %v", elev, ds.Blur, prevBlur)
		}

		r := m.BlurRadius(DefaultLayers - 1)
		if r < 0 || r > prevLayerBlur {
			t.Errorf("elevation %v: layer blur %d after %d", elev, r, prevLayerBlur)
		}

		prevDist, prevBlur, prevLayerBlur = m.BaseDistance, ds.Blur, r
	}
}

func TestBlurRadiusGrowsWithLayer(t *testing.T) {
	m := MapLight(DefaultLight(), DefaultLayers)
	want := []int{2, 5, 8, 11, 14}
	for layer, w := range want {
		if got := m.BlurRadius(layer); got != w {
			t.Errorf("BlurRadius(%d) = %d, want %d", layer, got, w)
		}
	}
}

func TestMapLightScenario(t *testing.T) {
	m := MapLight(Light{Angle: 0, Elevation: 45, Intensity: 0.7}, DefaultLayers)

	if m.BaseDistance != 90 {
		t.Errorf("BaseDistance = %v, want 90", m.BaseDistance)
	}
	if math.Abs(m.OffsetX-90) > 1e-9 || math.Abs(m.OffsetY) > 1e-9 {
		t.Errorf("Offset = (%v,%v), want (90,0)", m.OffsetX, m.OffsetY)
	}
	if m.OpacityCeiling != 0.7 {
		t.Errorf("OpacityCeiling = %v, want 0.7", m.OpacityCeiling)
	}

	x, y := m.LayerPosition(2, 40, 30)
	if math.Abs(x-166) > 1e-9 || math.Abs(y-30) > 1e-9 {
		t.Errorf("LayerPosition(2) = (%v,%v), want (166,30)", x, y)
	}
}

func TestMappingScaled(t *testing.T) {
	m := MapLight(Light{Angle: 0, Elevation: 45, Intensity: 0.7}, 3)
	half := m.Scaled(0.5)

	if half.Light != m.Light || half.Layers != m.Layers {
		t.Errorf("Scaling changed the light: %+v", half)
	}
	if half.BaseDistance != 45 || math.Abs(half.OffsetX-45) > 1e-9 || math.Abs(half.OffsetY) > 1e-9 {
		t.Errorf("Scaled offsets = %v (%v, %v), want 45 (45, 0)", half.BaseDistance, half.OffsetX, half.OffsetY)
	}
	for layer := 0; layer < 3; layer++ {
		if half.BlurRadius(layer) != m.BlurRadius(layer) {
			t.Errorf("Layer %d: nominal radius changed", layer)
		}
		if got, want := half.BlurSigma(layer), float64(m.BlurRadius(layer))/2; got != want {
			t.Errorf("Layer %d: BlurSigma = %v, want %v", layer, got, want)
		}
	}
}

func TestZenithLight(t *testing.T) {
	l := Light{Angle: 123, Elevation: 90, Intensity: 0.7}
	m := MapLight(l, DefaultLayers)

	if m.BaseDistance != 0 || math.Abs(m.OffsetX) > 1e-12 || math.Abs(m.OffsetY) > 1e-12 {
		t.Errorf("Zenith light should have zero offset, got %v (%v,%v)", m.BaseDistance, m.OffsetX, m.OffsetY)
	}
	if ds := l.DropShadow(); ds.Blur != 2 {
		t.Errorf("Zenith drop shadow blur = %v, want floor of 2", ds.Blur)
	}
}

func TestDropShadowString(t *testing.T) {
	got := Light{Angle: 0, Elevation: 45, Intensity: 0.8}.DropShadow().String()
	want := "filter: drop-shadow(90.0px 0.0px 13.5px rgba(0, 0, 0, 0.60));"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDropShadowOpacity(t *testing.T) {
	ds := Light{Angle: 0, Elevation: 0, Intensity: 1}.DropShadow()
	if ds.Opacity != 1 {
		t.Errorf("Opacity at horizon with full intensity = %v, want 1", ds.Opacity)
	}
	ds = Light{Angle: 0, Elevation: 90, Intensity: 1}.DropShadow()
	if ds.Opacity != 0.5 {
		t.Errorf("Opacity at zenith = %v, want 0.5", ds.Opacity)
	}
}
