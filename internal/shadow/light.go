package shadow

import (
	"fmt"
	"math"
)

const (
	// DefaultLayers is the number of soft-shadow layers drawn per pass.
	DefaultLayers = 5
	// MaxLayers keeps the per-layer fade factor (1 - L*0.15) positive.
	MaxLayers = 6
	// DistancePerDegree is the shadow offset in pixels per degree below zenith.
	DistancePerDegree = 2

	layerFade    = 0.15 // opacity lost per layer index
	layerSpread  = 0.2  // extra offset per layer index, as a fraction of the light offset
	blurPerLayer = 3
	blurBase     = 2
)

// Light describes the virtual light. Angle is in degrees and wraps, Elevation
// is degrees above the horizon in [0,90], Intensity is in [0,1].
type Light struct {
	Angle     float64 `json:"angle" yaml:"angle"`
	Elevation float64 `json:"elevation" yaml:"elevation"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
}

// DefaultLight matches the initial slider positions of the interactive tool.
func DefaultLight() Light {
	return Light{Angle: 45, Elevation: 45, Intensity: 0.7}
}

// Normalize wraps the angle into [0,360) and clamps elevation and intensity.
// NaN inputs collapse to the lower bound.
func (l Light) Normalize() Light {
	angle := math.Mod(l.Angle, 360)
	if angle < 0 {
		angle += 360
	}
	if math.IsNaN(angle) || angle >= 360 {
		angle = 0
	}
	return Light{
		Angle:     angle,
		Elevation: clamp(l.Elevation, 0, 90),
		Intensity: clamp(l.Intensity, 0, 1),
	}
}

// BaseDistance is the shadow offset length in pixels.
func (l Light) BaseDistance() float64 {
	return (90 - l.Elevation) * DistancePerDegree
}

// Offset returns the light offset vector (dx, dy) in pixels.
func (l Light) Offset() (float64, float64) {
	rad := l.Angle * math.Pi / 180
	d := l.BaseDistance()
	return math.Cos(rad) * d, math.Sin(rad) * d
}

// Mapping holds every value derived from a Light that the shaper, warper and
// compositor share during one pass.
type Mapping struct {
	Light        Light
	Layers       int
	BaseDistance float64
	OffsetX      float64
	OffsetY      float64
	// OpacityCeiling is the strongest ambient term any pixel can reach
	// before the contact boost is added.
	OpacityCeiling float64
	// PixelScale is the canvas resolution relative to the one the light's
	// pixel distances are defined for. Offsets and blur radii follow it.
	PixelScale float64
}

// MapLight normalizes l and derives the pass parameters.
func MapLight(l Light, layers int) Mapping {
	l = l.Normalize()
	dx, dy := l.Offset()
	return Mapping{
		Light:          l,
		Layers:         layers,
		BaseDistance:   l.BaseDistance(),
		OffsetX:        dx,
		OffsetY:        dy,
		OpacityCeiling: l.Intensity,
		PixelScale:     1,
	}
}

// Scaled returns m for a canvas drawn at scale times the nominal resolution.
// The light itself is unchanged.
func (m Mapping) Scaled(scale float64) Mapping {
	m.BaseDistance *= scale
	m.OffsetX *= scale
	m.OffsetY *= scale
	m.PixelScale *= scale
	return m
}

// BlurRadius is the nominal blur radius in pixels for layer L. It grows
// with L.
func (m Mapping) BlurRadius(layer int) int {
	return layer*blurPerLayer + blurBase
}

// BlurSigma is the blur radius of layer L on the scaled canvas.
func (m Mapping) BlurSigma(layer int) float64 {
	return float64(m.BlurRadius(layer)) * m.PixelScale
}

// LayerPosition returns where the top-left corner of layer L lands on the
// canvas for a foreground placed at (fgX, fgY).
func (m Mapping) LayerPosition(layer int, fgX, fgY float64) (float64, float64) {
	spread := float64(layer) * layerSpread
	return fgX + m.OffsetX + m.OffsetX*spread, fgY + m.OffsetY + m.OffsetY*spread
}

// DropShadow is a single-shadow approximation of the layered result, for
// consumers that can only express one blurred offset shadow.
type DropShadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Opacity float64 `json:"opacity"`
}

// DropShadow computes the approximation for l.
func (l Light) DropShadow() DropShadow {
	l = l.Normalize()
	dx, dy := l.Offset()
	return DropShadow{
		OffsetX: dx,
		OffsetY: dy,
		Blur:    math.Max(2, (90-l.Elevation)*0.3),
		Opacity: math.Min(1, l.Intensity*(1-l.Elevation/180)),
	}
}

// String renders the approximation as a CSS filter declaration.
func (d DropShadow) String() string {
	return fmt.Sprintf("filter: drop-shadow(%.1fpx %.1fpx %.1fpx rgba(0, 0, 0, %.2f));",
		d.OffsetX, d.OffsetY, d.Blur, d.Opacity)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
