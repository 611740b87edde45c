package opt

import (
	"errors"
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42) // maxIters, popSize, seed

	dim := 3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = -10
		upper[i] = 10
	}

	best, cost, err := optimizer.Run(sphere, lower, upper, dim)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(best))
	}

	// Should converge close to zero
	if cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}

	// Check that best params are near origin
	for i, v := range best {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestMayflyAdapterMixedBounds(t *testing.T) {
	// Minimum at (300, 0.5) inside very different ranges
	target := []float64{300, 0.5}
	eval := func(x []float64) float64 {
		dx := (x[0] - target[0]) / 360
		dy := x[1] - target[1]
		return dx*dx + dy*dy
	}

	best, _, err := NewMayfly(100, 20, 7).Run(eval, []float64{0, 0}, []float64{360, 1}, 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if best[0] < 0 || best[0] > 360 || best[1] < 0 || best[1] > 1 {
		t.Fatalf("Result %v escaped the bounds", best)
	}
	if math.Abs(best[0]-target[0]) > 20 || math.Abs(best[1]-target[1]) > 0.1 {
		t.Errorf("Expected near %v, got %v", target, best)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	dim := 2
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	optimizer1 := NewMayfly(50, 20, 123)
	_, cost1, _ := optimizer1.Run(sphere, lower, upper, dim)

	optimizer2 := NewMayfly(50, 20, 123)
	_, cost2, _ := optimizer2.Run(sphere, lower, upper, dim)

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestMayflyAdapterBadBounds(t *testing.T) {
	tests := []struct {
		name         string
		lower, upper []float64
		dim          int
	}{
		{"zero_dim", nil, nil, 0},
		{"short", []float64{0}, []float64{1, 1}, 2},
		{"inverted", []float64{1, 0}, []float64{0, 1}, 2},
		{"nan", []float64{math.NaN()}, []float64{1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewMayfly(10, 20, 1).Run(sphere, tt.lower, tt.upper, tt.dim)
			if !errors.Is(err, ErrBounds) {
				t.Errorf("Expected ErrBounds, got %v", err)
			}
		})
	}
}
