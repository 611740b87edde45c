package fit

import "testing"

func TestConvergenceTracker(t *testing.T) {
	tests := []struct {
		name      string
		config    ConvergenceConfig
		costs     []float64
		converged int // index of the update that reports convergence, -1 for none
	}{
		{
			name:      "disabled",
			config:    ConvergenceConfig{Enabled: false, Patience: 1, Threshold: 0.1},
			costs:     []float64{10, 10, 10},
			converged: -1,
		},
		{
			name:      "stalls",
			config:    ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.01},
			costs:     []float64{100, 50, 49.9, 49.8, 49.7},
			converged: 3,
		},
		{
			name:      "keeps improving",
			config:    DefaultConvergenceConfig(),
			costs:     []float64{100, 80, 60, 40, 20},
			converged: -1,
		},
		{
			name:      "perfect match",
			config:    ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.01},
			costs:     []float64{0, 0},
			converged: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConvergenceTracker(tt.config)
			got := -1
			for i, cost := range tt.costs {
				if c.Update(cost) {
					got = i
					break
				}
			}
			if got != tt.converged {
				t.Errorf("Converged at %d, want %d", got, tt.converged)
			}
		})
	}
}

func TestConvergenceTrackerState(t *testing.T) {
	c := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 5, Threshold: 0.1})
	for _, cost := range []float64{10, 8, 7.9, 9} {
		c.Update(cost)
	}

	if c.BestCost() != 7.9 {
		t.Errorf("BestCost = %v, want 7.9", c.BestCost())
	}
	if c.StaleCount() != 2 {
		t.Errorf("StaleCount = %d, want 2", c.StaleCount())
	}

	h := c.History()
	if len(h) != 4 {
		t.Fatalf("History length = %d, want 4", len(h))
	}
	h[0] = -1
	if c.History()[0] != 10 {
		t.Error("History should return a copy")
	}
}
