package fit

import (
	"math"
	"testing"
)

// TestFitRecoversPercentiles checks that the fitted (mu, sigma) reproduce
// p_low/p_high to 1ppm via the forward transform.
func TestFitRecoversPercentiles(t *testing.T) {
	pLow, pHigh := 80000.0, 130000.0

	d, err := Fit(pLow, pHigh)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	zLow := Quantile(DefaultLowLevel)
	zHigh := Quantile(DefaultHighLevel)

	gotLow := math.Exp(d.Mu + zLow*d.Sigma)
	gotHigh := math.Exp(d.Mu + zHigh*d.Sigma)

	if math.Abs(gotLow-pLow)/pLow > 1e-6 {
		t.Errorf("p_low not recovered: want %f got %f", pLow, gotLow)
	}
	if math.Abs(gotHigh-pHigh)/pHigh > 1e-6 {
		t.Errorf("p_high not recovered: want %f got %f", pHigh, gotHigh)
	}
}

func TestFitRejectsInvalidInputs(t *testing.T) {
	cases := []struct {
		low, high float64
	}{
		{0, 100},
		{-5, 100},
		{100, 0},
		{100, 100},
		{150, 100},
	}
	for _, c := range cases {
		if _, err := Fit(c.low, c.high); err == nil {
			t.Errorf("Fit(%f, %f) expected error, got nil", c.low, c.high)
		}
	}
}

// TestSampleQuantilesMatchInputs draws a large sample and checks the
// empirical 10th/90th percentiles land within 1% of p_low/p_high.
func TestSampleQuantilesMatchInputs(t *testing.T) {
	pLow, pHigh := 75000.0, 120000.0
	d, err := Fit(pLow, pHigh)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	// Deterministic stand-in for a random uniform stream: evenly spaced
	// quantiles give an exact empirical-quantile check without requiring
	// a PRNG dependency in this package's tests.
	const n = 100001
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		u := (float64(i) + 0.5) / float64(n)
		samples[i] = d.Sample(u)
	}

	idx10 := int(0.10 * float64(n))
	idx90 := int(0.90 * float64(n))

	if math.Abs(samples[idx10]-pLow)/pLow > 0.01 {
		t.Errorf("empirical p10 = %f, want within 1%% of %f", samples[idx10], pLow)
	}
	if math.Abs(samples[idx90]-pHigh)/pHigh > 0.01 {
		t.Errorf("empirical p90 = %f, want within 1%% of %f", samples[idx90], pHigh)
	}
}

func TestMeanIsPositive(t *testing.T) {
	d, err := Fit(100.0, 200.0)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if d.Mean() <= 0 {
		t.Errorf("expected positive mean, got %f", d.Mean())
	}
}
