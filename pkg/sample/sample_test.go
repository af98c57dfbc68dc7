package sample

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func identity(n int) *mat.SymDense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return mat.NewSymDense(n, data)
}

func TestDrawIdentityProducesIndependentUniforms(t *testing.T) {
	s := NewSampler(identity(2))
	if s.Degenerate() {
		t.Fatalf("identity matrix should factorize cleanly")
	}
	rng := RNGFor(1, 1, 0)
	u := s.Draw(rng)
	for _, v := range u {
		if v <= 0 || v >= 1 {
			t.Errorf("expected uniform in (0,1), got %v", v)
		}
	}
}

func TestDegenerateMatrixFallsBackToIndependence(t *testing.T) {
	// A matrix that is symmetric but not positive-definite (a singular
	// 2x2 with an off-diagonal coefficient of 1, i.e. a duplicate row,
	// eigenvalues 0 and 2) fails Cholesky.
	data := []float64{1, 1, 1, 1}
	nonPD := mat.NewSymDense(2, data)
	s := NewSampler(nonPD)
	if !s.Degenerate() {
		t.Fatalf("expected degenerate matrix to fail Cholesky factorization")
	}
	rng := RNGFor(1, 1, 0)
	u := s.Draw(rng)
	if len(u) != 2 {
		t.Fatalf("expected fallback draw to still produce dim-length vector")
	}
}

func TestDrawPathsIsDeterministicAcrossWorkerCounts(t *testing.T) {
	s := NewSampler(identity(3))
	a := DrawPaths(s, 20, 42, 7, 1)
	b := DrawPaths(s, 20, 42, 7, 8)
	for p := range a {
		for d := range a[p] {
			if math.Abs(a[p][d]-b[p][d]) > 1e-15 {
				t.Fatalf("path %d dim %d differs across worker counts: %v vs %v", p, d, a[p][d], b[p][d])
			}
		}
	}
}

func TestRNGForProducesDistinctStreamsPerPath(t *testing.T) {
	r0 := RNGFor(1, 1, 0)
	r1 := RNGFor(1, 1, 1)
	if r0.Uint64() == r1.Uint64() {
		t.Errorf("expected distinct RNG streams for distinct path indices")
	}
}

func TestDrawPathsEmpty(t *testing.T) {
	s := NewSampler(identity(2))
	out := DrawPaths(s, 0, 1, 1, 4)
	if len(out) != 0 {
		t.Errorf("expected 0 paths, got %d", len(out))
	}
}
