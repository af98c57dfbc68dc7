// Package sample draws correlated uniform variates from a correlation
// matrix via Cholesky decomposition, for pkg/checkpoint to turn into
// cost/impact draws through pkg/fit's inverse CDF.
package sample

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"

	"capexrisk/pkg/fit"
)

// Sampler draws correlated standard-normal vectors via a fixed
// correlation matrix's Cholesky factor. When the factor cannot be
// computed (matrix not positive-definite even after regularization),
// Sampler falls back to independent draws and reports that fact via
// Degenerate so the caller can log a warning.
type Sampler struct {
	dim        int
	chol       mat.Cholesky
	degenerate bool
}

// NewSampler factorizes corr. corr must already be PSD (pkg/correlation
// guarantees this).
func NewSampler(corr *mat.SymDense) *Sampler {
	n := corr.SymmetricDim()
	s := &Sampler{dim: n}
	if n == 0 {
		return s
	}
	if !s.chol.Factorize(corr) {
		s.degenerate = true
	}
	return s
}

// Degenerate reports whether Cholesky factorization failed and draws
// are falling back to independence.
func (s *Sampler) Degenerate() bool {
	return s.degenerate
}

// Draw returns one vector of dim correlated uniforms in (0,1), using
// rng for its underlying standard-normal draws.
func (s *Sampler) Draw(rng *rand.Rand) []float64 {
	u := make([]float64, s.dim)
	if s.dim == 0 {
		return u
	}

	z := make([]float64, s.dim)
	for i := range z {
		z[i] = rng.NormFloat64()
	}

	if s.degenerate {
		for i, v := range z {
			u[i] = fit.CDF(v)
		}
		return u
	}

	zVec := mat.NewVecDense(s.dim, z)
	var l mat.TriDense
	s.chol.LTo(&l)
	var x mat.VecDense
	x.MulVec(&l, zVec)

	for i := 0; i < s.dim; i++ {
		u[i] = fit.CDF(x.AtVec(i))
	}
	return u
}

// RNGFor derives a deterministic, independent RNG stream for path index
// p within a run seeded by (seed1, seed2); distinct paths never share a
// stream regardless of the order goroutines complete in.
func RNGFor(seed1, seed2 uint64, p int) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2+uint64(p)))
}

// DrawPaths draws numPaths independent correlated-uniform vectors in
// parallel, across at most workers goroutines, writing each path's
// result to its own index so the result is deterministic and
// independent of scheduling order. workers <= 0 means unbounded (capped
// to numPaths).
func DrawPaths(s *Sampler, numPaths int, seed1, seed2 uint64, workers int) [][]float64 {
	out := make([][]float64, numPaths)
	if numPaths == 0 {
		return out
	}
	if workers <= 0 || workers > numPaths {
		workers = numPaths
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				rng := RNGFor(seed1, seed2, p)
				out[p] = s.Draw(rng)
			}
		}()
	}
	for p := 0; p < numPaths; p++ {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	return out
}
