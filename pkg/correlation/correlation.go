// Package correlation builds and regularises the positive-semidefinite
// correlation matrix over the union of active CAPEX items and risks,
// from categorical attribute equality and ordinal/hierarchical
// proximity rules.
package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"capexrisk/pkg/model"
)

// Cap is the maximum coefficient any single pair may reach.
const Cap = 0.8

// epsilon is the eigenvalue floor used during PSD regularisation: any
// eigenvalue below it is clamped up to it before reconstruction.
const epsilon = 1e-6

// riskCategoryCoefficients gives the "same risk category" coefficient
// for known category names; unknown or unnamed categories fall back to
// the base 0.4.
var riskCategoryCoefficients = map[string]float64{
	"regulatory":    0.6,
	"weather":       0.7,
	"supply_chain":  0.5,
	"technical":     0.4,
	"financial":     0.5,
}

// Reason is one observed contribution to a pairwise coefficient, kept
// for the observability summary.
type Reason struct {
	I, J        int
	Coefficient float64
	Description string
}

// Summary reports aggregate statistics over the built matrix alongside
// a short sample of contributing reasons.
type Summary struct {
	NonTrivialCount int
	MeanOffDiagonal float64
	MaxOffDiagonal  float64
	Reasons         []Reason
}

// maxReasonsKept bounds how many (i,j,coefficient,reason) tuples are
// retained in the summary; the matrix itself is unaffected.
const maxReasonsKept = 25

// Build constructs the K x K correlation matrix over entities, in their
// given order (which fixes the sampler's column assignment), using the
// lookup tables for phase ordinals, location parentage, and risk
// category names. If the assembled matrix is not PSD it is regularised.
func Build(entities []model.Correlatable, lookups model.Lookups) (*mat.SymDense, Summary) {
	k := len(entities)
	data := make([]float64, k*k)
	for i := 0; i < k; i++ {
		data[i*k+i] = 1
	}

	var reasons []Reason
	var sum float64
	var nonTrivial int
	var maxOffDiag float64

	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			coef, reason := pairCoefficient(entities[i], entities[j], lookups)
			if coef > Cap {
				coef = Cap
			}
			data[i*k+j] = coef
			data[j*k+i] = coef
			if coef > 0 {
				nonTrivial++
				sum += coef
				if coef > maxOffDiag {
					maxOffDiag = coef
				}
				if len(reasons) < maxReasonsKept {
					reasons = append(reasons, Reason{I: i, J: j, Coefficient: coef, Description: reason})
				}
			}
		}
	}

	summary := Summary{NonTrivialCount: nonTrivial, MaxOffDiagonal: maxOffDiag, Reasons: reasons}
	if nonTrivial > 0 {
		pairs := k * (k - 1) / 2
		summary.MeanOffDiagonal = sum / float64(pairs)
	}

	sym := mat.NewSymDense(k, data)
	if !isPSD(sym) {
		sym = regularize(sym)
	}
	return sym, summary
}

// pairCoefficient is the maximum over every applicable "reason" an
// unordered pair of entities shares (same owner, discipline, phase,
// location, risk category, ...), never the sum.
func pairCoefficient(a, b model.Correlatable, lookups model.Lookups) (float64, string) {
	best := 0.0
	reason := ""
	consider := func(coef float64, desc string) {
		if coef > best {
			best = coef
			reason = desc
		}
	}

	if a.Owner != "" && a.Owner == b.Owner {
		if a.Kind == b.Kind {
			consider(0.5, fmt.Sprintf("same owner %q", a.Owner))
		} else {
			consider(0.2, fmt.Sprintf("same owner %q (cross-family)", a.Owner))
		}
	}

	if a.Discipline != "" && a.Discipline == b.Discipline {
		consider(0.4, fmt.Sprintf("same discipline %q", a.Discipline))
	}

	if a.Phase != "" && a.Phase == b.Phase {
		consider(0.3, fmt.Sprintf("same phase %q", a.Phase))
	} else if oa, ok1 := lookups.PhaseOrdinal(a.Phase); ok1 {
		if ob, ok2 := lookups.PhaseOrdinal(b.Phase); ok2 {
			diff := oa - ob
			if diff < 0 {
				diff = -diff
			}
			switch diff {
			case 1:
				consider(0.2, "adjacent phase")
			case 2:
				consider(0.1, "near phase")
			}
		}
	}

	if a.Location != "" && a.Location == b.Location {
		consider(0.3, fmt.Sprintf("same location %q", a.Location))
	} else {
		if pa, ok := lookups.LocationParent(a.Location); ok && pa == b.Location {
			consider(0.2, "parent/child location")
		}
		if pb, ok := lookups.LocationParent(b.Location); ok && pb == a.Location {
			consider(0.2, "parent/child location")
		}
		if pa, okA := lookups.LocationParent(a.Location); okA {
			if pb, okB := lookups.LocationParent(b.Location); okB && pa == pb {
				consider(0.15, "sibling location")
			}
		}
	}

	if a.Kind == model.KindRisk && b.Kind == model.KindRisk {
		if a.RiskCategoryID != "" && a.RiskCategoryID == b.RiskCategoryID {
			coef := 0.4
			if name, ok := lookups.RiskCategoryName(a.RiskCategoryID); ok {
				if c, known := riskCategoryCoefficients[name]; known {
					coef = c
				}
			}
			consider(coef, fmt.Sprintf("same risk category %q", a.RiskCategoryID))
		}
		if a.RiskLogID != "" && a.RiskLogID == b.RiskLogID {
			consider(0.2, fmt.Sprintf("same risk log %q", a.RiskLogID))
		}
	}

	return best, reason
}

// isPSD reports whether m's eigenvalues are all non-negative (within a
// small floating-point tolerance).
func isPSD(m *mat.SymDense) bool {
	n := m.SymmetricDim()
	if n == 0 {
		return true
	}
	var eig mat.EigenSym
	if !eig.Factorize(m, false) {
		return false
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-9 {
			return false
		}
	}
	return true
}

// regularize clamps eigenvalues below epsilon up to epsilon, reconstructs,
// and renormalises the diagonal to exactly 1 by scaling rows/columns by
// the inverse square root of the resulting diagonal.
func regularize(m *mat.SymDense) *mat.SymDense {
	n := m.SymmetricDim()
	var eig mat.EigenSym
	if !eig.Factorize(m, true) {
		// Numerical edge case: fall back to the identity, which is
		// trivially PSD, rather than aborting the run.
		return identity(n)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	clamped := make([]float64, n)
	for i, v := range values {
		if v < epsilon {
			v = epsilon
		}
		clamped[i] = v
	}
	diag := mat.NewDiagDense(n, clamped)

	var vd mat.Dense
	vd.Mul(&vectors, diag)
	var recon mat.Dense
	recon.Mul(&vd, vectors.T())

	scale := make([]float64, n)
	for i := 0; i < n; i++ {
		d := recon.At(i, i)
		if d <= 0 {
			scale[i] = 0
		} else {
			scale[i] = 1 / math.Sqrt(d)
		}
	}

	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				out[i*n+j] = 1
				continue
			}
			out[i*n+j] = recon.At(i, j) * scale[i] * scale[j]
		}
	}
	return mat.NewSymDense(n, out)
}

func identity(n int) *mat.SymDense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return mat.NewSymDense(n, data)
}
