// Package fit recovers lognormal distribution parameters from a pair of
// percentiles, and provides the inverse-CDF sampling the rest of the
// engine uses to turn a uniform draw into a cost or impact value.
package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Levels are the probability levels p_low/p_high are interpreted at,
// 10th/90th percentile by default.
const (
	DefaultLowLevel  = 0.10
	DefaultHighLevel = 0.90
)

var stdNormal = distuv.UnitNormal{}

// Lognormal holds the two parameters of a fitted lognormal distribution:
// log(X) ~ Normal(Mu, Sigma^2).
type Lognormal struct {
	Mu    float64
	Sigma float64
}

// Error is returned when the two percentiles cannot be fit.
type Error struct {
	PLow, PHigh float64
	Reason      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid distribution: p_low=%g p_high=%g: %s", e.PLow, e.PHigh, e.Reason)
}

// Fit computes (mu, sigma) such that the fitted lognormal distribution's
// 10th and 90th percentiles (or lowLevel/highLevel if given via FitAt)
// equal pLow and pHigh.
func Fit(pLow, pHigh float64) (Lognormal, error) {
	return FitAt(pLow, pHigh, DefaultLowLevel, DefaultHighLevel)
}

// FitAt is Fit with explicit probability levels for pLow/pHigh.
func FitAt(pLow, pHigh, lowLevel, highLevel float64) (Lognormal, error) {
	if pLow <= 0 {
		return Lognormal{}, &Error{pLow, pHigh, "p_low must be strictly positive"}
	}
	if pHigh <= 0 {
		return Lognormal{}, &Error{pLow, pHigh, "p_high must be strictly positive"}
	}
	if pLow >= pHigh {
		return Lognormal{}, &Error{pLow, pHigh, "p_low must be strictly less than p_high"}
	}

	zLow := stdNormal.Quantile(lowLevel)
	zHigh := stdNormal.Quantile(highLevel)

	sigma := (math.Log(pHigh) - math.Log(pLow)) / (zHigh - zLow)
	mu := math.Log(pLow) - zLow*sigma

	return Lognormal{Mu: mu, Sigma: sigma}, nil
}

// Sample maps a uniform draw u in (0,1) to a lognormal sample via the
// inverse CDF: exp(mu + sigma * Phi^-1(u)).
func (d Lognormal) Sample(u float64) float64 {
	return math.Exp(d.Mu + d.Sigma*stdNormal.Quantile(u))
}

// Mean is the expected value of the fitted lognormal distribution,
// exp(mu + sigma^2/2). Used by the deterministic path only when no
// ML/PERT value is supplied directly.
func (d Lognormal) Mean() float64 {
	return math.Exp(d.Mu + d.Sigma*d.Sigma/2)
}

// CDF is the standard-normal CDF, Phi(u). Exposed so the sampler can
// turn a correlated normal draw back into a correlated uniform.
func CDF(x float64) float64 {
	return stdNormal.CDF(x)
}

// Quantile is the standard-normal inverse CDF, Phi^-1(p).
func Quantile(p float64) float64 {
	return stdNormal.Quantile(p)
}
