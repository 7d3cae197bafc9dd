package bandit

import (
	"math"
	"math/rand"
)

// #region gamma

// sampleGamma draws from Gamma(shape, 1) using the Marsaglia–Tsang method.
// For shape < 1 it boosts: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape <= 0 {
		shape = 1e-3
	}
	if shape < 1 {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// #endregion gamma

// #region beta

// sampleBeta draws from Beta(alpha, beta) as Ga/(Ga+Gb) with two
// independent Gamma draws. The result is strictly inside (0,1).
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	ga := sampleGamma(rng, alpha)
	gb := sampleGamma(rng, beta)
	if ga+gb == 0 {
		return 0.5
	}
	s := ga / (ga + gb)
	// Guard the open-interval contract against float underflow.
	if s <= 0 {
		return math.SmallestNonzeroFloat64
	}
	if s >= 1 {
		return 1 - 1e-16
	}
	return s
}

// #endregion beta
