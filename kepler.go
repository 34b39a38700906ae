package orbitdeterminator

import (
	"math"
)

const (
	// keplerε is the convergence tolerance on the Newton ratio F/F' of the
	// universal Kepler iteration.
	keplerε = 1e-15
	// keplerIters bounds the Newton iteration. The cap being reached is not
	// fatal: the last iterate is still the best available estimate.
	keplerIters = 10
)

// c2c3 returns the Stumpff coefficients C(z) and S(z). These are the even and
// odd series (1-cos√z)/z and (√z-sin√z)/√z³, continued with the hyperbolic
// equivalents for negative z and their limits 1/2 and 1/6 at z=0.
func c2c3(z float64) (c2, c3 float64) {
	switch {
	case z > 1e-6:
		sz := math.Sqrt(z)
		ssz, csz := math.Sincos(sz)
		c2 = (1 - csz) / z
		c3 = (sz - ssz) / math.Sqrt(math.Pow(z, 3))
	case z < -1e-6:
		sz := math.Sqrt(-z)
		c2 = (1 - math.Cosh(sz)) / z
		c3 = (math.Sinh(sz) - sz) / math.Sqrt(math.Pow(-z, 3))
	default:
		c2 = 1 / 2.
		c3 = 1 / 6.
	}
	return
}

// UniversalKepler solves the universal Kepler equation for the universal
// anomaly χ after a time interval dt (seconds) from the state (R0, V0) about
// a body of gravitational parameter μ. It returns the last Newton iterate and
// whether the iteration converged within the cap; a non-converged iterate is
// still usable, and the caller is expected to surface the flag.
func UniversalKepler(dt float64, R0, V0 []float64, μ float64) (χ float64, converged bool) {
	r0 := norm(R0)
	v20 := dot(V0, V0)
	vr0 := dot(R0, V0) / r0
	α0 := 2/r0 - v20/μ

	sqrtμ := math.Sqrt(μ)
	χ = sqrtμ * math.Abs(α0) * dt
	a := r0 * vr0 / sqrtμ
	b := 1 - α0*r0
	for iter := 0; iter < keplerIters; iter++ {
		χ2 := χ * χ
		z := α0 * χ2
		c2, c3 := c2c3(z)
		F := a*χ2*c2 + b*χ*χ2*c3 + r0*χ - sqrtμ*dt
		Fp := a*χ*(1-z*c3) + b*χ2*c2 + r0
		ratio := F / Fp
		χ -= ratio
		if math.Abs(ratio) < keplerε {
			return χ, true
		}
	}
	return χ, false
}

// lagrangeFG returns the Lagrange coefficients for a converged universal
// anomaly χ: f = 1 - χ²C(z)/r0 and g = dt - χ³S(z)/√μ, with z = α0 χ².
func lagrangeFG(dt, χ, z, r0, μ float64) (f, g float64) {
	c2, c3 := c2c3(z)
	f = 1 - χ*χ*c2/r0
	g = dt - χ*χ*χ*c3/math.Sqrt(μ)
	return
}

// lagrangeF1 and lagrangeG1 are the first order series expansions used to
// seed the Gauss solution before any universal-variable refinement.
func lagrangeF1(μ, r2, τ float64) float64 {
	return 1 - 0.5*(μ/math.Pow(r2, 3))*τ*τ
}

func lagrangeG1(μ, r2, τ float64) float64 {
	return τ - (1/6.)*(μ/math.Pow(r2, 3))*math.Pow(τ, 3)
}
