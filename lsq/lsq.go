// Package lsq provides a small Levenberg-Marquardt nonlinear least-squares
// solver over plain residual functions. It is the solver consumed by the
// batch differential correction, but knows nothing about orbits.
package lsq

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// Settings tunes the solver. The zero value selects the defaults.
type Settings struct {
	MaxIterations int     // default 100
	Tolerance     float64 // relative cost improvement threshold, default 1e-13
	StepTol       float64 // relative parameter step threshold, default 1e-12
	Lambda0       float64 // initial damping factor, default 1e-3
	StepRel       float64 // relative forward-difference step, default 1e-7
	// Steps optionally fixes an absolute forward-difference step per
	// parameter, overriding StepRel. Needed when a parameter's magnitude
	// says nothing about its sensitivity, e.g. an epoch expressed as a
	// Julian date.
	Steps []float64
}

func (s Settings) withDefaults() Settings {
	if s.MaxIterations == 0 {
		s.MaxIterations = 100
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-13
	}
	if s.StepTol == 0 {
		s.StepTol = 1e-12
	}
	if s.Lambda0 == 0 {
		s.Lambda0 = 1e-3
	}
	if s.StepRel == 0 {
		s.StepRel = 1e-7
	}
	return s
}

// LevMar is a Levenberg-Marquardt solver with forward-difference Jacobians.
type LevMar struct {
	Settings Settings
}

// Solve minimizes 0.5*||f(x)||² starting from x0. It returns the best
// parameter vector found and a status message. Non-convergence within the
// iteration cap is reported through the message, not an error: the last
// iterate is still the best available estimate.
func (lm *LevMar) Solve(f func([]float64) []float64, x0 []float64) ([]float64, string, error) {
	s := lm.Settings.withDefaults()
	n := len(x0)
	if n == 0 {
		return nil, "", errors.New("empty parameter vector")
	}
	x := make([]float64, n)
	copy(x, x0)
	res := f(x)
	m := len(res)
	if m < n {
		return nil, "", fmt.Errorf("%d residuals cannot constrain %d parameters", m, n)
	}
	if s.Steps != nil && len(s.Steps) != n {
		return nil, "", fmt.Errorf("got %d steps for %d parameters", len(s.Steps), n)
	}
	cost := costOf(res)
	if cost == 0 {
		return x, "converged after 0 iterations, cost 0", nil
	}
	λ := s.Lambda0

	J := mat64.NewDense(m, n, nil)
	xTrial := make([]float64, n)
	for iter := 1; iter <= s.MaxIterations; iter++ {
		jacobian(J, f, x, res, s.StepRel, s.Steps)
		var jtj mat64.Dense
		jtj.Mul(J.T(), J)
		var g mat64.Vector
		g.MulVec(J.T(), mat64.NewVector(m, res))

		// Inner loop: grow the damping until a step reduces the cost.
		accepted := false
		for ; λ < 1e14; λ *= 10 {
			step, err := dampedStep(&jtj, &g, λ)
			if err != nil {
				continue // singular normal matrix, more damping
			}
			if stepNegligible(step, x, s.StepTol) {
				// The damped step has shrunk below the parameter
				// resolution: x is a minimum to within the accuracy of
				// the finite-difference Jacobian.
				return x, fmt.Sprintf("converged after %d iterations, cost %g", iter, cost), nil
			}
			for i := 0; i < n; i++ {
				xTrial[i] = x[i] - step.At(i, 0)
			}
			resTrial := f(xTrial)
			costTrial := costOf(resTrial)
			if costTrial < cost {
				improvement := (cost - costTrial) / cost
				copy(x, xTrial)
				res = resTrial
				cost = costTrial
				λ = math.Max(λ*0.1, 1e-12)
				accepted = true
				if cost == 0 || improvement < s.Tolerance {
					return x, fmt.Sprintf("converged after %d iterations, cost %g", iter, cost), nil
				}
				break
			}
		}
		if !accepted {
			return x, fmt.Sprintf("stalled after %d iterations, cost %g", iter, cost), nil
		}
	}
	return x, fmt.Sprintf("did not converge within %d iterations, cost %g", s.MaxIterations, cost), nil
}

// stepNegligible reports whether every component of the damped step is below
// tol relative to its parameter.
func stepNegligible(step *mat64.Vector, x []float64, tol float64) bool {
	for i := range x {
		if math.Abs(step.At(i, 0)) > tol*(math.Abs(x[i])+tol) {
			return false
		}
	}
	return true
}

// dampedStep solves (JᵀJ + λ diag(JᵀJ)) δ = g.
func dampedStep(jtj *mat64.Dense, g *mat64.Vector, λ float64) (*mat64.Vector, error) {
	n, _ := jtj.Dims()
	A := mat64.NewDense(n, n, nil)
	A.Clone(jtj)
	for i := 0; i < n; i++ {
		d := jtj.At(i, i)
		if d == 0 {
			d = 1
		}
		A.Set(i, i, d*(1+λ))
	}
	var Ainv mat64.Dense
	if err := Ainv.Inverse(A); err != nil {
		return nil, err
	}
	var step mat64.Vector
	step.MulVec(&Ainv, g)
	return &step, nil
}

// jacobian fills J with forward differences of f around x, reusing the
// residual vector res already evaluated at x.
func jacobian(J *mat64.Dense, f func([]float64) []float64, x, res []float64, stepRel float64, steps []float64) {
	xh := make([]float64, len(x))
	copy(xh, x)
	for j := range x {
		h := stepRel * math.Max(math.Abs(x[j]), 1)
		if steps != nil {
			h = steps[j]
		}
		xh[j] = x[j] + h
		resh := f(xh)
		for i := range res {
			J.Set(i, j, (resh[i]-res[i])/h)
		}
		xh[j] = x[j]
	}
}

func costOf(res []float64) float64 {
	var sum float64
	for _, r := range res {
		sum += r * r
	}
	return 0.5 * sum
}
