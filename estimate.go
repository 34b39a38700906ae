package orbitdeterminator

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// Solver is the external nonlinear least-squares collaborator consumed by
// Fit. It minimizes the residual function starting from x0 and returns the
// converged parameter vector along with a human-readable status message,
// which is propagated to the caller, not swallowed.
type Solver interface {
	Solve(resid func([]float64) []float64, x0 []float64) (x []float64, message string, err error)
}

// ResidualClosure returns the RA/Dec residual function over the observation
// set for an element vector x = (a, e, τp, ω, I, Ω). Observer positions are
// resolved once here, so the ephemeris is evaluated a single time per epoch
// rather than at every solver iteration.
func ResidualClosure(obs []Observation, stations map[string]Station, p Pipeline) (func(x []float64) []float64, error) {
	observerR := make([][]float64, len(obs))
	for i, o := range obs {
		st, found := stations[o.Station]
		if !found {
			return nil, fmt.Errorf("unknown station `%s` at observation %d", o.Station, i)
		}
		observerR[i] = p.ObserverPosition(st, o.JD)
	}
	return func(x []float64) []float64 {
		set := ElementSetFromVector(x, p.Body)
		res := make([]float64, 2*len(obs))
		for i, o := range obs {
			ra, dec := set.RadecAt(o.JD, observerR[i])
			res[2*i] = AngleDifference(ra, o.RA)
			res[2*i+1] = AngleDifference(dec, o.Dec)
		}
		return res
	}, nil
}

// rmsOf returns the root mean square of a residual vector.
func rmsOf(res []float64) float64 {
	var sum float64
	for _, r := range res {
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(res)))
}

// Fit runs the batch differential correction: it refines the seed element
// set (typically a Gauss solution) against the full observation set with the
// provided least-squares solver. The solver's status message is returned
// alongside the fitted elements. A nil logger disables logging.
func Fit(seed ElementSet, obs []Observation, stations map[string]Station, p Pipeline, solver Solver, logger kitlog.Logger) (ElementSet, string, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	resid, err := ResidualClosure(obs, stations, p)
	if err != nil {
		return seed, "", err
	}
	x0 := seed.Vector()
	logger.Log("msg", "starting batch correction", "observations", len(obs), "rms", rmsOf(resid(x0)))
	x, message, err := solver.Solve(resid, x0)
	if err != nil {
		return seed, message, err
	}
	fitted := ElementSetFromVector(x, p.Body)
	logger.Log("msg", "batch correction done", "status", message, "rms", rmsOf(resid(x)))
	return fitted, message, nil
}
