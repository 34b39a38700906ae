package orbitdeterminator

import (
	"fmt"

	kitlog "github.com/go-kit/kit/log"
)

// Pipeline binds a center of attraction to the frame in which observer
// positions are expressed. The heliocentric (minor planet) and geocentric
// (Earth satellite) estimators are the same Gauss core under two pipeline
// instances, not two code paths.
type Pipeline struct {
	Body CelestialObject
	Eph  Ephemeris // set for heliocentric pipelines, nil for geocentric ones
}

// GeocentricPipeline estimates Earth-centered orbits from ground stations.
func GeocentricPipeline() Pipeline {
	return Pipeline{Body: Earth}
}

// HeliocentricPipeline estimates Sun-centered orbits; observer positions are
// shifted by Earth's heliocentric position from the ephemeris.
func HeliocentricPipeline(eph Ephemeris) Pipeline {
	return Pipeline{Body: Sun, Eph: eph}
}

// ObserverPosition returns the station position at the given Julian date in
// the pipeline's frame.
func (p Pipeline) ObserverPosition(st Station, jd float64) []float64 {
	R := st.Position(jd)
	if p.Eph != nil {
		earth := p.Eph.EarthPosition(jd)
		for i := range R {
			R[i] += earth[i]
		}
	}
	return R
}

// ArcConfig drives EstimateArc.
type ArcConfig struct {
	// RefineIters is the fixed number of slant-range refinement iterations
	// per window; 0 disables refinement.
	RefineIters int
	// RootIndexes optionally selects the Gauss polynomial root per window
	// (same length as the number of windows, N-2). A nil slice or a -1
	// entry defaults to the first admissible root.
	RootIndexes []int
	Logger      kitlog.Logger
}

// ArcSolution is the averaged estimate over a sliding window of triplets.
type ArcSolution struct {
	Mean    ElementSet   // arithmetic mean over the successful windows
	Windows []ElementSet // element set of each successful window
	// FirstR and LastR are the raw endpoint position estimates: r1 of the
	// first successful window and r3 of the last one.
	FirstR, LastR []float64
	// Attempted and Succeeded count the windows; failed windows are
	// skipped and logged, not fatal for the arc.
	Attempted, Succeeded int
}

// EstimateArc slides a window of three consecutive observations over an
// ordered arc of N >= 3 observations, runs the Gauss core plus refinement on
// each window, and averages the resulting element sets. Stations are looked
// up by the observation's station code.
func EstimateArc(obs []Observation, stations map[string]Station, p Pipeline, cfg ArcConfig) (*ArcSolution, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	if len(obs) < 3 {
		return nil, fmt.Errorf("need at least 3 observations, got %d", len(obs))
	}
	nWin := len(obs) - 2
	if cfg.RootIndexes != nil && len(cfg.RootIndexes) != nWin {
		return nil, fmt.Errorf("got %d root indexes for %d windows", len(cfg.RootIndexes), nWin)
	}

	sol := &ArcSolution{Attempted: nWin}
	for w := 0; w < nWin; w++ {
		triplet := [3]int{w, w + 1, w + 2}
		los := make([][]float64, 3)
		R := make([][]float64, 3)
		jd := make([]float64, 3)
		var lookupErr error
		for k, idx := range triplet {
			o := obs[idx]
			st, found := stations[o.Station]
			if !found {
				lookupErr = fmt.Errorf("unknown station `%s` at observation %d", o.Station, idx)
				break
			}
			los[k] = o.LOS()
			R[k] = p.ObserverPosition(st, o.JD)
			jd[k] = o.JD
		}
		if lookupErr != nil {
			return nil, lookupErr
		}

		rootIndex := -1
		if cfg.RootIndexes != nil {
			rootIndex = cfg.RootIndexes[w]
		}
		winSol, err := gaussCore(los[0], los[1], los[2], R[0], R[1], R[2], jd[0], jd[1], jd[2], p.Body, rootIndex, triplet, logger)
		if err == nil {
			err = winSol.Refine(cfg.RefineIters)
		}
		if err != nil {
			logger.Log("msg", "skipping window", "window", w, "err", err)
			continue
		}
		if !winSol.KeplerConverged {
			logger.Log("msg", "universal Kepler iteration hit its cap", "window", w)
		}
		if sol.Succeeded == 0 {
			sol.FirstR = winSol.R1
		}
		sol.LastR = winSol.R3
		sol.Windows = append(sol.Windows, winSol.ElementSet())
		sol.Succeeded++
	}
	if sol.Succeeded == 0 {
		return nil, fmt.Errorf("all %d windows failed", sol.Attempted)
	}
	logger.Log("msg", "arc estimate complete", "windows", sol.Attempted, "succeeded", sol.Succeeded)
	sol.Mean = MeanElementSet(sol.Windows)
	return sol, nil
}
