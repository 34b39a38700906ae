package orbitdeterminator

import (
	"fmt"
	"math"
)

// ElementSet is an orbital element set anchored in time: the six classical
// elements with the true anomaly replaced by the time of pericenter passage.
// It is both the final output of an estimate and the optimization variable of
// the batch differential correction.
type ElementSet struct {
	A       float64 // semimajor axis, km
	E       float64 // eccentricity
	TauP    float64 // time of pericenter passage, Julian date
	ArgPeri float64 // argument of pericenter ω, radians
	Incl    float64 // inclination I, radians
	Node    float64 // longitude of the ascending node Ω, radians
	Origin  CelestialObject
}

// MeanMotion returns the mean motion n in rad/s.
func (s ElementSet) MeanMotion() float64 {
	return math.Sqrt(s.Origin.μ / math.Pow(math.Abs(s.A), 3))
}

func (s ElementSet) String() string {
	return fmt.Sprintf("a=%.3f e=%.6f τp=JD%.6f ω=%.4f I=%.4f Ω=%.4f",
		s.A, s.E, s.TauP, Rad2deg(s.ArgPeri), Rad2deg(s.Incl), Rad2deg(s.Node))
}

// NewElementSetFromRV anchors the orbital elements of the state (R, V) at the
// given Julian date by computing the time of pericenter passage from the mean
// anomaly.
func NewElementSetFromRV(R, V []float64, jd float64, c CelestialObject) ElementSet {
	orbit := NewOrbitFromRV(R, V, c)
	a, e, i, Ω, ω, _ := orbit.Elements()
	M := orbit.MeanAnomaly()
	n := orbit.MeanMotion()
	return ElementSet{A: a, E: e, TauP: jd - M/n/86400, ArgPeri: ω, Incl: i, Node: Ω, Origin: c}
}

// eccentricAnomaly solves Kepler's equation M = E - e sin E by Newton
// iteration. The seed M converges for all elliptical orbits; the iteration
// cap only matters for pathological eccentricities close to 1.
func eccentricAnomaly(M, e float64) float64 {
	E := M
	for iter := 0; iter < 50; iter++ {
		ΔE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= ΔE
		if math.Abs(ΔE) < 1e-14 {
			break
		}
	}
	return E
}

// TrueAnomalyAt returns the true anomaly at the given Julian date.
func (s ElementSet) TrueAnomalyAt(jd float64) float64 {
	M := math.Mod(s.MeanMotion()*((jd-s.TauP)*86400), 2*math.Pi)
	if M < 0 {
		M += 2 * math.Pi
	}
	E := eccentricAnomaly(M, s.E)
	sE2, cE2 := math.Sincos(E / 2)
	ν := 2 * math.Atan2(math.Sqrt(1+s.E)*sE2, math.Sqrt(1-s.E)*cE2)
	if ν < 0 {
		ν += 2 * math.Pi
	}
	return ν
}

// StateAt returns the Cartesian position and velocity at the given Julian
// date, in km and km/s.
func (s ElementSet) StateAt(jd float64) (R, V []float64) {
	orbit := Orbit{s.A, s.E, s.Incl, s.Node, s.ArgPeri, s.TrueAnomalyAt(jd), s.Origin, 0, nil, nil}
	return orbit.RV()
}

// RadecAt returns the predicted right ascension and declination in radians of
// the body at the given Julian date, seen from the observer position R in the
// same frame as the element set.
func (s ElementSet) RadecAt(jd float64, R []float64) (ra, dec float64) {
	r, _ := s.StateAt(jd)
	ρ := []float64{r[0] - R[0], r[1] - R[1], r[2] - R[2]}
	ra = math.Atan2(ρ[1], ρ[0])
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec = math.Asin(ρ[2] / norm(ρ))
	return
}

// MeanElementSet returns the arithmetic mean of the provided element sets
// (simple mean, not weighted). Panics on an empty slice or mixed origins.
func MeanElementSet(sets []ElementSet) ElementSet {
	if len(sets) == 0 {
		panic("cannot average an empty element set slice")
	}
	mean := ElementSet{Origin: sets[0].Origin}
	for _, s := range sets {
		if !s.Origin.Equals(mean.Origin) {
			panic("cannot average element sets with different origins")
		}
		mean.A += s.A
		mean.E += s.E
		mean.TauP += s.TauP
		mean.ArgPeri += s.ArgPeri
		mean.Incl += s.Incl
		mean.Node += s.Node
	}
	n := float64(len(sets))
	mean.A /= n
	mean.E /= n
	mean.TauP /= n
	mean.ArgPeri /= n
	mean.Incl /= n
	mean.Node /= n
	return mean
}

// Vector returns the element set as the fit vector (a, e, τp, ω, I, Ω).
func (s ElementSet) Vector() []float64 {
	return []float64{s.A, s.E, s.TauP, s.ArgPeri, s.Incl, s.Node}
}

// ElementSetFromVector is the inverse of Vector.
func ElementSetFromVector(x []float64, c CelestialObject) ElementSet {
	return ElementSet{A: x[0], E: x[1], TauP: x[2], ArgPeri: x[3], Incl: x[4], Node: x[5], Origin: c}
}
