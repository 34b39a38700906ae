package orbitdeterminator

import (
	"fmt"
	"math"
	"sort"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const (
	// geomε is the absolute threshold below which a geometric denominator is
	// considered zero and the triplet degenerate.
	geomε = 1e-12
	// rootImagε is the relative imaginary part below which a polynomial root
	// is accepted as real.
	rootImagε = 1e-6
	// refineRelax is the under-relaxation factor applied to the slant ranges
	// at each refinement step. The full-step map oscillates with growing
	// amplitude on short arcs; half steps keep the same fixed point and
	// contract toward it.
	refineRelax = 0.5
	// refineTol is the slant-range change, km, below which the refinement is
	// considered converged.
	refineTol = 1e-7
	// corePasses is the number of refinement steps folded into GaussCore
	// itself. The first-order Lagrange coefficients truncate the f and g
	// series, which biases the semi-major axis by a few parts in a thousand
	// at minute-level cadence; a few universal-variable passes remove the
	// truncation error without a separate Refine call.
	corePasses = 3
)

// DegenerateGeometryError reports a fatal near-zero quantity encountered
// while estimating from one observation triplet.
type DegenerateGeometryError struct {
	Quantity string
	Value    float64
	Triplet  [3]int
}

func (e DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry on triplet %v: %s = %g", e.Triplet, e.Quantity, e.Value)
}

// RootIndexError reports a root selector which does not address any of the
// admissible Gauss polynomial roots.
type RootIndexError struct {
	Index      int
	Candidates int
}

func (e RootIndexError) Error() string {
	return fmt.Sprintf("root index %d out of range: %d admissible root(s)", e.Index, e.Candidates)
}

// NoAdmissibleRootError reports that the Gauss polynomial has no real
// positive root, i.e. the geometry admits no physical solution.
type NoAdmissibleRootError struct {
	Triplet [3]int
}

func (e NoAdmissibleRootError) Error() string {
	return fmt.Sprintf("no admissible Gauss polynomial root on triplet %v", e.Triplet)
}

// GaussSolution is the outcome of one Gauss estimate on a triplet of
// observations: the three position vectors, the velocity at the middle epoch,
// and the intermediate quantities needed to refine them. All fields are owned
// by one invocation and never shared.
type GaussSolution struct {
	R1, R2, R3 []float64 // body positions at the three epochs, km
	V2         []float64 // velocity at the middle epoch, km/s
	JD2        float64   // middle epoch

	// Roots holds all admissible (real, strictly positive) Gauss polynomial
	// roots in ascending order; RootIndex is the one this solution used.
	// More than one root is genuine physical ambiguity, not an error.
	Roots     []float64
	RootIndex int

	// Lagrange coefficients from the latest universal-variable pass.
	F1, G1, F3, G3 float64

	// KeplerConverged reports whether every universal Kepler iteration of
	// the refinement so far converged within its cap.
	KeplerConverged bool

	τ1, τ3, τ float64
	D         [3][3]float64
	D0        float64
	los       [3][]float64
	obsR      [3][]float64
	body      CelestialObject
	triplet   [3]int
	settled   bool
}

// Orbit returns the orbital elements of the solution at the middle epoch.
func (s *GaussSolution) Orbit() *Orbit {
	return NewOrbitFromRV(s.R2, s.V2, s.body)
}

// ElementSet returns the time-anchored element set of the solution.
func (s *GaussSolution) ElementSet() ElementSet {
	return NewElementSetFromRV(s.R2, s.V2, s.JD2, s.body)
}

// GaussCore estimates three position vectors and the middle-epoch velocity
// from three line-of-sight unit vectors, the three matching observer
// positions (km, same frame) and epochs (Julian dates). rootIndex selects
// among multiple admissible Gauss polynomial roots; pass -1 to default to the
// first candidate, which is logged as a choice when there is more than one.
// A nil logger disables logging.
func GaussCore(los1, los2, los3, R1, R2, R3 []float64, jd1, jd2, jd3 float64, body CelestialObject, rootIndex int, logger kitlog.Logger) (*GaussSolution, error) {
	return gaussCore(los1, los2, los3, R1, R2, R3, jd1, jd2, jd3, body, rootIndex, [3]int{0, 1, 2}, logger)
}

func gaussCore(los1, los2, los3, R1, R2, R3 []float64, jd1, jd2, jd3 float64, body CelestialObject, rootIndex int, triplet [3]int, logger kitlog.Logger) (*GaussSolution, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	μ := body.μ
	τ1 := (jd1 - jd2) * 86400
	τ3 := (jd3 - jd2) * 86400
	τ := τ3 - τ1
	if floats.EqualWithinAbs(τ, 0, geomε) {
		return nil, DegenerateGeometryError{"tau", τ, triplet}
	}

	p0 := cross(los2, los3)
	p1 := cross(los1, los3)
	p2 := cross(los1, los2)
	D0 := dot(los1, p0)
	if floats.EqualWithinAbs(D0, 0, geomε) {
		// The three lines of sight are coplanar.
		return nil, DegenerateGeometryError{"D0", D0, triplet}
	}
	var D [3][3]float64
	for i, R := range [][]float64{R1, R2, R3} {
		for j, p := range [][]float64{p0, p1, p2} {
			D[i][j] = dot(R, p)
		}
	}

	A := (-D[0][1]*(τ3/τ) + D[1][1] + D[2][1]*(τ1/τ)) / D0
	B := (D[0][1]*(τ3*τ3-τ*τ)*(τ3/τ) + D[2][1]*(τ*τ-τ1*τ1)*(τ1/τ)) / (6 * D0)
	E := dot(R2, los2)
	R2sq := dot(R2, R2)

	// Gauss polynomial x^8 + a x^6 + b x^3 + c in the geocentric (or
	// heliocentric) distance at the middle epoch.
	a := -(A*A + 2*A*E + R2sq)
	b := -2 * μ * B * (A + E)
	c := -μ * μ * B * B
	roots := admissibleRoots(a, b, c)
	if len(roots) == 0 {
		return nil, NoAdmissibleRootError{triplet}
	}
	if rootIndex >= len(roots) || rootIndex < -1 {
		return nil, RootIndexError{rootIndex, len(roots)}
	}
	if rootIndex == -1 {
		rootIndex = 0
		if len(roots) > 1 {
			logger.Log("msg", "ambiguous Gauss polynomial, defaulting to first root",
				"candidates", len(roots), "r2", roots[0])
		}
	}
	r2 := roots[rootIndex]
	r2cb := math.Pow(r2, 3)

	num1 := 6*(D[2][0]*(τ1/τ3)+D[1][0]*(τ/τ3))*r2cb + μ*D[2][0]*(τ*τ-τ1*τ1)*(τ1/τ3)
	den1 := 6*r2cb + μ*(τ*τ-τ3*τ3)
	if floats.EqualWithinAbs(den1, 0, geomε) {
		return nil, DegenerateGeometryError{"den1", den1, triplet}
	}
	ρ1 := (num1/den1 - D[0][0]) / D0

	ρ2 := A + μ*B/r2cb

	num3 := 6*(D[0][2]*(τ3/τ1)-D[1][2]*(τ/τ1))*r2cb + μ*D[0][2]*(τ*τ-τ3*τ3)*(τ3/τ1)
	den3 := 6*r2cb + μ*(τ*τ-τ1*τ1)
	if floats.EqualWithinAbs(den3, 0, geomε) {
		return nil, DegenerateGeometryError{"den3", den3, triplet}
	}
	ρ3 := (num3/den3 - D[2][2]) / D0

	r1Vec := make([]float64, 3)
	r2Vec := make([]float64, 3)
	r3Vec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		r1Vec[i] = R1[i] + ρ1*los1[i]
		r2Vec[i] = R2[i] + ρ2*los2[i]
		r3Vec[i] = R3[i] + ρ3*los3[i]
	}

	f1 := lagrangeF1(μ, r2, τ1)
	f3 := lagrangeF1(μ, r2, τ3)
	g1 := lagrangeG1(μ, r2, τ1)
	g3 := lagrangeG1(μ, r2, τ3)
	denum := f1*g3 - f3*g1
	if floats.EqualWithinAbs(denum, 0, geomε) {
		return nil, DegenerateGeometryError{"f1*g3-f3*g1", denum, triplet}
	}
	v2 := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v2[i] = (-f3*r1Vec[i] + f1*r3Vec[i]) / denum
	}

	sol := &GaussSolution{
		R1: r1Vec, R2: r2Vec, R3: r3Vec, V2: v2, JD2: jd2,
		Roots: roots, RootIndex: rootIndex,
		F1: f1, G1: g1, F3: f3, G3: g3,
		KeplerConverged: true,
		τ1:              τ1, τ3: τ3, τ: τ,
		D: D, D0: D0,
		los:  [3][]float64{los1, los2, los3},
		obsR: [3][]float64{R1, R2, R3},
		body: body, triplet: triplet,
	}
	for k := 0; k < corePasses; k++ {
		if _, err := sol.refineOnce(); err != nil {
			return nil, err
		}
	}
	return sol, nil
}

// admissibleRoots returns the real strictly positive roots of the degree
// eight polynomial x^8 + a x^6 + b x^3 + c in ascending order, computed as
// the eigenvalues of its companion matrix. A zero root is rejected along
// with the negative ones: the slant-range back-solve divides by the cube of
// the root, so zero distance is as unusable as a negative one.
func admissibleRoots(a, b, c float64) []float64 {
	comp := mat64.NewDense(8, 8, nil)
	for i := 1; i < 8; i++ {
		comp.Set(i, i-1, 1)
	}
	// Monic coefficients: x^8 + a x^6 + 0 x^5 + ... + b x^3 + ... + c.
	comp.Set(0, 7, -c)
	comp.Set(3, 7, -b)
	comp.Set(6, 7, -a)
	var eig mat64.Eigen
	if ok := eig.Factorize(comp, false, false); !ok {
		return nil
	}
	var roots []float64
	for _, z := range eig.Values(nil) {
		re, im := real(z), imag(z)
		if math.Abs(im) > rootImagε*(1+math.Abs(re)) {
			continue
		}
		if re <= 0 {
			continue
		}
		roots = append(roots, re)
	}
	sort.Float64s(roots)
	return roots
}

// Refine performs up to iters iterations of the slant-range refinement: at
// each step it propagates the universal anomaly over τ1 and τ3 from the
// current middle state, averages the recomputed Lagrange coefficients with
// the previous ones, and rebuilds the slant ranges and the middle-epoch
// velocity with an under-relaxed update. The loop stops early once the
// middle slant range moves by less than refineTol; if instead the step size
// grows on two consecutive iterations, the solution is rolled back to the
// last shrinking iterate. Either way the solution is marked settled and
// further Refine calls are no-ops, so the caller should inspect
// KeplerConverged rather than re-running.
func (s *GaussSolution) Refine(iters int) error {
	if s.settled {
		return nil
	}
	prevΔ := math.Inf(1)
	grew := 0
	for k := 0; k < iters; k++ {
		snap := s.snapshot()
		Δ, err := s.refineOnce()
		if err != nil {
			return err
		}
		if Δ < refineTol {
			s.settled = true
			return nil
		}
		if Δ > prevΔ {
			grew++
			if grew == 2 {
				s.restore(snap)
				s.settled = true
				return nil
			}
		} else {
			grew = 0
		}
		prevΔ = Δ
	}
	return nil
}

// gaussState is the mutable part of a GaussSolution, captured for rollback.
type gaussState struct {
	r1, r2, r3, v2 [3]float64
	f1, g1, f3, g3 float64
}

func (s *GaussSolution) snapshot() gaussState {
	var st gaussState
	copy(st.r1[:], s.R1)
	copy(st.r2[:], s.R2)
	copy(st.r3[:], s.R3)
	copy(st.v2[:], s.V2)
	st.f1, st.g1, st.f3, st.g3 = s.F1, s.G1, s.F3, s.G3
	return st
}

func (s *GaussSolution) restore(st gaussState) {
	copy(s.R1, st.r1[:])
	copy(s.R2, st.r2[:])
	copy(s.R3, st.r3[:])
	copy(s.V2, st.v2[:])
	s.F1, s.G1, s.F3, s.G3 = st.f1, st.g1, st.f3, st.g3
}

// refineOnce runs one refinement step and returns the absolute change in the
// middle slant range.
func (s *GaussSolution) refineOnce() (float64, error) {
	μ := s.body.μ
	χ1, conv1 := UniversalKepler(s.τ1, s.R2, s.V2, μ)
	χ3, conv3 := UniversalKepler(s.τ3, s.R2, s.V2, μ)
	if !conv1 || !conv3 {
		s.KeplerConverged = false
	}
	r0 := norm(s.R2)
	v20 := dot(s.V2, s.V2)
	α0 := 2/r0 - v20/μ

	// Halley-style averaging of the old and recomputed coefficients.
	z1 := α0 * χ1 * χ1
	f1New, g1New := lagrangeFG(s.τ1, χ1, z1, r0, μ)
	f1 := (s.F1 + f1New) / 2
	g1 := (s.G1 + g1New) / 2
	z3 := α0 * χ3 * χ3
	f3New, g3New := lagrangeFG(s.τ3, χ3, z3, r0, μ)
	f3 := (s.F3 + f3New) / 2
	g3 := (s.G3 + g3New) / 2

	denum := f1*g3 - f3*g1
	if floats.EqualWithinAbs(denum, 0, geomε) {
		return 0, DegenerateGeometryError{"f1*g3-f3*g1", denum, s.triplet}
	}
	c1 := g3 / denum
	c3 := -g1 / denum
	if floats.EqualWithinAbs(c1, 0, geomε) {
		return 0, DegenerateGeometryError{"c1", c1, s.triplet}
	}
	if floats.EqualWithinAbs(c3, 0, geomε) {
		return 0, DegenerateGeometryError{"c3", c3, s.triplet}
	}

	D := s.D
	ρ1 := (-D[0][0] + D[1][0]/c1 - D[2][0]*(c3/c1)) / s.D0
	ρ2 := (-c1*D[0][1] + D[1][1] - c3*D[2][1]) / s.D0
	ρ3 := (-D[0][2]*(c1/c3) + D[1][2]/c3 - D[2][2]) / s.D0

	// Under-relax toward the recomputed slant ranges. The previous range
	// along each line of sight is the projection of the current position
	// offset onto its unit direction.
	ρ1Old := projRange(s.R1, s.obsR[0], s.los[0])
	ρ2Old := projRange(s.R2, s.obsR[1], s.los[1])
	ρ3Old := projRange(s.R3, s.obsR[2], s.los[2])
	ρ1 = ρ1Old + refineRelax*(ρ1-ρ1Old)
	ρ2 = ρ2Old + refineRelax*(ρ2-ρ2Old)
	ρ3 = ρ3Old + refineRelax*(ρ3-ρ3Old)

	for i := 0; i < 3; i++ {
		s.R1[i] = s.obsR[0][i] + ρ1*s.los[0][i]
		s.R2[i] = s.obsR[1][i] + ρ2*s.los[1][i]
		s.R3[i] = s.obsR[2][i] + ρ3*s.los[2][i]
	}
	for i := 0; i < 3; i++ {
		s.V2[i] = (-f3*s.R1[i] + f1*s.R3[i]) / denum
	}
	s.F1, s.G1, s.F3, s.G3 = f1, g1, f3, g3
	return math.Abs(ρ2 - ρ2Old), nil
}

// projRange returns the range from observer to body along the unit line of
// sight.
func projRange(r, obsR, los []float64) float64 {
	var ρ float64
	for i := 0; i < 3; i++ {
		ρ += (r[i] - obsR[i]) * los[i]
	}
	return ρ
}
