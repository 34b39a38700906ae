package orbitdeterminator

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

const (
	// EarthRotationRate is the average Earth rotation rate in radians per second.
	EarthRotationRate = 7.2921158553e-5
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R2 rotation about the 2nd axis.
func R2(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, 0, -s, 0, 1, 0, s, 0, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m *mat64.Dense, v []float64) (o []float64) {
	vVec := mat64.NewVector(len(v), v)
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return []float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// PQW2ECI converts a given vector from the perifocal frame to the inertial
// frame via the 3-1-3 rotation sequence R3(-Ω) R1(-i) R3(-ω).
func PQW2ECI(i, ω, Ω float64, vI []float64) []float64 {
	var mulM mat64.Dense
	mulM.Mul(R3(-Ω), R1(-i))
	mulM.Mul(&mulM, R3(-ω))
	return MxV33(&mulM, vI)
}

// GMST returns the Greenwich mean sidereal time in hours at the UT instant of
// the provided Julian date.
func GMST(jd float64) float64 {
	// Split the date into the preceding midnight and the UT hours past it.
	jd0 := math.Floor(jd-0.5) + 0.5
	ut := (jd - jd0) * 24
	gmst := math.Mod(6.656306+0.0657098242*(jd0-2445700.5)+1.0027379093*ut, 24)
	if gmst < 0 {
		gmst += 24
	}
	return gmst
}

// LocalSiderealTime returns the local sidereal time in hours at the given
// Julian date for a longitude EAST of Greenwich in degrees.
func LocalSiderealTime(jd, longitude float64) float64 {
	lst := math.Mod(GMST(jd)+longitude/15, 24)
	if lst < 0 {
		lst += 24
	}
	return lst
}

// θLST returns the local sidereal rotation angle in radians.
func θLST(jd, longitude float64) float64 {
	return Deg2rad(15 * LocalSiderealTime(jd, longitude))
}
