package orbitdeterminator

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

const (
	r2d = 180 / math.Pi
	d2r = 1 / r2d
)

var (
	// σradec is the default synthetic observation noise (1 arcsecond, in radians squared).
	σradec = math.Pow(4.848e-6, 2)

	// Obs691 is MPC observatory 691, Steward Observatory (Spacewatch), Kitt Peak.
	Obs691 = NewMPCStation("691", 248.4010, +0.52642, 0.84951, σradec)
	// Obs586 is MPC observatory 586, Pic du Midi.
	Obs586 = NewMPCStation("586", 0.1423, +0.67799, 0.73358, σradec)
	// DSS34Canberra and friends double as satellite tracking sites.
	DSS34Canberra  = NewGeodeticStation("DSS34Canberra", -35.398333, 148.981944, 0.691750, σradec)
	DSS65Madrid    = NewGeodeticStation("DSS65Madrid", 40.427222, 4.250556, 0.834939, σradec)
	DSS13Goldstone = NewGeodeticStation("DSS13Goldstone", 35.247164, 243.205, 1.07114904, σradec)
)

// Station defines an observing site. A station is either an MPC-style site
// described by its longitude and the parallax constants S, C, or a geodetic
// site described by latitude, longitude and elevation above the reference
// ellipsoid.
type Station struct {
	Name                 string
	LatΦ, Longθ          float64 // stored in radians!
	Altitude             float64 // km above the ellipsoid
	ParallaxS, ParallaxC float64
	RaDecNoise           *distmv.Normal // synthetic observation noise, may be nil
	Planet               CelestialObject
	geodetic             bool
}

// NewMPCStation returns a station defined by its longitude EAST of Greenwich
// in degrees and the MPC parallax constants S = ρ sin φ' and C = ρ cos φ'.
// σradec is the variance of the synthetic observation noise in radians²; pass
// 0 for a noiseless station.
func NewMPCStation(code string, longθ, parallaxS, parallaxC, σradec float64) Station {
	return Station{Name: code, LatΦ: math.Atan2(parallaxS, parallaxC), Longθ: longθ * d2r,
		ParallaxS: parallaxS, ParallaxC: parallaxC, RaDecNoise: radecNoise(σradec), Planet: Earth}
}

// NewGeodeticStation returns a station defined by its geodetic latitude and
// longitude (degrees) and its elevation above the reference ellipsoid (km).
func NewGeodeticStation(name string, latΦ, longθ, altitude, σradec float64) Station {
	return Station{Name: name, LatΦ: latΦ * d2r, Longθ: longθ * d2r, Altitude: altitude,
		RaDecNoise: radecNoise(σradec), Planet: Earth, geodetic: true}
}

func radecNoise(σradec float64) *distmv.Normal {
	if σradec == 0 {
		return nil
	}
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	noise, ok := distmv.NewNormal([]float64{0, 0}, mat64.NewSymDense(2, []float64{σradec, 0, 0, σradec}), seed)
	if !ok {
		panic("NOK in Gaussian")
	}
	return noise
}

// Position returns the Earth-centered equatorial position of the station in
// km at the given Julian date.
func (s Station) Position(jd float64) []float64 {
	if s.geodetic {
		return s.positionEarthCentered(jd)
	}
	return s.positionGeocentric(jd)
}

// positionGeocentric rotates the parallax constants by the local sidereal
// time (Orbital Mechanics, chapter 5, page 266).
func (s Station) positionGeocentric(jd float64) []float64 {
	sθ, cθ := math.Sincos(θLST(jd, s.Longθ*r2d))
	re := s.Planet.Radius
	return []float64{re * s.ParallaxC * cθ, re * s.ParallaxC * sθ, re * s.ParallaxS}
}

// positionEarthCentered evaluates the oblate-ellipsoid model at the local
// sidereal time.
func (s Station) positionEarthCentered(jd float64) []float64 {
	sθ, cθ := math.Sincos(θLST(jd, s.Longθ*r2d))
	sφ, cφ := math.Sincos(s.LatΦ)
	f := s.Planet.Flattening
	re := s.Planet.Radius
	denom := math.Sqrt(1 - (2*f-f*f)*sφ*sφ)
	cΦ := re/denom + s.Altitude
	sΦ := re*(1-f)*(1-f)/denom + s.Altitude
	return []float64{cΦ * cφ * cθ, cΦ * cφ * sθ, sΦ * sφ}
}

// Observe returns the angles-only observation of a target at position r seen
// from the observer position R, both in the same frame and units. If noisy is
// set and the station carries a noise model, Gaussian noise is added to the
// right ascension and declination.
func (s Station) Observe(jd float64, r, R []float64, noisy bool) Observation {
	ρ := []float64{r[0] - R[0], r[1] - R[1], r[2] - R[2]}
	ρNorm := norm(ρ)
	ra := math.Atan2(ρ[1], ρ[0])
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec := math.Asin(ρ[2] / ρNorm)
	if noisy && s.RaDecNoise != nil {
		n := s.RaDecNoise.Rand(nil)
		ra += n[0]
		dec += n[1]
	}
	return Observation{JD: jd, RA: ra, Dec: dec, Station: s.Name}
}

func (s Station) String() string {
	if s.geodetic {
		return fmt.Sprintf("%s (%f,%f); alt = %f km", s.Name, s.LatΦ*r2d, s.Longθ*r2d, s.Altitude)
	}
	return fmt.Sprintf("%s long=%f S=%f C=%f", s.Name, s.Longθ*r2d, s.ParallaxS, s.ParallaxC)
}

// BuiltinStationFromName returns one of the built in stations from its name
// or observatory code.
func BuiltinStationFromName(name string) Station {
	switch strings.ToLower(name) {
	case "691":
		return Obs691
	case "586":
		return Obs586
	case "dss13":
		return DSS13Goldstone
	case "dss34":
		return DSS34Canberra
	case "dss65":
		return DSS65Madrid
	default:
		panic(fmt.Errorf("unknown station `%s`", name))
	}
}
