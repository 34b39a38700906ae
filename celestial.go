package orbitdeterminator

import (
	"fmt"
	"math"
	"strings"

	"github.com/soniakeys/meeus/v3/planetposition"
)

const (
	// AU is one astronomical unit in kilometers.
	AU = 1.49597870700e8
	// obliquity of the ecliptic at J2000, in radians.
	obliquityJ2000 = 23.439291111 * deg2rad
)

// CelestialObject defines the center of attraction of an estimated orbit.
type CelestialObject struct {
	Name       string
	Radius     float64 // equatorial radius in km
	μ          float64 // gravitational parameter in km^3/s^2
	Flattening float64 // oblateness of the reference ellipsoid
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c *CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "sun":
		return Sun, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined body '%s'", name)
	}
}

/* Definitions */

// Sun is the center of attraction for heliocentric (minor planet) estimates.
var Sun = CelestialObject{"Sun", 695700, 1.32712440041939400e11, 0}

// Earth is the center of attraction for geocentric (satellite) estimates.
var Earth = CelestialObject{"Earth", 6378.0, 3.98600435436e5, 0.003353}

// Ephemeris provides the heliocentric position of the Earth at a given epoch.
// It stands in for a full planetary ephemeris service: the estimator only
// ever needs Earth's position to shift topocentric observer positions into
// the heliocentric frame.
type Ephemeris interface {
	// EarthPosition returns Earth's heliocentric position in km, in the
	// equatorial frame at J2000, for the given Julian date.
	EarthPosition(jd float64) []float64
}

// VSOP87Ephemeris computes Earth's heliocentric position from the VSOP87
// planetary theory. The data files are loaded once from the directory named
// in the configuration file.
type VSOP87Ephemeris struct {
	earth *planetposition.V87Planet
}

// NewVSOP87Ephemeris loads the VSOP87 Earth data from the configured path.
func NewVSOP87Ephemeris() (*VSOP87Ephemeris, error) {
	// VSOP87 planet files are zero-indexed from Mercury, so Earth is 2.
	planet, err := planetposition.LoadPlanetPath(2, config().VSOP87Dir)
	if err != nil {
		return nil, fmt.Errorf("could not load VSOP87 Earth data: %s", err)
	}
	return &VSOP87Ephemeris{earth: planet}, nil
}

// EarthPosition implements the Ephemeris interface.
func (v *VSOP87Ephemeris) EarthPosition(jd float64) []float64 {
	l, b, r := v.earth.Position2000(jd)
	r *= AU
	sB, cB := math.Sincos(b.Rad())
	sL, cL := math.Sincos(l.Rad())
	// Ecliptic Cartesian coordinates, rotated to the equatorial frame.
	ecl := []float64{r * cB * cL, r * cB * sL, r * sB}
	return MxV33(R1(-obliquityJ2000), ecl)
}
