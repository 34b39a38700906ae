package orbitdeterminator

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestCross(t *testing.T) {
	i := []float64{1, 0, 0}
	j := []float64{0, 1, 0}
	k := []float64{0, 0, 1}
	if !vectorsEqual(cross(i, j), k) {
		t.Fatal("i x j != k")
	}
	if !vectorsEqual(cross(j, k), i) {
		t.Fatal("j x k != i")
	}
	if !vectorsEqual(cross([]float64{2, 3, 4}, []float64{5, 6, 7}), []float64{-3, 6, -3}) {
		t.Fatal("cross fail")
	}
	// From Vallado
	if !vectorsEqual(cross([]float64{6524.834, 6862.875, 6448.296}, []float64{4.901327, 5.533756, -1.976341}), []float64{-4.924667792015100e4, 4.450050424118601e4, 0.246964476137900e4}) {
		t.Fatal("cross fail")
	}
}

func TestNormUnit(t *testing.T) {
	v := []float64{3, 4, 0}
	if !floats.EqualWithinAbs(norm(v), 5, 1e-12) {
		t.Fatalf("|v|=%f", norm(v))
	}
	if !vectorsEqual(unit(v), []float64{0.6, 0.8, 0}) {
		t.Fatal("unit fail")
	}
	if !vectorsEqual(unit([]float64{0, 0, 0}), []float64{0, 0, 0}) {
		t.Fatal("unit of null vector must be null")
	}
}

func TestAngleDifference(t *testing.T) {
	for a := 0.0; a < 2*math.Pi; a += 0.1 {
		if d := AngleDifference(a, a); d != 0 {
			t.Fatalf("AngleDifference(%f, %f) = %g", a, a, d)
		}
	}
	for a1 := 0.0; a1 < 2*math.Pi; a1 += 0.3 {
		for a2 := 0.0; a2 < 2*math.Pi; a2 += 0.3 {
			d := AngleDifference(a1, a2)
			if d <= -math.Pi || d > math.Pi {
				t.Fatalf("AngleDifference(%f, %f) = %f out of (-π, π]", a1, a2, d)
			}
			if !floats.EqualWithinAbs(d, -AngleDifference(a2, a1), 1e-12) {
				t.Fatalf("AngleDifference not antisymmetric at (%f, %f)", a1, a2)
			}
		}
	}
	// Wraparound: two right ascensions straddling the 0/2π seam.
	if d := AngleDifference(2*math.Pi-0.1, 0.1); !floats.EqualWithinAbs(d, 0.2, 1e-12) {
		t.Fatalf("wraparound difference = %f", d)
	}
	if d := AngleDifference(0.1, 2*math.Pi-0.1); !floats.EqualWithinAbs(d, -0.2, 1e-12) {
		t.Fatalf("wraparound difference = %f", d)
	}
}

func TestLOSVector(t *testing.T) {
	if !vectorsEqual(LOSVector(0, 0), []float64{1, 0, 0}) {
		t.Fatal("LOS toward vernal equinox fail")
	}
	los90 := LOSVector(math.Pi/2, 0)
	if !floats.EqualWithinAbs(los90[0], 0, 1e-12) || !floats.EqualWithinAbs(los90[1], 1, 1e-12) {
		t.Fatal("LOS at ra=90 fail")
	}
	los := LOSVector(0.5, math.Pi/2)
	if !floats.EqualWithinAbs(los[2], 1, 1e-12) {
		t.Fatal("LOS at celestial pole fail")
	}
	for ra := 0.0; ra < 2*math.Pi; ra += 0.7 {
		for dec := -1.5; dec < 1.5; dec += 0.5 {
			if !floats.EqualWithinAbs(norm(LOSVector(ra, dec)), 1, 1e-12) {
				t.Fatalf("LOS not unit at ra=%f dec=%f", ra, dec)
			}
		}
	}
}
