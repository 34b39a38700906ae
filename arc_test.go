package orbitdeterminator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// arcFixture synthesizes n observations of the gaussFixture orbit, dt seconds
// apart, optionally with seeded Gaussian noise on the angles.
func arcFixture(n int, dt float64, noisy bool) ([]Observation, map[string]Station, ElementSet) {
	jd0 := 2458119.5
	truth := ElementSet{A: 7000, E: 0, TauP: jd0 - 0.01, ArgPeri: 0, Incl: Deg2rad(51.6), Node: Deg2rad(40), Origin: Earth}
	st := NewGeodeticStation("fixture", -35.4, 149.0, 0.692, 0)
	if noisy {
		seed := rand.New(rand.NewSource(42))
		// Centiarcsecond noise: a single window's semimajor axis estimate is
		// extremely sensitive to angle errors over a one-minute arc, so the
		// full survey-grade arcsecond would swamp the averaging under test.
		σ := math.Pow(4.848e-8, 2)
		noise, ok := distmv.NewNormal([]float64{0, 0}, mat64.NewSymDense(2, []float64{σ, 0, 0, σ}), seed)
		if !ok {
			panic("NOK in Gaussian")
		}
		st.RaDecNoise = noise
	}
	obs := make([]Observation, n)
	for k := 0; k < n; k++ {
		jd := jd0 + float64(k)*dt/86400
		r, _ := truth.StateAt(jd)
		obs[k] = st.Observe(jd, r, st.Position(jd), noisy)
	}
	return obs, map[string]Station{"fixture": st}, truth
}

func TestEstimateArc(t *testing.T) {
	obs, stations, truth := arcFixture(5, 60, false)
	sol, err := EstimateArc(obs, stations, GeocentricPipeline(), ArcConfig{RefineIters: 10})
	if err != nil {
		t.Fatalf("EstimateArc: %s", err)
	}
	if sol.Attempted != 3 || sol.Succeeded != 3 {
		t.Fatalf("attempted %d succeeded %d", sol.Attempted, sol.Succeeded)
	}
	if len(sol.Windows) != 3 {
		t.Fatalf("%d windows", len(sol.Windows))
	}
	if !floats.EqualWithinRel(sol.Mean.A, truth.A, 1e-3) {
		t.Fatalf("mean a = %f", sol.Mean.A)
	}
	if sol.Mean.E > 1e-2 {
		t.Fatalf("mean e = %f", sol.Mean.E)
	}
	if !floats.EqualWithinAbs(sol.Mean.Incl, truth.Incl, Deg2rad(0.1)) {
		t.Fatalf("mean I = %f", Rad2deg(sol.Mean.Incl))
	}
	if !floats.EqualWithinAbs(sol.Mean.Node, truth.Node, Deg2rad(0.1)) {
		t.Fatalf("mean Ω = %f", Rad2deg(sol.Mean.Node))
	}
	// Endpoints: r1 of the first window and r3 of the last one.
	r1, _ := truth.StateAt(obs[0].JD)
	rN, _ := truth.StateAt(obs[4].JD)
	d1 := []float64{sol.FirstR[0] - r1[0], sol.FirstR[1] - r1[1], sol.FirstR[2] - r1[2]}
	dN := []float64{sol.LastR[0] - rN[0], sol.LastR[1] - rN[1], sol.LastR[2] - rN[2]}
	if norm(d1) > 5 {
		t.Fatalf("first endpoint off truth by %f km", norm(d1))
	}
	if norm(dN) > 5 {
		t.Fatalf("last endpoint off truth by %f km", norm(dN))
	}
}

func TestEstimateArcAveragingReducesScatter(t *testing.T) {
	obs, stations, truth := arcFixture(9, 60, true)
	sol, err := EstimateArc(obs, stations, GeocentricPipeline(), ArcConfig{RefineIters: 10})
	if err != nil {
		t.Fatalf("EstimateArc: %s", err)
	}
	if sol.Succeeded < 5 {
		t.Fatalf("only %d of %d windows succeeded", sol.Succeeded, sol.Attempted)
	}
	meanErr := math.Abs(sol.Mean.A - truth.A)
	worst := 0.0
	for _, w := range sol.Windows {
		if err := math.Abs(w.A - truth.A); err > worst {
			worst = err
		}
	}
	if meanErr > worst {
		t.Fatalf("mean error %f km worse than the worst window %f km", meanErr, worst)
	}
	// At this noise level the averaged semimajor axis stays within a few
	// percent on a one-minute cadence.
	if !floats.EqualWithinRel(sol.Mean.A, truth.A, 0.05) {
		t.Fatalf("mean a = %f", sol.Mean.A)
	}
}

func TestEstimateArcSkipsBadWindows(t *testing.T) {
	obs, stations, _ := arcFixture(5, 60, false)
	// Duplicate an observation: the windows holding the pair see coplanar
	// lines of sight but the arc still produces an estimate from the healthy
	// windows.
	obs[1] = obs[2]
	sol, err := EstimateArc(obs, stations, GeocentricPipeline(), ArcConfig{RefineIters: 5})
	if err != nil {
		t.Fatalf("EstimateArc: %s", err)
	}
	if sol.Succeeded >= sol.Attempted {
		t.Fatal("expected at least one skipped window")
	}
	if sol.Succeeded == 0 {
		t.Fatal("expected at least one healthy window")
	}
}

func TestEstimateArcErrors(t *testing.T) {
	obs, stations, _ := arcFixture(5, 60, false)
	if _, err := EstimateArc(obs[:2], stations, GeocentricPipeline(), ArcConfig{}); err == nil {
		t.Fatal("expected an error for fewer than 3 observations")
	}
	if _, err := EstimateArc(obs, stations, GeocentricPipeline(), ArcConfig{RootIndexes: []int{0}}); err == nil {
		t.Fatal("expected an error for a mis-sized root index slice")
	}
	if _, err := EstimateArc(obs, map[string]Station{}, GeocentricPipeline(), ArcConfig{}); err == nil {
		t.Fatal("expected an error for an unknown station")
	}
	// All windows degenerate: identical epochs everywhere.
	for k := range obs {
		obs[k].JD = obs[0].JD
	}
	if _, err := EstimateArc(obs, stations, GeocentricPipeline(), ArcConfig{}); err == nil {
		t.Fatal("expected an error when every window fails")
	}
}
