package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	od "github.com/GeneralMine/orbitdeterminator"
	"github.com/GeneralMine/orbitdeterminator/lsq"
	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"
)

// Scenario constants
const (
	defaultScenario = "~~unset~~"
)

var scenario string

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "estimation scenario TOML file")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "scenario", scenario)

	obs := loadObservations()
	stations := loadStations(obs)
	pipeline := loadPipeline()

	cfg := od.ArcConfig{
		RefineIters: viper.GetInt("estimate.refine"),
		Logger:      logger,
	}
	if roots := viper.GetStringSlice("estimate.roots"); len(roots) > 0 {
		cfg.RootIndexes = parseRootIndexes(roots, len(obs)-2)
	}

	sol, err := od.EstimateArc(obs, stations, pipeline, cfg)
	if err != nil {
		log.Fatalf("arc estimation failed: %s", err)
	}
	fmt.Printf("=== Gauss solution (%d/%d windows) ===\n", sol.Succeeded, sol.Attempted)
	printElements(sol.Mean, pipeline)

	if viper.GetBool("estimate.leastsquares") {
		// Absolute finite-difference steps for (a, e, τp, ω, I, Ω): the
		// epoch parameter is a Julian date, so a relative step would jump
		// by whole orbits.
		solver := &lsq.LevMar{Settings: lsq.Settings{
			Steps: []float64{1e-3, 1e-8, 1e-7, 1e-8, 1e-8, 1e-8},
		}}
		fitted, status, err := od.Fit(sol.Mean, obs, stations, pipeline, solver, logger)
		if err != nil {
			log.Fatalf("batch correction failed: %s", err)
		}
		fmt.Printf("=== Least-squares solution (%s) ===\n", status)
		printElements(fitted, pipeline)
	}
}

func printElements(set od.ElementSet, pipeline od.Pipeline) {
	fmt.Printf("Semimajor axis (a):              %.6f km\n", set.A)
	fmt.Printf("Eccentricity (e):                %.6f\n", set.E)
	fmt.Printf("Time of pericenter passage (τp): JD %.6f\n", set.TauP)
	fmt.Printf("Argument of pericenter (ω):      %.6f deg\n", od.Rad2deg(set.ArgPeri))
	fmt.Printf("Inclination (I):                 %.6f deg\n", od.Rad2deg(set.Incl))
	fmt.Printf("Longitude of asc. node (Ω):      %.6f deg\n", od.Rad2deg(set.Node))
	if pipeline.Body.Name == "Earth" {
		fmt.Printf("Pericenter altitude (q):         %.3f km\n", set.A*(1-set.E)-pipeline.Body.Radius)
		fmt.Printf("Apocenter altitude (Q):          %.3f km\n", set.A*(1+set.E)-pipeline.Body.Radius)
	}
	fmt.Printf("Orbital period (T):              %.3f min\n", (2*3.141592653589793/set.MeanMotion())/60)
}
