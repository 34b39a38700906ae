package main

import (
	"log"
	"strconv"

	od "github.com/GeneralMine/orbitdeterminator"
	"github.com/spf13/viper"
)

func loadObservations() []od.Observation {
	file := viper.GetString("observations.file")
	if file == "" {
		log.Fatal("observations.file not set")
	}
	parse := od.ParseMPC80
	if viper.GetString("observations.format") == "sat" {
		parse = od.ParseSatRecord
	}
	obs, err := od.LoadObservationFile(file, parse)
	if err != nil {
		log.Fatalf("could not load %s: %s", file, err)
	}
	// An optional index list restricts the arc to a subset of the file.
	if indices := viper.GetIntSlice("observations.indices"); len(indices) > 0 {
		subset := make([]od.Observation, len(indices))
		for i, idx := range indices {
			if idx < 0 || idx >= len(obs) {
				log.Fatalf("observation index %d out of range (%d loaded)", idx, len(obs))
			}
			subset[i] = obs[idx]
		}
		obs = subset
	}
	return obs
}

// loadStations resolves every station code referenced by the arc, either as
// a built-in or from a [stations.<name>] scenario block.
func loadStations(obs []od.Observation) map[string]od.Station {
	stations := make(map[string]od.Station)
	for _, o := range obs {
		if _, found := stations[o.Station]; found {
			continue
		}
		key := "stations." + o.Station
		if viper.IsSet(key) {
			if viper.IsSet(key + ".parallaxS") {
				stations[o.Station] = od.NewMPCStation(o.Station,
					viper.GetFloat64(key+".longitude"),
					viper.GetFloat64(key+".parallaxS"),
					viper.GetFloat64(key+".parallaxC"), 0)
			} else {
				stations[o.Station] = od.NewGeodeticStation(o.Station,
					viper.GetFloat64(key+".latitude"),
					viper.GetFloat64(key+".longitude"),
					viper.GetFloat64(key+".altitude"), 0)
			}
			continue
		}
		stations[o.Station] = od.BuiltinStationFromName(o.Station)
	}
	return stations
}

func loadPipeline() od.Pipeline {
	bodyName := viper.GetString("estimate.body")
	body, err := od.CelestialObjectFromString(bodyName)
	if err != nil {
		log.Fatalf("could not understand body `%s`: %s", bodyName, err)
	}
	if body.Name == "Sun" {
		eph, err := od.NewVSOP87Ephemeris()
		if err != nil {
			log.Fatalf("%s", err)
		}
		return od.HeliocentricPipeline(eph)
	}
	return od.GeocentricPipeline()
}

func parseRootIndexes(roots []string, nWindows int) []int {
	if len(roots) != nWindows {
		log.Fatalf("estimate.roots has %d entries for %d windows", len(roots), nWindows)
	}
	indexes := make([]int, len(roots))
	for i, r := range roots {
		idx, err := strconv.Atoi(r)
		if err != nil {
			log.Fatalf("invalid root index `%s`: %s", r, err)
		}
		indexes[i] = idx
	}
	return indexes
}
