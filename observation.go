package orbitdeterminator

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/soniakeys/meeus/v3/julian"
	skunit "github.com/soniakeys/unit"
)

// Observation is a single angles-only measurement: where a station saw the
// body at a given epoch. Observations are immutable once loaded.
type Observation struct {
	JD      float64 // epoch as a Julian date
	RA, Dec float64 // radians
	Station string  // observatory code or station name
}

// LOS returns the line-of-sight unit vector of this observation.
func (o Observation) LOS() []float64 {
	return LOSVector(o.RA, o.Dec)
}

func (o Observation) String() string {
	return fmt.Sprintf("%s@JD%.5f ra=%.6f dec=%.6f", o.Station, o.JD, Rad2deg(o.RA), Rad2deg(o.Dec))
}

// ParseMPC80 parses a single 80 column MPC optical observation line.
// The format is described at
// https://www.minorplanetcenter.net/iau/info/OpticalObs.html; only ground
// based observations are handled here.
func ParseMPC80(line string) (Observation, error) {
	var o Observation
	if len(line) != 80 {
		return o, fmt.Errorf("MPC line must be 80 characters, got %d", len(line))
	}
	year, err := strconv.Atoi(strings.TrimSpace(line[15:19]))
	if err != nil {
		return o, fmt.Errorf("invalid year (%s): %s", line[15:19], err)
	}
	month, err := strconv.Atoi(strings.TrimSpace(line[20:22]))
	if err != nil {
		return o, fmt.Errorf("invalid month (%s): %s", line[20:22], err)
	}
	day, err := strconv.ParseFloat(strings.TrimSpace(line[23:32]), 64)
	if err != nil {
		return o, fmt.Errorf("invalid day (%s): %s", line[23:32], err)
	}
	rah, err := strconv.Atoi(strings.TrimSpace(line[32:34]))
	var ram int
	var ras float64
	if err == nil {
		ram, err = strconv.Atoi(strings.TrimSpace(line[35:37]))
		if err == nil {
			ras, err = strconv.ParseFloat(strings.TrimSpace(line[38:44]), 64)
		}
	}
	if err != nil {
		return o, fmt.Errorf("invalid RA (%s): %s", line[32:44], err)
	}
	decd, err := strconv.Atoi(strings.TrimSpace(line[45:47]))
	var decm int
	var decs float64
	if err == nil {
		decm, err = strconv.Atoi(strings.TrimSpace(line[48:50]))
		if err == nil {
			decs, err = strconv.ParseFloat(strings.TrimSpace(line[51:56]), 64)
		}
	}
	if err != nil {
		return o, fmt.Errorf("invalid Dec (%s): %s", line[44:56], err)
	}
	neg := byte(' ')
	if line[44] == '-' {
		neg = '-'
	}
	o.JD = julian.CalendarGregorianToJD(year, month, day)
	o.RA = skunit.NewRA(rah, ram, ras).Rad()
	o.Dec = skunit.NewAngle(neg, decd, decm, decs).Rad()
	o.Station = strings.TrimSpace(line[77:80])
	return o, nil
}

// ParseSatRecord parses a whitespace delimited satellite tracking record:
// year month day.fraction ra_hours dec_degrees station
func ParseSatRecord(line string) (Observation, error) {
	var o Observation
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return o, fmt.Errorf("satellite record needs 6 fields, got %d", len(fields))
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return o, fmt.Errorf("invalid year (%s): %s", fields[0], err)
	}
	month, err := strconv.Atoi(fields[1])
	if err != nil {
		return o, fmt.Errorf("invalid month (%s): %s", fields[1], err)
	}
	day, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return o, fmt.Errorf("invalid day (%s): %s", fields[2], err)
	}
	raHrs, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return o, fmt.Errorf("invalid RA (%s): %s", fields[3], err)
	}
	decDeg, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return o, fmt.Errorf("invalid Dec (%s): %s", fields[4], err)
	}
	o.JD = julian.CalendarGregorianToJD(year, month, day)
	o.RA = skunit.RAFromHour(raHrs).Rad()
	o.Dec = skunit.AngleFromDeg(decDeg).Rad()
	o.Station = fields[5]
	return o, nil
}

// LoadObservationFile reads a file of observations, one per line, using the
// provided parser (ParseMPC80 or ParseSatRecord). Blank lines and lines
// starting with # are skipped.
func LoadObservationFile(filename string, parse func(string) (Observation, error)) ([]Observation, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var obs []Observation
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		o, err := parse(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s", filename, lineNo, err)
		}
		obs = append(obs, o)
	}
	return obs, scanner.Err()
}
