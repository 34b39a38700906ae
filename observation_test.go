package orbitdeterminator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gonum/floats"
)

func TestParseMPC80(t *testing.T) {
	line := "     K17A01A  C" + // designation and flags
		"2017 01 01.50000 " +
		"12 30 45.00 " +
		"-05 15 30.0 " +
		strings.Repeat(" ", 21) + "691"
	if len(line) != 80 {
		t.Fatalf("fixture line is %d characters", len(line))
	}
	o, err := ParseMPC80(line)
	if err != nil {
		t.Fatalf("ParseMPC80: %s", err)
	}
	if !floats.EqualWithinAbs(o.JD, 2457755.0, 1e-9) {
		t.Fatalf("JD = %f", o.JD)
	}
	// 12h30m45s = 187.6875 degrees.
	if !floats.EqualWithinAbs(o.RA, Deg2rad(187.6875), 1e-12) {
		t.Fatalf("RA = %f deg", Rad2deg(o.RA))
	}
	// -(5 deg 15' 30") = -5.258333 degrees.
	if !floats.EqualWithinAbs(o.Dec, -(5+15/60.+30/3600.)*deg2rad, 1e-12) {
		t.Fatalf("Dec = %f deg", Rad2deg(o.Dec))
	}
	if o.Station != "691" {
		t.Fatalf("station = %s", o.Station)
	}
	if _, err = ParseMPC80("too short"); err == nil {
		t.Fatal("expected an error for a short line")
	}
	bad := line[:15] + "20X7" + line[19:]
	if _, err = ParseMPC80(bad); err == nil {
		t.Fatal("expected an error for a mangled year")
	}
}

func TestParseSatRecord(t *testing.T) {
	o, err := ParseSatRecord("2018 1 10.5 6.5 -23.5 UZH")
	if err != nil {
		t.Fatalf("ParseSatRecord: %s", err)
	}
	// 2018 January 10.5.
	if !floats.EqualWithinAbs(o.JD, 2458129.0, 1e-9) {
		t.Fatalf("JD = %f", o.JD)
	}
	// 6.5 hours = 97.5 degrees.
	if !floats.EqualWithinAbs(o.RA, Deg2rad(97.5), 1e-12) {
		t.Fatalf("RA = %f deg", Rad2deg(o.RA))
	}
	if !floats.EqualWithinAbs(o.Dec, -23.5*deg2rad, 1e-12) {
		t.Fatalf("Dec = %f deg", Rad2deg(o.Dec))
	}
	if o.Station != "UZH" {
		t.Fatalf("station = %s", o.Station)
	}
	if _, err = ParseSatRecord("2018 1 10.5 6.5 -23.5"); err == nil {
		t.Fatal("expected an error for a truncated record")
	}
	if _, err = ParseSatRecord("2018 1 10.5 sixish -23.5 UZH"); err == nil {
		t.Fatal("expected an error for a non numeric RA")
	}
}

func TestLoadObservationFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "obs.txt")
	content := "# synthetic tracking file\n" +
		"\n" +
		"2018 1 10.50 6.5 -23.5 UZH\n" +
		"2018 1 10.51 6.6 -23.4 UZH\n"
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	obs, err := LoadObservationFile(filename, ParseSatRecord)
	if err != nil {
		t.Fatalf("LoadObservationFile: %s", err)
	}
	if len(obs) != 2 {
		t.Fatalf("loaded %d observations", len(obs))
	}
	if obs[0].JD >= obs[1].JD {
		t.Fatal("observations out of order")
	}
	// A malformed line is reported with its position.
	bad := filepath.Join(t.TempDir(), "bad.txt")
	if err = os.WriteFile(bad, []byte("2018 1 10.5 6.5 -23.5 UZH\nnot an observation\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = LoadObservationFile(bad, ParseSatRecord); err == nil {
		t.Fatal("expected an error for a malformed line")
	} else if !strings.Contains(err.Error(), ":2:") {
		t.Fatalf("error does not carry the line number: %s", err)
	}
	if _, err = LoadObservationFile(filepath.Join(t.TempDir(), "missing.txt"), ParseSatRecord); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
