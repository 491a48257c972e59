package geo

import (
	"math"
	"testing"
)

const epsilon = 1e-6

func TestDistanceIdentityAndSymmetry(t *testing.T) {
	points := []Position{
		{Lat: 0, Lon: 0},
		{Lat: 53.1019446, Lon: 107.3774394, Alt: 846},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 60.1699, Lon: 24.9384, Alt: 12},
	}

	for _, a := range points {
		if d := Distance(a, a); math.Abs(d) > epsilon {
			t.Errorf("%+v: got %g for distance to itself, expected 0", a, d)
		}
		for _, b := range points {
			ab, ba := Distance(a, b), Distance(b, a)
			if math.Abs(ab-ba) > epsilon {
				t.Errorf("%+v -> %+v: got %g one way and %g the other", a, b, ab, ba)
			}
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// one degree of arc on the equator
	d := Distance(Position{Lat: 0, Lon: 0}, Position{Lat: 0, Lon: 1})
	expected := earthRadiusMetres * math.Pi / 180
	if math.Abs(d-expected) > 1e-3 {
		t.Errorf("got %f, expected %f", d, expected)
	}

	home := Position{Lat: 53.1019446, Lon: 107.3774394}
	for _, m := range []float64{1, 3, 5, 100} {
		if d := Distance(home, Offset(home, m, 0)); math.Abs(d-m) > 1e-3 {
			t.Errorf("north offset %g m: got %f", m, d)
		}
		if d := Distance(home, Offset(home, 0, m)); math.Abs(d-m) > 1e-3 {
			t.Errorf("east offset %g m: got %f", m, d)
		}
	}
}

func TestCrossTrackOnLine(t *testing.T) {
	legs := [][2]Position{
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.001}},
		{{Lat: 0, Lon: 0}, {Lat: 0.001, Lon: 0}},
		{{Lat: 53.1019446, Lon: 107.3774394}, {Lat: 53.1020863, Lon: 107.3774180}},
		{{Lat: 10, Lon: 20}, {Lat: 10.0003, Lon: 20.0004}},
	}

	for _, leg := range legs {
		for _, f := range []float64{0, 0.25, 0.5, 1} {
			p := Position{
				Lat: leg[0].Lat + f*(leg[1].Lat-leg[0].Lat),
				Lon: leg[0].Lon + f*(leg[1].Lon-leg[0].Lon),
			}
			if d := CrossTrackDistance(leg[0], leg[1], p); d > epsilon {
				t.Errorf("%+v at %g: got %g, expected 0", leg, f, d)
			}
		}
	}
}

func TestCrossTrackEquatorOffsets(t *testing.T) {
	a := Position{Lat: 0, Lon: 0}
	b := Position{Lat: 0, Lon: 0.001}
	mid := Position{Lat: 0, Lon: 0.0005}

	for _, m := range []float64{3, 4.5, 5} {
		for _, sign := range []float64{1, -1} {
			p := Offset(mid, sign*m, 0)
			if d := CrossTrackDistance(a, b, p); math.Abs(d-m) > 1e-3 {
				t.Errorf("offset %g m: got %f", sign*m, d)
			}
		}
	}
}

func TestCrossPointDegenerateLeg(t *testing.T) {
	a := Position{Lat: 10, Lon: 20}
	p := Offset(a, 7, 0)
	cp := CrossPoint(a, a, p)
	if cp.Lat != a.Lat || cp.Lon != a.Lon {
		t.Errorf("got %+v, expected leg start %+v", cp, a)
	}
	if d := CrossTrackDistance(a, a, p); math.Abs(d-7) > 1e-3 {
		t.Errorf("got %f, expected 7", d)
	}
}

func TestFromFixed(t *testing.T) {
	p := FromFixed(531019446, 1073774394, 846220, 1000)
	if math.Abs(p.Lat-53.1019446) > 1e-9 || math.Abs(p.Lon-107.3774394) > 1e-9 || math.Abs(p.Alt-846.22) > 1e-9 {
		t.Errorf("got %+v", p)
	}
	if !p.Known() {
		t.Errorf("converted position reported as unknown")
	}
	if Unknown.Known() {
		t.Errorf("sentinel reported as known")
	}
}
