package geo

import "math"

const earthRadiusMetres float64 = 6371000

// GPSScale converts fixed-point latitude/longitude (1e-7 degrees) to degrees.
const GPSScale float64 = 10000000

// Position is a sampled or planned location. Alt is metres above home for
// everything except the mission home itself.
type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

// Unknown marks a position that has not been sampled yet.
var Unknown = Position{Lat: -1, Lon: -1, Alt: -1}

func (p Position) Known() bool {
	return p != Unknown
}

// FromFixed converts the navigation system's fixed-point triple.
func FromFixed(lat, lon, alt int32, altScale float64) Position {
	return Position{
		Lat: float64(lat) / GPSScale,
		Lon: float64(lon) / GPSScale,
		Alt: float64(alt) / altScale,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance is the haversine great-circle distance in metres. Altitude is ignored.
func Distance(from, to Position) float64 {
	lat1 := radians(from.Lat)
	lat2 := radians(to.Lat)
	dlat := lat2 - lat1
	dlon := radians(to.Lon) - radians(from.Lon)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	// rounding can push h a hair outside [0,1] for (anti)identical points
	h = math.Max(0, math.Min(1, h))

	return 2 * earthRadiusMetres * math.Asin(math.Sqrt(h))
}

// CrossPoint returns the foot of the perpendicular dropped from p onto the line
// through a and b. The two line equations are solved in plain lat/lon degrees,
// which only holds for short legs.
//
//	line:          dlat*(x-lon1) - dlon*(y-lat1) = 0
//	perpendicular: dlon*(x-lon3) + dlat*(y-lat3) = 0
func CrossPoint(a, b, p Position) Position {
	dlon := b.Lon - a.Lon
	dlat := b.Lat - a.Lat
	det := dlat*dlat + dlon*dlon
	if det == 0 {
		return Position{Lat: a.Lat, Lon: a.Lon, Alt: p.Alt}
	}

	c1 := dlat*a.Lon - dlon*a.Lat
	c2 := dlon*p.Lon + dlat*p.Lat

	lon := (c1*dlat + c2*dlon) / det
	lat := (c2*dlat - c1*dlon) / det

	return Position{Lat: lat, Lon: lon, Alt: p.Alt}
}

// CrossTrackDistance is the distance in metres from p to the line through a and b.
func CrossTrackDistance(a, b, p Position) float64 {
	return Distance(p, CrossPoint(a, b, p))
}

// Offset moves p by north/east metres on a spherical earth.
func Offset(p Position, north, east float64) Position {
	lat := p.Lat + degrees(north/earthRadiusMetres)
	lon := p.Lon + degrees(east/(earthRadiusMetres*math.Cos(radians(p.Lat))))
	return Position{Lat: lat, Lon: lon, Alt: p.Alt}
}
