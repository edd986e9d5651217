// Package geo provides great-circle distance helpers.
package geo

import (
	"math"

	"github.com/kilianp07/rescue/core/model"
)

// EarthRadiusKm is the mean Earth radius used for every distance computation.
const EarthRadiusKm = 6371.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// FromLocation drops the address part of a model location.
func FromLocation(l model.Location) Coordinate {
	return Coordinate{Lat: l.Lat, Lng: l.Lng}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the Haversine distance between a and b in kilometres.
func DistanceKm(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Between is DistanceKm for model locations.
func Between(a, b model.Location) float64 {
	return DistanceKm(FromLocation(a), FromLocation(b))
}

// Cartesian projects c onto the unit sphere. Chord length between projected
// points is monotonic in great-circle distance, so nearest-neighbour searches
// in this space agree with DistanceKm ordering.
func Cartesian(c Coordinate) [3]float64 {
	lat, lng := toRad(c.Lat), toRad(c.Lng)
	return [3]float64{
		math.Cos(lat) * math.Cos(lng),
		math.Cos(lat) * math.Sin(lng),
		math.Sin(lat),
	}
}

// ChordToKm converts a squared chord length on the unit sphere to kilometres.
func ChordToKm(sq float64) float64 {
	chord := math.Sqrt(sq)
	if chord > 2 {
		chord = 2
	}
	return 2 * EarthRadiusKm * math.Asin(chord/2)
}
