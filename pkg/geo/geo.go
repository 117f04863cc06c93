// Package geo provides great-circle distance math and proximity filtering
// for the nearby-request view.
package geo

import "math"

// EarthRadius is the spherical-Earth approximation radius in meters.
const EarthRadius = 6371000.0

// DefaultRadius is the nearby-view visibility radius in meters.
const DefaultRadius = 700.0

// Point is a coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance computes the haversine great-circle distance between two points
// in meters. It is symmetric and zero for identical points.
func Distance(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0
	la1 := a.Lat * math.Pi / 180.0
	la2 := b.Lat * math.Pi / 180.0
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(la1)*math.Cos(la2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Located is anything with an optional recorded coordinate.
type Located interface {
	Location() (Point, bool)
}

// FilterWithinRadius keeps exactly the items whose recorded location is
// within radiusMeters of origin, preserving input order. Items without a
// location are excluded, never included.
func FilterWithinRadius[T Located](items []T, origin Point, radiusMeters float64) []T {
	kept := make([]T, 0, len(items))
	for _, it := range items {
		p, ok := it.Location()
		if !ok {
			continue
		}
		if Distance(origin, p) <= radiusMeters {
			kept = append(kept, it)
		}
	}
	return kept
}
