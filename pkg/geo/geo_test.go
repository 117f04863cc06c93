package geo

import (
	"math"
	"testing"
)

type spot struct {
	lat, lon float64
	has      bool
}

func (s spot) Location() (Point, bool) {
	return Point{Lat: s.lat, Lon: s.lon}, s.has
}

func TestDistance_Symmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lon: -74.0060}
	b := Point{Lat: 18.0735, Lon: -15.9582}

	ab := Distance(a, b)
	ba := Distance(b, a)
	if ab != ba {
		t.Errorf("Distance not symmetric: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("Expected positive distance, got %f", ab)
	}
}

func TestDistance_Zero(t *testing.T) {
	p := Point{Lat: 51.5074, Lon: -0.1278}
	if d := Distance(p, p); d != 0 {
		t.Errorf("Expected 0 for identical points, got %f", d)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// (0, 0.0063) degrees of longitude on the equator is about 700.9 m.
	d := Distance(Point{}, Point{Lat: 0, Lon: 0.0063})
	if math.Abs(d-700.9) > 1.0 {
		t.Errorf("Expected ~700.9m, got %f", d)
	}
}

func TestFilterWithinRadius_Boundary(t *testing.T) {
	near := spot{lat: 0, lon: 0.0063, has: true}

	if got := FilterWithinRadius([]spot{near}, Point{}, 700); len(got) != 0 {
		t.Errorf("Expected ~700.9m spot excluded at radius 700, got %v", got)
	}
	if got := FilterWithinRadius([]spot{near}, Point{}, 701); len(got) != 1 {
		t.Errorf("Expected ~700.9m spot included at radius 701, got %v", got)
	}
}

func TestFilterWithinRadius_SkipsMissingLocation(t *testing.T) {
	items := []spot{
		{lat: 0, lon: 0.001, has: true},
		{has: false},
		{lat: 0, lon: 0.002, has: true},
		{lat: 0, lon: 1, has: true},
	}

	got := FilterWithinRadius(items, Point{}, DefaultRadius)
	if len(got) != 2 {
		t.Fatalf("Expected 2 kept, got %d", len(got))
	}
	// Relative input order is preserved.
	if got[0].lon != 0.001 || got[1].lon != 0.002 {
		t.Errorf("Order not preserved: %v", got)
	}
}
