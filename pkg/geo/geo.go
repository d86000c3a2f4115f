package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Presets are named bounding boxes accepted wherever a bbox string is.
var Presets = map[string]orb.Bound{
	"montreal":  {Min: orb.Point{-73.98, 45.40}, Max: orb.Point{-73.47, 45.71}},
	"verdun":    {Min: orb.Point{-73.62, 45.43}, Max: orb.Point{-73.54, 45.48}},
	"outremont": {Min: orb.Point{-73.63, 45.50}, Max: orb.Point{-73.59, 45.53}},
}

// Point builds an orb point from latitude and longitude (orb stores lon first).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return orbgeo.DistanceHaversine(Point(lat1, lon1), Point(lat2, lon2))
}

// Millimeters converts meters to the integer millimeter weights used by the
// graph. Zero-length segments are bumped to 1 mm so every street has a cost.
func Millimeters(meters float64) uint32 {
	mm := math.Round(meters * 1000)
	if mm < 1 {
		return 1
	}
	if mm > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(mm)
}

// BoundAround returns a bound that contains every point within meters of (lat, lon).
func BoundAround(lat, lon, meters float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(Point(lat, lon), meters)
}

// ParseBound parses "minLat,minLng,maxLat,maxLng" or a preset name.
func ParseBound(s string) (orb.Bound, error) {
	s = strings.TrimSpace(s)
	if b, ok := Presets[strings.ToLower(s)]; ok {
		return b, nil
	}
	var minLat, minLng, maxLat, maxLng float64
	if _, err := fmt.Sscanf(s, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
		return orb.Bound{}, fmt.Errorf("bbox %q: expected minLat,minLng,maxLat,maxLng: %w", s, err)
	}
	if minLat > maxLat || minLng > maxLng {
		return orb.Bound{}, fmt.Errorf("bbox %q: min exceeds max", s)
	}
	return orb.Bound{Min: Point(minLat, minLng), Max: Point(maxLat, maxLng)}, nil
}
