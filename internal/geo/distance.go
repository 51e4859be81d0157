// Package geo provides distance and delivery-time estimation. The default
// estimator is a pure Haversine computation; an external routing service can
// be substituted behind the Estimator interface.
package geo

import (
	"context"
	"math"
	"time"
)

// FallbackDistanceKm is used for fee estimation when coordinates are
// missing or the estimator fails. It is never persisted as location truth.
const FallbackDistanceKm = 5.0

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Estimator computes the distance in kilometres between two points.
// Implementations may call an external routing service.
type Estimator interface {
	Distance(ctx context.Context, a, b Point) (float64, error)
}

// RouteOptimizer orders a set of stops into a travel sequence.
type RouteOptimizer interface {
	OptimizeRoute(start Point, stops []Point) []Point
}

// Haversine returns the great-circle distance between two points in
// kilometres.
func Haversine(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineEstimator is the default Estimator, computed locally.
type HaversineEstimator struct{}

// Distance implements Estimator.
func (HaversineEstimator) Distance(_ context.Context, a, b Point) (float64, error) {
	return Haversine(a, b), nil
}

// DistanceOrFallback resolves the distance between two optional points,
// returning the fixed fallback when either point is missing or the
// estimator errors.
func DistanceOrFallback(ctx context.Context, est Estimator, a, b *Point) float64 {
	if a == nil || b == nil || est == nil {
		return FallbackDistanceKm
	}
	km, err := est.Distance(ctx, *a, *b)
	if err != nil || km < 0 {
		return FallbackDistanceKm
	}
	return km
}

// EstimateDeliveryTime converts a distance into a coarse delivery estimate:
// fixed preparation time plus travel time at an average urban speed.
func EstimateDeliveryTime(distanceKm float64) time.Duration {
	const prep = 15 * time.Minute
	const avgSpeedKmh = 30.0
	travel := time.Duration(distanceKm / avgSpeedKmh * float64(time.Hour))
	return prep + travel
}

// NearestNeighbourOptimizer orders stops greedily by proximity. It is the
// default RouteOptimizer for multi-business pickups.
type NearestNeighbourOptimizer struct{}

// OptimizeRoute implements RouteOptimizer.
func (NearestNeighbourOptimizer) OptimizeRoute(start Point, stops []Point) []Point {
	remaining := make([]Point, len(stops))
	copy(remaining, stops)

	ordered := make([]Point, 0, len(stops))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := Haversine(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if d := Haversine(current, remaining[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		current = remaining[best]
		ordered = append(ordered, current)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}
