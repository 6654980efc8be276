// Package maps estimates road distance and travel time between two points.
package maps

import (
	"context"
	"fmt"
	"log"
	"math"

	"googlemaps.github.io/maps"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
)

// Route is a distance and duration estimate for a trip.
type Route struct {
	DistanceMeters  int
	DurationSeconds int
}

// Estimator produces a Route between two coordinates.
type Estimator interface {
	Estimate(ctx context.Context, from, to domain.Location) (Route, error)
}

// RouteService estimates routes with the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

func latLng(l domain.Location) string {
	return fmt.Sprintf("%f,%f", l.Lat, l.Lng)
}

// Estimate returns the driving distance and duration of the first route.
func (s *RouteService) Estimate(ctx context.Context, from, to domain.Location) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return Route{
		DistanceMeters:  leg.Distance.Meters,
		DurationSeconds: int(leg.Duration.Seconds()),
	}, nil
}

// averageSpeedKmh converts straight-line distance into a rough duration.
const averageSpeedKmh = 25.0

// HaversineEstimator estimates routes as the great-circle distance.
type HaversineEstimator struct{}

// Estimate returns the straight-line distance and a duration at average city speed.
func (HaversineEstimator) Estimate(ctx context.Context, from, to domain.Location) (Route, error) {
	km := geo.DistanceKm(from.Lat, from.Lng, to.Lat, to.Lng)
	return Route{
		DistanceMeters:  int(math.Round(km * 1000)),
		DurationSeconds: int(math.Round(km / averageSpeedKmh * 3600)),
	}, nil
}

// FallbackEstimator tries Primary and falls back to Haversine on error.
type FallbackEstimator struct {
	Primary Estimator
}

// Estimate implements Estimator.
func (f FallbackEstimator) Estimate(ctx context.Context, from, to domain.Location) (Route, error) {
	if f.Primary != nil {
		route, err := f.Primary.Estimate(ctx, from, to)
		if err == nil {
			return route, nil
		}
		log.Printf("[MAPS] route estimate failed, using straight-line distance: %v", err)
	}
	return HaversineEstimator{}.Estimate(ctx, from, to)
}

// Ensure estimators implement Estimator.
var (
	_ Estimator = (*RouteService)(nil)
	_ Estimator = HaversineEstimator{}
	_ Estimator = FallbackEstimator{}
)
