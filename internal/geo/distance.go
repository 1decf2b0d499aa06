package geo

import (
	"errors"
	"math"
	"time"

	"braidsbar/queue-service/internal/models"
)

const (
	earthRadiusKm       = 6371.0
	minutesPerKm        = 4.0
	trafficBufferRatio  = 0.2
	arrivalOverheadMins = 10.0
	minTravelMinutes    = 15
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

type Estimate struct {
	DistanceKm    float64 `json:"distance_km"`
	TravelMinutes int     `json:"travel_minutes"`
}

func ValidateCoordinates(c models.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// HaversineKm is the great-circle distance between two points on a sphere of radius 6371 km.
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// TravelMinutes is a coarse urban estimate: 4 min/km, a 20% traffic margin
// and 10 minutes to park and walk in, never below 15 minutes.
func TravelMinutes(distanceKm float64) int {
	base := distanceKm * minutesPerKm
	buffer := base * trafficBufferRatio
	estimate := int(math.Ceil(base + buffer + arrivalOverheadMins))
	if estimate < minTravelMinutes {
		return minTravelMinutes
	}
	return estimate
}

func EstimateTravel(origin, destination models.Coordinates) (Estimate, error) {
	if err := ValidateCoordinates(origin); err != nil {
		return Estimate{}, err
	}
	if err := ValidateCoordinates(destination); err != nil {
		return Estimate{}, err
	}
	distance := HaversineKm(origin, destination)
	return Estimate{DistanceKm: distance, TravelMinutes: TravelMinutes(distance)}, nil
}

// LeaveBy is the latest departure that still arrives at start.
func LeaveBy(start time.Time, travelMinutes int) time.Time {
	return start.Add(-time.Duration(travelMinutes) * time.Minute)
}

func TimeToLeave(now, leaveBy time.Time) bool {
	return !now.Before(leaveBy)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
