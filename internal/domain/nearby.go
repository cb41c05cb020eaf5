package domain

import (
	"math"
	"time"
)

// NYC bounding box. Coordinates outside it cannot belong to a neighborhood.
const (
	nycMinLat = 40.4
	nycMaxLat = 41.0
	nycMinLon = -74.3
	nycMaxLon = -73.6
)

// earthRadiusMeters is the mean Earth radius used by Haversine.
const earthRadiusMeters = 6371000.0

// InNYC reports whether a coordinate lies inside the city's bounding box.
func InNYC(lat, lon float64) bool {
	return lat >= nycMinLat && lat <= nycMaxLat && lon >= nycMinLon && lon <= nycMaxLon
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lon box that encloses a circle of radius meters.
// It is a cheap prefilter; callers still check Haversine distance.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	dLon := dLat / math.Cos(lat*math.Pi/180)
	return lat - dLat, lat + dLat, lon - dLon, lon + dLon
}

// NearbyComplaint is a complaint annotated with its distance from a query point.
type NearbyComplaint struct {
	Complaint
	DistanceMeters float64
}

// annoyanceWeights scale each category's contribution. Categories not listed
// weigh 1.
var annoyanceWeights = map[Category]float64{
	CategoryNoise:     1.5,
	CategoryRats:      1.3,
	CategoryTrash:     1.2,
	CategoryParking:   1.0,
	CategoryHeatWater: 0.8,
	CategoryOther:     0.7,
}

// annoyanceRadiusMeters and annoyanceHorizon are where the distance and
// recency factors bottom out at 0.1.
const (
	annoyanceRadiusMeters = 500.0
	annoyanceHorizon      = 30 * 24 * time.Hour
)

// AnnoyanceScore rates how bothersome the complaints around a point are, on a
// log scale from 0 to 100. Closer, more recent and noisier complaints weigh more.
func AnnoyanceScore(complaints []NearbyComplaint, now time.Time) int {
	if len(complaints) == 0 {
		return 0
	}

	weighted := 0.0
	for _, c := range complaints {
		distance := math.Max(0.1, 1-c.DistanceMeters/annoyanceRadiusMeters)
		age := now.Sub(c.CreatedAt)
		recency := math.Max(0.1, 1-float64(age)/float64(annoyanceHorizon))
		weight, ok := annoyanceWeights[c.Category]
		if !ok {
			weight = 1
		}
		weighted += distance * recency * weight
	}

	score := int(math.Round(math.Log10(weighted+1) * 35))
	return min(score, 100)
}
