package domain

import (
	"fmt"
	"math"
	"strings"
)

// Dimensions are the month counts a chaos score is computed from.
type Dimensions struct {
	Total   int `json:"total"`
	Noise   int `json:"noise"`
	Rats    int `json:"rats"`
	Parking int `json:"parking"`
	Trash   int `json:"trash"`
}

// DimensionsOf extracts the scored dimensions from a summary's counts.
func DimensionsOf(total int, c CategoryCounts) Dimensions {
	return Dimensions{Total: total, Noise: c.Noise, Rats: c.Rats, Parking: c.Parking, Trash: c.Trash}
}

// Chaos weights. They sum to 1 so a neighborhood at every maximum scores 100.
const (
	weightTotal   = 0.50
	weightNoise   = 0.20
	weightRats    = 0.15
	weightParking = 0.10
	weightTrash   = 0.05
)

// FixedMaxima are the absolute saturation points used by the fixed policy.
var FixedMaxima = Dimensions{Total: 5000, Noise: 1500, Rats: 800, Parking: 1000, Trash: 500}

// MaximaPolicy selects the saturation point of each chaos dimension.
type MaximaPolicy string

const (
	// MaximaRelative saturates each dimension at the highest value currently
	// observed across all neighborhoods.
	MaximaRelative MaximaPolicy = "relative"
	// MaximaFixed saturates at [FixedMaxima].
	MaximaFixed MaximaPolicy = "fixed"
)

// ParseMaximaPolicy validates a maxima policy label.
func ParseMaximaPolicy(s string) (MaximaPolicy, error) {
	switch p := MaximaPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MaximaRelative, MaximaFixed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown maxima policy %q", s)
	}
}

// Maxima resolves the saturation points for a set of month rows. Under the
// relative policy every dimension takes its own maximum independently, and a
// dimension that is zero everywhere saturates at 1.
func (p MaximaPolicy) Maxima(rows []Dimensions) Dimensions {
	if p == MaximaFixed {
		return FixedMaxima
	}
	m := Dimensions{Total: 1, Noise: 1, Rats: 1, Parking: 1, Trash: 1}
	for _, r := range rows {
		m.Total = max(m.Total, r.Total)
		m.Noise = max(m.Noise, r.Noise)
		m.Rats = max(m.Rats, r.Rats)
		m.Parking = max(m.Parking, r.Parking)
		m.Trash = max(m.Trash, r.Trash)
	}
	return m
}

// ChaosScore computes the weighted, saturated 0-100 score of counts against
// maxima. It is monotonic in every count and capped at 100.
func ChaosScore(counts, maxima Dimensions) int {
	sum := weightTotal*normalize(counts.Total, maxima.Total) +
		weightNoise*normalize(counts.Noise, maxima.Noise) +
		weightRats*normalize(counts.Rats, maxima.Rats) +
		weightParking*normalize(counts.Parking, maxima.Parking) +
		weightTrash*normalize(counts.Trash, maxima.Trash)

	score := int(math.Round(sum * 100))
	return min(max(score, 0), 100)
}

func normalize(value, maximum int) float64 {
	if value <= 0 {
		return 0
	}
	if maximum <= 0 {
		maximum = 1
	}
	return math.Min(float64(value)/float64(maximum), 1)
}

// ChaosDescriptor is the human label for a chaos score.
func ChaosDescriptor(score int) string {
	switch {
	case score >= 80:
		return "Total Chaos"
	case score >= 60:
		return "Very Chaotic"
	case score >= 40:
		return "Chaotic"
	case score >= 20:
		return "Somewhat Calm"
	default:
		return "Peaceful"
	}
}
