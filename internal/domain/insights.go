package domain

import (
	"fmt"
	"math"
)

// TimeframeStats is one neighborhood's counts and rank for a timeframe.
type TimeframeStats struct {
	Total  int            `json:"total"`
	Counts CategoryCounts `json:"counts"`
	Rank   int            `json:"rank"`
}

const maxInsights = 4

// insightCategories are the headline categories considered for the "makes up
// N%" insight, with their display names.
var insightCategories = []struct {
	category Category
	label    string
}{
	{CategoryRats, "Rats"},
	{CategoryNoise, "Noise"},
	{CategoryParking, "Parking"},
	{CategoryTrash, "Trash"},
	{CategoryHeatWater, "Heat/Water"},
}

// Insights produces up to four short observations about a neighborhood from
// its month and week statistics. It returns nil when no month stats exist.
func Insights(name string, stats map[Timeframe]TimeframeStats) []string {
	month, ok := stats[TimeframeMonth]
	if !ok {
		return nil
	}

	var insights []string

	switch {
	case month.Rank > 0 && month.Rank <= 3:
		insights = append(insights, fmt.Sprintf("%s is one of NYC's top 3 complaint hotspots", name))
	case month.Rank > 0 && month.Rank <= 10:
		insights = append(insights, fmt.Sprintf("%s ranks #%d in NYC for complaints", name, month.Rank))
	}

	topLabel, topCount := "", 0
	for _, ic := range insightCategories {
		if n := month.Counts.Get(ic.category); n > topCount {
			topLabel, topCount = ic.label, n
		}
	}
	if topCount > 0 && month.Total > 0 {
		pct := int(math.Round(float64(topCount) / float64(month.Total) * 100))
		insights = append(insights, fmt.Sprintf("%s complaints make up %d%% of all issues", topLabel, pct))
	}

	if week, ok := stats[TimeframeWeek]; ok && month.Total > 0 {
		weeklyAvg := float64(month.Total) / 4
		switch {
		case float64(week.Total) > weeklyAvg*1.5:
			insights = append(insights, "Complaints are up this week compared to the monthly average")
		case float64(week.Total) < weeklyAvg*0.5:
			insights = append(insights, "Complaints are down this week compared to the monthly average")
		}
	}

	if month.Counts.Rats > 100 {
		insights = append(insights, fmt.Sprintf("%d rat sightings this month", month.Counts.Rats))
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}
