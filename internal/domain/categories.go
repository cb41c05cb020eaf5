package domain

import (
	"fmt"
	"strings"
)

// Category is the normalized bucket a complaint is filed under.
type Category string

const (
	CategoryRats         Category = "rats"
	CategoryNoise        Category = "noise"
	CategoryParking      Category = "parking"
	CategoryTrash        Category = "trash"
	CategoryHeatWater    Category = "heat_water"
	CategoryConstruction Category = "construction"
	CategoryBuilding     Category = "building"
	CategoryBikes        Category = "bikes"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRats,
	CategoryNoise,
	CategoryParking,
	CategoryTrash,
	CategoryHeatWater,
	CategoryConstruction,
	CategoryBuilding,
	CategoryBikes,
	CategoryOther,
}

// ParseCategory validates a category label. Matching is case-insensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// rule pairs a category with a predicate over the lower-cased complaint type.
type rule struct {
	category Category
	match    func(t string) bool
}

// rules is evaluated top to bottom; the first match wins. Keyword sets overlap
// ("construction noise", "air conditioner noise"), so the order is part of the
// contract and new keywords belong in the existing rows.
var rules = []rule{
	{CategoryRats, func(t string) bool {
		return containsAny(t, "rodent", "rat", "mouse", "mice")
	}},
	{CategoryConstruction, func(t string) bool {
		return containsAny(t, "construction", "after hours", "building permit", "crane",
			"sidewalk shed", "scaffolding", "work permit", "demolition", "excavation")
	}},
	{CategoryBuilding, func(t string) bool {
		return containsAny(t, "unsafe", "illegal conversion", "building condition", "elevator",
			"lead", "mold", "structural", "fire safety", "vacant building", "illegal apartment",
			"certificate of occupancy", "building violation", "hpd", "maintenance")
	}},
	{CategoryBikes, func(t string) bool {
		return containsAny(t, "bike", "bicycle", "scooter", "e-bike", "ebike", "citibike",
			"citi bike", "revel", "blocked bike lane", "bike lane")
	}},
	{CategoryNoise, func(t string) bool {
		return containsAny(t, "noise", "loud", "barking", "music", "party", "siren",
			"generator", "amplified") ||
			(strings.Contains(t, "alarm") && !strings.Contains(t, "fire alarm")) ||
			(containsAny(t, "air conditioner", "air conditioning") && strings.Contains(t, "noise")) ||
			(strings.Contains(t, "vehicle") && containsAny(t, "horn", "car alarm"))
	}},
	{CategoryParking, func(t string) bool {
		return containsAny(t, "parking", "blocked driveway", "blocked hydrant", "blocked fire lane",
			"double parked", "posted parking", "illegal parking", "fire hydrant") ||
			(strings.Contains(t, "hydrant") && !strings.Contains(t, "catch basin")) ||
			(strings.Contains(t, "vehicle") && containsAny(t, "blocked", "illegal", "parked") &&
				!strings.Contains(t, "abandoned"))
	}},
	{CategoryTrash, func(t string) bool {
		return containsAny(t, "sanitation", "trash", "garbage", "litter", "dirty", "graffiti",
			"unsanitary", "dumping", "illegal dump", "missed collection", "derelict",
			"abandoned vehicle", "dead animal", "street condition", "overflowing", "receptacle",
			"sidewalk condition", "dumpster", "pothole", "street light", "streetlight", "tree",
			"broken glass", "broken bottle", "hazardous", "debris", "waste", "refuse",
			"collection", "bulk") ||
			(strings.Contains(t, "furniture") && strings.Contains(t, "street"))
	}},
	{CategoryHeatWater, func(t string) bool {
		return containsAny(t, "heat", "hot water", "water system", "water leak", "water main",
			"plumbing", "boiler", "radiator", "no heat", "sewer", "catch basin", "gas",
			"electric", "electrical", "power", "steam", "heating", "hvac") ||
			(containsAny(t, "air conditioner", "air conditioning") && !strings.Contains(t, "noise"))
	}},
}

// Classify maps a raw 311 complaint type onto a Category. It never fails:
// anything no rule recognizes is CategoryOther.
func Classify(complaintType string) Category {
	t := strings.ToLower(complaintType)
	for _, r := range rules {
		if r.match(t) {
			return r.category
		}
	}
	return CategoryOther
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// CategoryCounts holds one count per category.
type CategoryCounts struct {
	Rats         int `json:"rats"`
	Noise        int `json:"noise"`
	Parking      int `json:"parking"`
	Trash        int `json:"trash"`
	HeatWater    int `json:"heat_water"`
	Construction int `json:"construction"`
	Building     int `json:"building"`
	Bikes        int `json:"bikes"`
	Other        int `json:"other"`
}

func (c *CategoryCounts) field(cat Category) *int {
	switch cat {
	case CategoryRats:
		return &c.Rats
	case CategoryNoise:
		return &c.Noise
	case CategoryParking:
		return &c.Parking
	case CategoryTrash:
		return &c.Trash
	case CategoryHeatWater:
		return &c.HeatWater
	case CategoryConstruction:
		return &c.Construction
	case CategoryBuilding:
		return &c.Building
	case CategoryBikes:
		return &c.Bikes
	default:
		return &c.Other
	}
}

// Get returns the count for cat. Unknown categories read as Other.
func (c CategoryCounts) Get(cat Category) int {
	return *c.field(cat)
}

// Add increments the count for cat by n. Unknown categories land in Other.
func (c *CategoryCounts) Add(cat Category, n int) {
	*c.field(cat) += n
}

// Total is the sum over all categories.
func (c CategoryCounts) Total() int {
	total := 0
	for _, cat := range Categories {
		total += c.Get(cat)
	}
	return total
}

// Top returns the category with the highest count, ties resolved by display
// order. ok is false when every count is zero.
func (c CategoryCounts) Top() (cat Category, count int, ok bool) {
	for _, candidate := range Categories {
		if n := c.Get(candidate); n > count {
			cat, count, ok = candidate, n, true
		}
	}
	return cat, count, ok
}
