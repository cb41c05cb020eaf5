package domain

// Side names the winner of a head-to-head comparison.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideTie   Side = "tie"
)

// Winner returns the side with more complaints. More complaints "wins".
func Winner(left, right int) Side {
	switch {
	case left > right:
		return SideLeft
	case right > left:
		return SideRight
	default:
		return SideTie
	}
}

// CategoryWinners compares two neighborhoods category by category.
func CategoryWinners(left, right CategoryCounts) map[Category]Side {
	winners := make(map[Category]Side, len(Categories))
	for _, c := range Categories {
		winners[c] = Winner(left.Get(c), right.Get(c))
	}
	return winners
}
