package domain

import "sort"

// RankEntry is one neighborhood's value in a ranking.
type RankEntry struct {
	NeighborhoodID int64
	Value          int
	Rank           int
}

// DenseRank orders entries by Value descending, then NeighborhoodID
// ascending, and assigns dense ranks: equal values share a rank and the next
// distinct value takes the following rank. The input slice is not modified.
func DenseRank(entries []RankEntry) []RankEntry {
	ranked := make([]RankEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].NeighborhoodID < ranked[j].NeighborhoodID
	})

	rank := 0
	for i := range ranked {
		if i == 0 || ranked[i].Value != ranked[i-1].Value {
			rank++
		}
		ranked[i].Rank = rank
	}
	return ranked
}
