package advlab

import (
	"cmp"
	"slices"
)

type Selection struct {
	Primary   *VertexEstimate
	Secondary *VertexEstimate
	Ranked    []VertexEstimate
}

// SelectVertices ranks the accepted estimates by chi-square. The best one is
// the primary vertex; the secondary is the best among the estimates at a
// different position.
func SelectVertices(estimates []VertexEstimate) Selection {
	ranked := make([]VertexEstimate, 0, len(estimates))
	for _, e := range estimates {
		if !e.Rejected {
			ranked = append(ranked, e)
		}
	}
	slices.SortStableFunc(ranked, func(a, b VertexEstimate) int {
		return cmp.Or(cmp.Compare(a.Chi2, b.Chi2), cmp.Compare(a.Combination, b.Combination))
	})

	selection := Selection{Ranked: ranked}
	if len(ranked) == 0 {
		return selection
	}
	primary := ranked[0]
	selection.Primary = &primary
	for _, e := range ranked[1:] {
		if e.X == primary.X && e.Y == primary.Y {
			continue
		}
		secondary := e
		selection.Secondary = &secondary
		break
	}
	return selection
}
