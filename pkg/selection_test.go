package advlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectVertices(t *testing.T) {
	estimates := []VertexEstimate{
		{Combination: 0, X: 1, Y: 1, Chi2: 3},
		{Combination: 1, X: 2, Y: 2, Chi2: 0.5},
		{Combination: 2, Chi2: 100, Rejected: true},
		{Combination: 3, X: 2, Y: 2, Chi2: 0.7},
		{Combination: 4, X: -4, Y: 9, Chi2: 1},
	}

	s := SelectVertices(estimates)
	require.NotNil(t, s.Primary)
	require.NotNil(t, s.Secondary)
	assert.Equal(t, 1, s.Primary.Combination)
	// combination 3 sits on the primary vertex
	assert.Equal(t, 4, s.Secondary.Combination)

	require.Len(t, s.Ranked, 4)
	ranked := make([]int, len(s.Ranked))
	for i, v := range s.Ranked {
		ranked[i] = v.Combination
	}
	assert.Equal(t, []int{1, 3, 4, 0}, ranked)
}

func TestSelectVerticesTies(t *testing.T) {
	s := SelectVertices([]VertexEstimate{
		{Combination: 5, X: 1, Chi2: 1},
		{Combination: 2, X: 3, Chi2: 1},
	})
	require.NotNil(t, s.Primary)
	assert.Equal(t, 2, s.Primary.Combination)
	assert.Equal(t, 5, s.Secondary.Combination)
}

func TestSelectVerticesSparse(t *testing.T) {
	s := SelectVertices(nil)
	assert.Nil(t, s.Primary)
	assert.Nil(t, s.Secondary)
	assert.Empty(t, s.Ranked)

	s = SelectVertices([]VertexEstimate{
		{Combination: 0, X: 1, Y: 1, Chi2: 2},
		{Combination: 1, X: 1, Y: 1, Chi2: 1},
		{Combination: 2, Rejected: true},
	})
	require.NotNil(t, s.Primary)
	assert.Equal(t, 1, s.Primary.Combination)
	assert.Nil(t, s.Secondary)
}

func TestSelectVerticesDoesNotAliasInput(t *testing.T) {
	estimates := []VertexEstimate{{Combination: 0, X: 1, Chi2: 2}, {Combination: 1, X: 2, Chi2: 1}}
	s := SelectVertices(estimates)
	s.Primary.X = 100
	assert.Equal(t, 2.0, estimates[1].X)
	assert.Equal(t, 0, estimates[0].Combination)
}
