package ridibooks

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRankBooks(t *testing.T) {
	got := rankBooks([]map[string]any{
		{"b_id": "b1", "title": "첫 번째 책", "thumbnail": "https://img/1.jpg"},
		{"b_id": "b2", "thumbnail": "https://img/2.jpg"},
		{"b_id": "b3", "title": "세 번째 책"},
	})

	diff := cmp.Diff([]RankedBook{
		{BookId: "b1", Title: "첫 번째 책", Thumbnail: "https://img/1.jpg", Rank: 1},
		{BookId: "b3", Title: "세 번째 책", Rank: 3},
	}, got)
	require.Empty(t, diff)
}
