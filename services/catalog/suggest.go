package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// MergeSuggestion pairs two contents whose normalized titles are nearly
// identical. Identity resolution is exact-match only, so titles differing
// by minor transliteration end up as separate contents; this surfaces
// them for a human to review. Nothing is merged automatically.
type MergeSuggestion struct {
	LeftId     int64
	LeftTitle  string
	RightId    int64
	RightTitle string
	Similarity float64
}

func splitPlatforms(concat string) []string {
	return strings.Split(concat, ",")
}

// SuggestMerges reports content pairs in a domain whose normalized
// titles score above threshold on Jaro-Winkler similarity. Exact
// duplicates cannot occur (unique index), so everything returned is a
// near miss.
func (s Service) SuggestMerges(ctx context.Context, domain string, threshold float64) ([]MergeSuggestion, error) {
	ctx, span := tracer.Start(ctx, "SuggestMerges")
	defer span.End()

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, normalized_title FROM content WHERE domain = ? ORDER BY id`,
		domain,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type entry struct {
		id         int64
		title      string
		normalized string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		err := rows.Scan(&e.id, &e.title, &e.normalized)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	var out []MergeSuggestion
	for i, left := range entries {
		for _, right := range entries[i+1:] {
			similarity := matchr.JaroWinkler(left.normalized, right.normalized, false)
			if similarity < threshold {
				continue
			}
			out = append(out, MergeSuggestion{
				LeftId:     left.id,
				LeftTitle:  left.title,
				RightId:    right.id,
				RightTitle: right.title,
				Similarity: similarity,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}
