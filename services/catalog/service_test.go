package catalog

import (
	"context"
	"testing"

	"aod-backend/lib/rawvalue"
	"aod-backend/lib/testutil"
	"aod-backend/services/transform"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) Service {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "catalog",
		DbSchema: Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return NewService(res.DB)
}

func triple(platform, title string, master, domain, plat map[string]any) transform.Triple {
	out := transform.Triple{
		Master:   map[string]rawvalue.Value{},
		Domain:   map[string]rawvalue.Value{},
		Platform: map[string]rawvalue.Value{},
	}
	out.Platform[transform.PlatformTagField] = rawvalue.String(platform)
	if title != "" {
		out.Master[MasterTitleField] = rawvalue.String(title)
	}
	for k, v := range master {
		out.Master[k] = rawvalue.FromAny(v)
	}
	for k, v := range domain {
		out.Domain[k] = rawvalue.FromAny(v)
	}
	for k, v := range plat {
		out.Platform[k] = rawvalue.FromAny(v)
	}
	return out
}

func TestIngestMergesSameTitleAcrossPlatforms(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	stats, err := svc.Ingest(ctx, "webtoon", []transform.Triple{
		triple("platA", "Solo Leveling",
			map[string]any{"poster": "a.jpg"},
			map[string]any{"genre": "action"},
			map[string]any{"source_id": "a1"}),
	})
	require.NoError(t, err)
	require.Equal(t, IngestStats{Created: 1}, stats)

	// same normalized title after bracket stripping happened upstream
	stats, err = svc.Ingest(ctx, "webtoon", []transform.Triple{
		triple("platB", "Solo   Leveling",
			map[string]any{"poster": "b.jpg", "release_date": "2018-03-01"},
			map[string]any{"genre": "fantasy"},
			map[string]any{"source_id": "b2"}),
	})
	require.NoError(t, err)
	require.Equal(t, IngestStats{Merged: 1}, stats)

	contents, err := svc.List(ctx, "webtoon")
	require.NoError(t, err)
	require.Len(t, contents, 1)

	c := contents[0]
	require.ElementsMatch(t, []string{"platA", "platB"}, c.Platforms)

	// master fields fill gaps only, the first platform's poster stays
	diff := cmp.Diff(map[string]any{
		"title":        "Solo Leveling",
		"poster":       "a.jpg",
		"release_date": "2018-03-01",
	}, c.Master)
	require.Empty(t, diff)

	// domain attributes take the latest value on conflict
	require.Equal(t, "fantasy", c.Attrs["genre"])
}

func TestIngestDistinctTitles(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	stats, err := svc.Ingest(ctx, "game", []transform.Triple{
		triple("platA", "Portal", nil, nil, nil),
		triple("platA", "Portal 2", nil, nil, nil),
	})
	require.NoError(t, err)
	require.Equal(t, IngestStats{Created: 2}, stats)

	contents, err := svc.List(ctx, "game")
	require.NoError(t, err)
	require.Len(t, contents, 2)
}

func TestIngestSameDomainDifferentDomainsStaySeparate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "game", []transform.Triple{
		triple("platA", "Solo Leveling", nil, nil, nil),
	})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "webtoon", []transform.Triple{
		triple("platB", "Solo Leveling", nil, nil, nil),
	})
	require.NoError(t, err)

	games, err := svc.List(ctx, "game")
	require.NoError(t, err)
	webtoons, err := svc.List(ctx, "webtoon")
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Len(t, webtoons, 1)
	require.NotEqual(t, games[0].Id, webtoons[0].Id)
}

func TestIngestSkipsUntitledRecords(t *testing.T) {
	svc := setup(t)

	stats, err := svc.Ingest(context.Background(), "game", []transform.Triple{
		triple("platA", "", nil, nil, map[string]any{"source_id": "x"}),
		triple("platA", "Portal", nil, nil, nil),
	})
	require.NoError(t, err)
	require.Equal(t, IngestStats{Created: 1, Skipped: 1}, stats)
}

func TestIngestRepeatUpdatesFacetInPlace(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "game", []transform.Triple{
		triple("platA", "Portal", nil, nil, map[string]any{"players": 100}),
	})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "game", []transform.Triple{
		triple("platA", "Portal", nil, nil, map[string]any{"players": 200}),
	})
	require.NoError(t, err)

	contents, err := svc.List(ctx, "game")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.Equal(t, []string{"platA"}, contents[0].Platforms)
}

func TestResolve(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "webtoon", []transform.Triple{
		triple("platA", "나 혼자만 레벨업", nil, nil, nil),
	})
	require.NoError(t, err)

	// bracket suffixes normalize away before lookup
	id, found, err := svc.Resolve(ctx, "webtoon", "나 혼자만 레벨업 (완결)")
	require.NoError(t, err)
	require.True(t, found)
	require.NotZero(t, id)

	_, found, err = svc.Resolve(ctx, "webtoon", "전혀 다른 제목")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = svc.Resolve(ctx, "game", "나 혼자만 레벨업")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSuggestMerges(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "webtoon", []transform.Triple{
		triple("platA", "Tower of God", nil, nil, nil),
		triple("platB", "Tower of Gods", nil, nil, nil),
		triple("platA", "Completely Unrelated", nil, nil, nil),
	})
	require.NoError(t, err)

	suggestions, err := svc.SuggestMerges(ctx, "webtoon", 0.9)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.Equal(t, "Tower of God", suggestions[0].LeftTitle)
	require.Equal(t, "Tower of Gods", suggestions[0].RightTitle)
	require.GreaterOrEqual(t, suggestions[0].Similarity, 0.9)

	// nothing is merged as a side effect
	contents, err := svc.List(ctx, "webtoon")
	require.NoError(t, err)
	require.Len(t, contents, 3)
}
