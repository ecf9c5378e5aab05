package ingest

import (
	"context"
	"errors"
	"testing"

	"aod-backend/lib/rawvalue"
	"aod-backend/lib/testutil"
	"aod-backend/services/catalog"
	"aod-backend/services/rankings"
	"aod-backend/services/rules"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	ingest   *Service
	catalog  catalog.Service
	rankings *rankings.Service
}

func setup(t *testing.T) fixture {
	catalogRes, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "ingest-catalog",
		DbSchema: catalog.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { catalogRes.DB.Close() })

	rankingRes, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "ingest-rankings",
		DbSchema: rankings.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { rankingRes.DB.Close() })

	loader := rules.NewLoader("testdata")
	catalogService := catalog.NewService(catalogRes.DB)
	rankingService := rankings.NewService(rankingRes.DB)

	return fixture{
		ingest:   NewService(loader, catalogService, rankingService, 0),
		catalog:  catalogService,
		rankings: rankingService,
	}
}

func fakeRecords() []rawvalue.Value {
	return []rawvalue.Value{
		rawvalue.FromAny(map[string]any{
			"name": "Portal (beta)", "id": "p1", "players": "1,234",
		}),
		rawvalue.FromAny(map[string]any{
			"name": "Factorio", "id": "f1", "players": "777",
		}),
		// missing the required title; skipped, not fatal
		rawvalue.FromAny(map[string]any{
			"id": "x9", "players": "3",
		}),
	}
}

func TestIngestContentEndToEnd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.ingest.RegisterContentSource("game", "fakeplat", ContentSourceFunc(
		func(ctx context.Context) ([]rawvalue.Value, error) {
			return fakeRecords(), nil
		},
	))

	err := f.ingest.IngestContent(ctx, "game", "fakeplat")
	require.NoError(t, err)

	contents, err := f.catalog.List(ctx, "game")
	require.NoError(t, err)
	require.Len(t, contents, 2)
	require.Equal(t, "Portal", contents[0].Title)
}

func TestIngestContentFetchFailureAborts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.ingest.RegisterContentSource("game", "fakeplat", ContentSourceFunc(
		func(ctx context.Context) ([]rawvalue.Value, error) {
			return nil, errors.New("origin down")
		},
	))

	err := f.ingest.IngestContent(ctx, "game", "fakeplat")
	require.Error(t, err)

	contents, err := f.catalog.List(ctx, "game")
	require.NoError(t, err)
	require.Empty(t, contents)
}

func TestIngestContentZeroRecordsSkipsCycle(t *testing.T) {
	f := setup(t)

	f.ingest.RegisterContentSource("game", "fakeplat", ContentSourceFunc(
		func(ctx context.Context) ([]rawvalue.Value, error) {
			return nil, nil
		},
	))

	err := f.ingest.IngestContent(context.Background(), "game", "fakeplat")
	require.NoError(t, err)
}

func TestIngestContentMissingRule(t *testing.T) {
	f := setup(t)

	err := f.ingest.IngestContent(context.Background(), "game", "unknownplat")
	require.ErrorIs(t, err, rules.ErrRuleNotFound)
}

func TestRefreshRankingLinksResolvedContents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.ingest.RegisterContentSource("game", "fakeplat", ContentSourceFunc(
		func(ctx context.Context) ([]rawvalue.Value, error) {
			return fakeRecords(), nil
		},
	))
	require.NoError(t, f.ingest.IngestContent(ctx, "game", "fakeplat"))

	f.ingest.RegisterRankingSource("fakeplat", "game", RankingSourceFunc(
		func(ctx context.Context) ([]rankings.Snapshot, error) {
			return []rankings.Snapshot{
				{PlatformSpecificId: "p1", Title: "Portal", Ranking: 1},
				{PlatformSpecificId: "z1", Title: "Not In Catalog", Ranking: 2},
			}, nil
		},
	))
	require.NoError(t, f.ingest.RefreshRanking(ctx, "fakeplat"))

	entries, err := f.rankings.List(ctx, "fakeplat")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotZero(t, entries[0].ContentId)
	require.Zero(t, entries[1].ContentId)
}

func TestRefreshRankingFetchFailureKeepsPrevious(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	calls := 0
	f.ingest.RegisterRankingSource("fakeplat", "game", RankingSourceFunc(
		func(ctx context.Context) ([]rankings.Snapshot, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("origin down")
			}
			return []rankings.Snapshot{
				{PlatformSpecificId: "p1", Title: "Portal", Ranking: 1},
			}, nil
		},
	))

	require.NoError(t, f.ingest.RefreshRanking(ctx, "fakeplat"))
	require.Error(t, f.ingest.RefreshRanking(ctx, "fakeplat"))

	entries, err := f.rankings.List(ctx, "fakeplat")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
