// Package sources adapts the platform scrapers onto the ingest source
// interfaces and registers them. Both the daemon and the CLI go through
// Register so they agree on which platforms exist.
package sources

import (
	"context"

	"aod-backend/lib/rawvalue"
	"aod-backend/lib/scrapers/ridibooks"
	"aod-backend/lib/scrapers/steamcharts"
	"aod-backend/services/ingest"
	"aod-backend/services/rankings"
)

const (
	PlatformSteamcharts = "steamcharts"
	PlatformRidibooks   = "ridibooks"

	DomainGame     = "game"
	DomainWebnovel = "webnovel"
)

type Config struct {
	Steamcharts bool `json:"steamcharts"`
	Ridibooks   bool `json:"ridibooks"`
}

// Register wires the enabled platforms into the ingest service.
func Register(service *ingest.Service, cfg Config) error {
	if cfg.Steamcharts {
		client, err := steamcharts.NewClient()
		if err != nil {
			return err
		}
		registerSteamcharts(service, client)
	}
	if cfg.Ridibooks {
		client, err := ridibooks.NewClient()
		if err != nil {
			return err
		}
		registerRidibooks(service, client)
	}
	return nil
}

func registerSteamcharts(service *ingest.Service, client steamcharts.Client) {
	service.RegisterRankingSource(
		PlatformSteamcharts, DomainGame,
		ingest.RankingSourceFunc(func(ctx context.Context) ([]rankings.Snapshot, error) {
			games, err := client.FetchTop(ctx)
			if err != nil {
				return nil, err
			}
			snapshot := make([]rankings.Snapshot, len(games))
			for i, game := range games {
				snapshot[i] = rankings.Snapshot{
					PlatformSpecificId: game.AppId,
					Title:              game.Name,
					Ranking:            game.Rank,
				}
			}
			return snapshot, nil
		}),
	)

	service.RegisterContentSource(
		DomainGame, PlatformSteamcharts,
		ingest.ContentSourceFunc(func(ctx context.Context) ([]rawvalue.Value, error) {
			games, err := client.FetchTop(ctx)
			if err != nil {
				return nil, err
			}
			records := make([]rawvalue.Value, len(games))
			for i, game := range games {
				records[i] = rawvalue.Map(map[string]rawvalue.Value{
					"app_id":          rawvalue.String(game.AppId),
					"name":            rawvalue.String(game.Name),
					"rank":            rawvalue.Number(float64(game.Rank)),
					"current_players": rawvalue.Number(float64(game.CurrentPlayers)),
					"peak_players":    rawvalue.Number(float64(game.PeakPlayers)),
				})
			}
			return records, nil
		}),
	)
}

func registerRidibooks(service *ingest.Service, client ridibooks.Client) {
	service.RegisterRankingSource(
		PlatformRidibooks, DomainWebnovel,
		ingest.RankingSourceFunc(func(ctx context.Context) ([]rankings.Snapshot, error) {
			books, err := client.FetchBestsellers(ctx)
			if err != nil {
				return nil, err
			}
			snapshot := make([]rankings.Snapshot, len(books))
			for i, book := range books {
				snapshot[i] = rankings.Snapshot{
					PlatformSpecificId: book.BookId,
					Title:              book.Title,
					Ranking:            book.Rank,
					ThumbnailUrl:       book.Thumbnail,
				}
			}
			return snapshot, nil
		}),
	)

	service.RegisterContentSource(
		DomainWebnovel, PlatformRidibooks,
		ingest.ContentSourceFunc(func(ctx context.Context) ([]rawvalue.Value, error) {
			books, err := client.FetchCatalog(ctx)
			if err != nil {
				return nil, err
			}
			records := make([]rawvalue.Value, len(books))
			for i, book := range books {
				records[i] = rawvalue.FromAny(book)
			}
			return records, nil
		}),
	)
}
