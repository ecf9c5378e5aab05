// Package steamcharts scrapes the steamcharts.com top-games table. It
// is a reference ranking source for the games domain; the engine only
// ever sees its output through the ingest source interfaces.
package steamcharts

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"aod-backend/lib/fetchutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const baseUrl = "https://steamcharts.com"

type Client struct {
	http *resty.Client
}

func NewClient() (Client, error) {
	client, err := fetchutil.NewClient(fetchutil.ClientOptions{
		BaseUrl:    baseUrl,
		TracerName: "scrapers/steamcharts",
	})
	if err != nil {
		return Client{}, err
	}
	return Client{http: client}, nil
}

type Game struct {
	// steam app id, parsed from the game link
	AppId          string
	Name           string
	Rank           int
	CurrentPlayers int
	PeakPlayers    int
}

// FetchTop returns the current top games in rank order.
func (c Client) FetchTop(ctx context.Context) ([]Game, error) {
	res, err := c.http.R().SetContext(ctx).Get("/top")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch top games: %s", res.Status())
	}
	return parseTop(res.Body())
}

func parseTop(body []byte) ([]Game, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var games []Game
	doc.Find("table#top-games tbody tr").Each(func(i int, row *goquery.Selection) {
		link := row.Find("td.game-name a")
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}

		game := Game{
			Name:  name,
			Rank:  i + 1,
			AppId: appIdFromHref(link.AttrOr("href", "")),
		}

		cells := row.Find("td.num")
		if cells.Length() >= 1 {
			game.CurrentPlayers = parseCount(cells.Eq(0).Text())
		}
		if cells.Length() >= 2 {
			game.PeakPlayers = parseCount(cells.Eq(1).Text())
		}

		games = append(games, game)
	})

	return games, nil
}

// appIdFromHref extracts "<id>" from "/app/<id>".
func appIdFromHref(href string) string {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) == 2 && parts[0] == "app" {
		return parts[1]
	}
	return ""
}

func parseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
