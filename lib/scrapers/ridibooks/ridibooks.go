// Package ridibooks pulls web-novel listings from the ridibooks JSON
// API. It is a reference content+ranking source for the webnovel domain.
package ridibooks

import (
	"context"
	"encoding/json"
	"fmt"

	"aod-backend/lib/fetchutil"

	"github.com/go-resty/resty/v2"
)

const baseUrl = "https://api.ridibooks.com"

type Client struct {
	http *resty.Client
}

func NewClient() (Client, error) {
	client, err := fetchutil.NewClient(fetchutil.ClientOptions{
		BaseUrl:    baseUrl,
		TracerName: "scrapers/ridibooks",
	})
	if err != nil {
		return Client{}, err
	}
	return Client{http: client}, nil
}

type RankedBook struct {
	BookId    string
	Title     string
	Thumbnail string
	Rank      int
}

// FetchBestsellers returns the current web-novel bestseller list in
// rank order.
func (c Client) FetchBestsellers(ctx context.Context) ([]RankedBook, error) {
	books, err := c.fetchList(ctx, "/v2/category/books", map[string]string{
		"category": "webnovel",
		"order":    "bestsellers",
	})
	if err != nil {
		return nil, err
	}
	return rankBooks(books), nil
}

func rankBooks(books []map[string]any) []RankedBook {
	out := make([]RankedBook, 0, len(books))
	for i, book := range books {
		ranked := RankedBook{Rank: i + 1}
		if id, ok := book["b_id"].(string); ok {
			ranked.BookId = id
		}
		if title, ok := book["title"].(string); ok {
			ranked.Title = title
		}
		if thumb, ok := book["thumbnail"].(string); ok {
			ranked.Thumbnail = thumb
		}
		if ranked.Title == "" {
			continue
		}
		out = append(out, ranked)
	}
	return out
}

// FetchCatalog returns the raw book objects untouched, for the
// transform engine to interpret via the webnovel mapping rule.
func (c Client) FetchCatalog(ctx context.Context) ([]map[string]any, error) {
	return c.fetchList(ctx, "/v2/category/books", map[string]string{
		"category": "webnovel",
		"order":    "recent",
	})
}

func (c Client) fetchList(ctx context.Context, path string, query map[string]string) ([]map[string]any, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: %s", path, res.Status())
	}

	var payload struct {
		Books []map[string]any `json:"books"`
	}
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return payload.Books, nil
}
