// Package imagesearch resolves a free-text query to an image URL using the
// Google Custom Search JSON API.
package imagesearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/common/validation"

	gocache "github.com/patrickmn/go-cache"
)

// ErrNoResults is returned when the search yields no usable image.
var ErrNoResults = fmt.Errorf("image search returned no results")

type Config struct {
	BaseURL  string
	APIKey   string
	EngineID string
	Num      int
	// CacheTTL keeps successful lookups per query. Zero disables caching.
	CacheTTL time.Duration
}

type Client struct {
	cfg   Config
	http  *httpclient.Client
	cache *gocache.Cache
}

func NewClient(cfg Config, http *httpclient.Client) *Client {
	if cfg.Num <= 0 {
		cfg.Num = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{cfg: cfg, http: http}
	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

type searchResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Mime  string `json:"mime"`
		Title string `json:"title"`
	} `json:"items"`
}

// Search returns the first absolute image link for query.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("empty search query")
	}

	cacheKey := strings.ToLower(query)
	if c.cache != nil {
		if link, ok := c.cache.Get(cacheKey); ok {
			return link.(string), nil
		}
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(c.cfg.Num))

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"?"+params.Encode(), &resp); err != nil {
		return "", fmt.Errorf("image search %q: %w", query, err)
	}

	for _, item := range resp.Items {
		if validation.IsValidURL(item.Link) {
			if c.cache != nil {
				c.cache.SetDefault(cacheKey, item.Link)
			}
			return item.Link, nil
		}
	}
	return "", fmt.Errorf("%w for %q", ErrNoResults, query)
}
