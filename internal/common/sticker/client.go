// Package sticker converts meme links into chat-platform sticker links.
package sticker

import (
	"context"
	"fmt"
	"strings"

	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/common/validation"
)

const (
	PlatformTelegram = "telegram"
	PlatformWhatsApp = "whatsapp"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Platform string
}

type Client struct {
	cfg  Config
	http *httpclient.Client
}

func NewClient(cfg Config, http *httpclient.Client) *Client {
	if cfg.Platform == "" {
		cfg.Platform = PlatformTelegram
	}
	if cfg.APIKey != "" {
		http = http.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: http}
}

type convertRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

type convertResponse struct {
	Link string `json:"link"`
}

// Convert returns a sticker link for memeLink on the configured platform.
func (c *Client) Convert(ctx context.Context, memeLink string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("sticker service is not configured")
	}

	var resp convertResponse
	req := convertRequest{URL: memeLink, Platform: c.cfg.Platform}
	if err := c.http.PostJSON(ctx, c.cfg.BaseURL, req, &resp); err != nil {
		return "", fmt.Errorf("convert to %s sticker: %w", c.cfg.Platform, err)
	}
	if !validation.IsValidURL(resp.Link) {
		return "", fmt.Errorf("sticker service returned invalid link %q", resp.Link)
	}
	return resp.Link, nil
}
