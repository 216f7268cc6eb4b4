// Package memegen composes meme links in the memegen.link URL scheme.
package memegen

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/common/validation"
)

type Config struct {
	BaseURL string
	Format  string
	// Verify issues a HEAD request against every composed link.
	Verify bool
}

type Client struct {
	cfg  Config
	http *httpclient.Client
}

func NewClient(cfg Config, http *httpclient.Client) *Client {
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	cfg.Format = strings.TrimPrefix(cfg.Format, ".")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: http}
}

var escaper = strings.NewReplacer(
	"_", "__",
	"-", "--",
	" ", "_",
	"?", "~q",
	"&", "~a",
	"%", "~p",
	"#", "~h",
	"/", "~s",
	`\`, "~b",
	"<", "~l",
	">", "~g",
	`"`, "''",
	"\n", "~n",
)

// EncodeText escapes one text line as a URL path segment.
func EncodeText(line string) string {
	if strings.TrimSpace(line) == "" {
		return "_"
	}
	return url.PathEscape(escaper.Replace(line))
}

func encodeLines(lines []string) string {
	if len(lines) == 0 {
		return "_"
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = EncodeText(l)
	}
	return strings.Join(parts, "/")
}

// FromTemplate builds a link from a template's blank image URL and one
// text line per template slot.
func (c *Client) FromTemplate(ctx context.Context, blankURL string, lines []string) (string, error) {
	u, err := url.Parse(blankURL)
	if err != nil || !validation.IsValidURL(blankURL) {
		return "", fmt.Errorf("invalid template blank URL %q", blankURL)
	}

	base := strings.TrimSuffix(u.EscapedPath(), path.Ext(u.Path))
	link := fmt.Sprintf("%s://%s%s/%s.%s", u.Scheme, u.Host, base, encodeLines(lines), c.cfg.Format)
	return link, c.verify(ctx, link)
}

// FromImage builds a link that overlays text on an arbitrary background image.
func (c *Client) FromImage(ctx context.Context, imageURL, text string) (string, error) {
	if !validation.IsValidURL(imageURL) {
		return "", fmt.Errorf("invalid background image URL %q", imageURL)
	}

	link := fmt.Sprintf("%s/images/custom/%s.%s?background=%s",
		c.cfg.BaseURL, EncodeText(text), c.cfg.Format, url.QueryEscape(imageURL))
	return link, c.verify(ctx, link)
}

func (c *Client) verify(ctx context.Context, link string) error {
	if !c.cfg.Verify || c.http == nil {
		return nil
	}
	if err := c.http.Head(ctx, link); err != nil {
		return fmt.Errorf("verify %s: %w", link, err)
	}
	return nil
}
