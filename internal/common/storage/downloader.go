// Package storage saves generated memes to local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	httpclient "meme-workers/internal/common/http"

	"github.com/google/uuid"
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Downloader writes remote images into Dir under uuid file names.
type Downloader struct {
	Dir  string
	http *httpclient.Client
}

func NewDownloader(dir string, http *httpclient.Client) *Downloader {
	return &Downloader{Dir: dir, http: http}
}

// Save downloads link and returns the written path. A partially written
// file is removed on failure.
func (d *Downloader) Save(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", link, err)
	}
	defer resp.Body.Close()

	if err := httpclient.CheckStatus(resp); err != nil {
		return "", err
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}

	name := uuid.New().String() + extensionFor(resp.Header.Get("Content-Type"), req.URL.Path)
	target := filepath.Join(d.Dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close %s: %w", target, err)
	}

	return target, nil
}

func extensionFor(contentType, urlPath string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := imageExtensions[mediaType]; ok {
			return ext
		}
	}
	if ext := strings.ToLower(path.Ext(urlPath)); ext != "" {
		for _, known := range imageExtensions {
			if ext == known || (ext == ".jpeg" && known == ".jpg") {
				return known
			}
		}
	}
	return ".png"
}
