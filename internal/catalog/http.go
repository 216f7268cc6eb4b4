package catalog

import (
	"context"
	"fmt"
	"strings"

	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/models"
)

// HTTPSource reads the rendering service's /templates listing.
type HTTPSource struct {
	BaseURL string
	Client  *httpclient.Client
}

func NewHTTPSource(baseURL string, client *httpclient.Client) *HTTPSource {
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (s *HTTPSource) Name() string {
	return "http:" + s.BaseURL
}

func (s *HTTPSource) Load(ctx context.Context) (map[string]models.TemplateRecord, error) {
	var list []models.TemplateRecord
	if err := s.Client.GetJSON(ctx, s.BaseURL+"/templates", &list); err != nil {
		return nil, fmt.Errorf("fetch templates: %w", err)
	}
	return keyed(list)
}
