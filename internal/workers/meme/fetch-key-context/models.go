package fetchkeycontext

import "meme-workers/internal/models"

type Input struct {
	Message string `json:"message"`
	Limit   *int   `json:"limit,omitempty"`
}

type Output struct {
	Message   string                           `json:"message"`
	Templates map[string]models.TemplateRecord `json:"templates"`
}
