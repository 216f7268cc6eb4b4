package generatememe

import "meme-workers/internal/models"

// Input mirrors the generate_meme tool arguments. Omitted flags take their
// defaults: use_template follows the record, want_tele_sticker is false and
// save_as_image is true.
type Input struct {
	Decision        interface{} `json:"decision"`
	UseTemplate     *bool       `json:"use_template,omitempty"`
	WantTeleSticker *bool       `json:"want_tele_sticker,omitempty"`
	SaveAsImage     *bool       `json:"save_as_image,omitempty"`
}

const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
)

type Output struct {
	Status      string          `json:"status"`
	Result      string          `json:"result"`
	Branch      models.Strategy `json:"branch,omitempty"`
	MemeLink    string          `json:"meme_link,omitempty"`
	StickerLink string          `json:"sticker_link,omitempty"`
	SavedPath   string          `json:"saved_path,omitempty"`
	SaveError   string          `json:"save_error,omitempty"`
	Category    string          `json:"category,omitempty"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
