// internal/models/artifact.go
package models

// DispatchRequest bundles one generate_meme call.
type DispatchRequest struct {
	Decision    DecisionRecord `json:"decision"`
	UseTemplate bool           `json:"use_template"`
	WantSticker bool           `json:"want_sticker"`
	SaveAsImage bool           `json:"save_as_image"`
}

// GeneratedArtifact is the outcome of a dispatch. It is never retained.
type GeneratedArtifact struct {
	Branch      Strategy `json:"branch"`
	MemeLink    string   `json:"meme_link"`
	StickerLink string   `json:"sticker_link,omitempty"`
	SavedPath   string   `json:"saved_path,omitempty"`
	SaveError   string   `json:"save_error,omitempty"`
}

// Result is the primary return value: the sticker link when one was
// produced, otherwise the meme link.
func (a *GeneratedArtifact) Result() string {
	if a.StickerLink != "" {
		return a.StickerLink
	}
	return a.MemeLink
}

// KeyContext is the payload handed to the agent by fetch_key_context.
type KeyContext struct {
	Message   string                    `json:"message"`
	Templates map[string]TemplateRecord `json:"templates"`
}
