package parsemessage

import "meme-workers/internal/models"

// Input carries the agent's decision record, either as a JSON object or as
// the raw text the agent produced.
type Input struct {
	Message  string      `json:"message,omitempty"`
	Decision interface{} `json:"decision"`
}

const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
)

type Output struct {
	Status   string                 `json:"status"`
	Decision *models.DecisionRecord `json:"decision,omitempty"`
	Strategy models.Strategy        `json:"strategy,omitempty"`
	Warnings []models.Warning       `json:"warnings,omitempty"`

	// Set when the content policy refused the request.
	Message  string `json:"message,omitempty"`
	Category string `json:"category,omitempty"`
}
