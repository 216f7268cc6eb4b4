// pkg/registry/schema.go
package registry

// ToolRegistry describes the agent-invocable pipeline operations.
type ToolRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Tools       []Tool `json:"tools"`
}

// Chain positions. Ordering is advisory metadata for the calling agent and
// is not enforced by the service.
const (
	ChainStart  = "start"
	ChainMiddle = "middle"
	ChainEnd    = "end"
)

type Tool struct {
	Name             string                 `json:"name"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	TaskType         string                 `json:"taskType"`
	ChainPosition    string                 `json:"chainPosition"`
	RequiresPrevious string                 `json:"requiresPrevious,omitempty"`
	InputSchema      map[string]interface{} `json:"inputSchema"`
	ErrorCodes       []string               `json:"errorCodes"`
	Timeout          string                 `json:"timeout"`
	Tags             []string               `json:"tags"`
}
