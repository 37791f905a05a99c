package port

import "context"

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatModel produces a completion for an ordered list of messages.
type ChatModel interface {
	// Complete returns the text of the first choice.
	Complete(ctx context.Context, apiKey string, messages []ChatMessage) (string, error)

	// ModelName returns the name of the chat model.
	ModelName() string
}
