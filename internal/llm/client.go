package llm

import "context"

const RoleUser = "user"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is bound to a single model at construction time.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
