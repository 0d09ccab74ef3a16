package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// CompletionClient defines the standard interface for any LLM backend.
// Every pipeline stage that talks to a model goes through this.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, params GenerationParams) (string, error)
}
