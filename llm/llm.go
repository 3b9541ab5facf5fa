package llm

import "context"

// Client is a vision-language model that answers a prompt about one image with free text.
type Client interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
	SourceName() string
}
