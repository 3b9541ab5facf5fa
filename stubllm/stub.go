package stubllm

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"saferoads/assessment"
)

// Client is a deterministic, no-network LLM client intended for CI/e2e.
// The same image always produces the same assessment.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

// AnalyzeImage answers in the shape a real model does: prose around one JSON object.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(image)
	score := int(sum[0]) % 101

	payload, err := json.Marshal(assessment.Simulate(score))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Here is my assessment of the road surface:\n%s\nStay safe.", payload), nil
}
