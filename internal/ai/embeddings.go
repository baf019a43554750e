package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// embeddingDimensions must match the width of the analyses.embedding column.
const (
	embeddingModel      = openai.EmbeddingModelTextEmbedding3Small
	embeddingDimensions = 768
)

// Embedder produces a fixed-size vector embedding for a photo description.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbedText embeds the given text with the OpenAI embeddings API.
func (c *OpenAIClassifier) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Dimensions: openai.Int(embeddingDimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	if resp.Usage.PromptTokens > 0 {
		c.trackUsage(resp.Usage.PromptTokens, 0)
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
