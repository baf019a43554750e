package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiClassifier struct {
	client      *genai.Client
	usage       Usage
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens
}

func NewGeminiClassifier(ctx context.Context, apiKey string, pricing RequestPricing) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		client:      client,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}, nil
}

func (c *GeminiClassifier) GetUsage() *Usage {
	return &c.usage
}

func (c *GeminiClassifier) ResetUsage() {
	c.usage = Usage{}
}

func (c *GeminiClassifier) trackUsage(inputTokens, outputTokens int32) {
	c.usage.InputTokens += int(inputTokens)
	c.usage.OutputTokens += int(outputTokens)
	c.usage.TotalCost += float64(inputTokens) / 1_000_000 * c.inputPrice
	c.usage.TotalCost += float64(outputTokens) / 1_000_000 * c.outputPrice
}

func (c *GeminiClassifier) Name() string {
	return geminiModel
}

func (c *GeminiClassifier) ClassifyPhoto(ctx context.Context, imageData []byte, photo *PhotoContext) (*PhotoAnalysis, error) {
	const maxRetries = 5

	parts := []*genai.Part{
		{Text: photoClassifyPrompt + "\n\n" + buildUserMessage(photo)},
	}

	// Without image bytes the model classifies from metadata alone.
	if len(imageData) > 0 {
		prepared, err := prepareImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare image: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: prepared, MIMEType: "image/jpeg"}})
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := c.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			c.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		var analysis PhotoAnalysis
		if err := json.Unmarshal([]byte(content), &analysis); err != nil {
			lastError = err

			// Add model response and error feedback to contents for retry
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash.", err)}},
				},
			)
			continue
		}

		analysis.Normalize()
		return &analysis, nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
