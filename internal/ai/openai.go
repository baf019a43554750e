package ai

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

//go:embed prompts/photo_classify.txt
var photoClassifyPrompt string

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIClassifier struct {
	client      *openai.Client
	usage       Usage
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens
}

func NewOpenAIClassifier(apiKey string, pricing RequestPricing) *OpenAIClassifier {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClassifier{
		client:      &client,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}
}

func (c *OpenAIClassifier) GetUsage() *Usage {
	return &c.usage
}

func (c *OpenAIClassifier) ResetUsage() {
	c.usage = Usage{}
}

func (c *OpenAIClassifier) trackUsage(inputTokens, outputTokens int64) {
	c.usage.InputTokens += int(inputTokens)
	c.usage.OutputTokens += int(outputTokens)
	c.usage.TotalCost += float64(inputTokens) / 1_000_000 * c.inputPrice
	c.usage.TotalCost += float64(outputTokens) / 1_000_000 * c.outputPrice
}

func (c *OpenAIClassifier) Name() string {
	return chatModel
}

func (c *OpenAIClassifier) ClassifyPhoto(ctx context.Context, imageData []byte, photo *PhotoContext) (*PhotoAnalysis, error) {
	const maxRetries = 5

	contentParts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(buildUserMessage(photo)),
	}

	// Without image bytes the model classifies from metadata alone.
	if len(imageData) > 0 {
		prepared, err := prepareImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare image: %w", err)
		}

		base64Image := base64.StdEncoding.EncodeToString(prepared)
		contentParts = append(contentParts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    "data:image/jpeg;base64," + base64Image,
			Detail: "low",
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(photoClassifyPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: contentParts,
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(500),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			c.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		var analysis PhotoAnalysis
		if err := json.Unmarshal([]byte(content), &analysis); err != nil {
			lastError = err

			// Add assistant response and error feedback to messages for retry
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash.", err)),
						},
					},
				},
			)
			continue
		}

		analysis.Normalize()
		return &analysis, nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

func buildUserMessage(photo *PhotoContext) string {
	if photo == nil {
		return "Classify this photo."
	}

	var parts []string
	parts = append(parts, "Classify this photo.")

	if photo.ProjectName != "" {
		parts = append(parts, "Project: "+photo.ProjectName)
	}
	if photo.CapturedAt != "" {
		parts = append(parts, "Captured at: "+photo.CapturedAt)
	}
	if photo.Lat != 0 || photo.Lng != 0 {
		parts = append(parts, fmt.Sprintf("GPS coordinates: %.6f, %.6f", photo.Lat, photo.Lng))
	}
	if len(photo.TagValues) > 0 {
		parts = append(parts, "Tags applied by the crew: "+strings.Join(photo.TagValues, ", "))
	}
	if photo.Description != "" {
		parts = append(parts, "Photographer's caption: "+photo.Description)
	}

	return strings.Join(parts, "\n")
}
