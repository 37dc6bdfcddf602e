package report

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAITextGenerator drafts text with a Gemini model.
type GenAITextGenerator struct {
	client *genai.Client
	model  string
}

func NewGenAITextGenerator(ctx context.Context, apiKey, model string) (*GenAITextGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &GenAITextGenerator{client: client, model: model}, nil
}

func (g *GenAITextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("empty generation result")
	}
	return text, nil
}
