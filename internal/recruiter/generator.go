package recruiter

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
)

// Generator turns a prompt into model text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"

	systemInstruction = "You are a JSON generator. Output only a JSON object."
)

// GeminiGenerator calls the Gemini API with a JSON response type
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
}

// NewGeminiGenerator creates a generator backed by the Gemini API
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.NewConfigurationError("gemini api key is required", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create genai client", err)
	}

	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultGeminiModel
	}

	return &GeminiGenerator{client: client, modelName: modelName}, nil
}

// Name identifies the provider in logs and metrics
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate returns the concatenated text parts of the first answer
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", errors.NewExternalAPIError("Gemini", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}

	return "", errors.NewExternalAPIError("Gemini", fmt.Errorf("empty response from model %s", g.modelName))
}

// OpenAIGenerator calls any OpenAI-compatible chat completion endpoint
type OpenAIGenerator struct {
	chatModel model.BaseChatModel
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible endpoint.
// An empty baseURL selects the OpenAI API.
func NewOpenAIGenerator(ctx context.Context, baseURL, apiKey, modelName string) (*OpenAIGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.NewConfigurationError("openai api key is required", nil)
	}
	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultOpenAIModel
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create openai chat model", err)
	}

	return &OpenAIGenerator{chatModel: chatModel}, nil
}

// NewOpenAIGeneratorWithModel wraps an existing chat model
func NewOpenAIGeneratorWithModel(chatModel model.BaseChatModel) *OpenAIGenerator {
	return &OpenAIGenerator{chatModel: chatModel}
}

// Name identifies the provider in logs and metrics
func (g *OpenAIGenerator) Name() string { return "openai" }

// Generate sends the prompt as a single user turn
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemInstruction},
		{Role: schema.User, Content: prompt},
	}

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", errors.NewExternalAPIError("OpenAI", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errors.NewExternalAPIError("OpenAI", fmt.Errorf("empty response"))
	}
	return resp.Content, nil
}
