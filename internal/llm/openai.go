package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider adapts any OpenAI-compatible endpoint (OpenAI, OpenRouter,
// self-hosted gateways) to the Provider contract.
type OpenAIProvider struct {
	name  string
	model llms.Model
}

// NewOpenAIProvider builds a provider. baseURL is optional; when set it
// points the client at a compatible third-party endpoint.
func NewOpenAIProvider(name, apiKey, model, baseURL string) (*OpenAIProvider, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
	}
	return &OpenAIProvider{name: name, model: llm}, nil
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, params Params) (string, Usage, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var opts []llms.CallOption
	if params.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	}
	if params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}

	resp, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", Usage{}, &ProviderError{Provider: p.name, Kind: Classify(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, &ProviderError{
			Provider: p.name,
			Kind:     KindOther,
			Err:      fmt.Errorf("empty response from model"),
		}
	}

	choice := resp.Choices[0]
	return choice.Content, usageFromInfo(choice.GenerationInfo), nil
}

func usageFromInfo(info map[string]any) Usage {
	return Usage{
		PromptTokens:     intFromInfo(info, "PromptTokens"),
		CompletionTokens: intFromInfo(info, "CompletionTokens"),
	}
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
