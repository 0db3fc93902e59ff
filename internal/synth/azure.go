package synth

import (
	"context"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/rotisserie/eris"
)

// chatCompleter is the slice of the OpenAI client the Azure provider uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest, opts ...openai.ChatCompletionRequestOption) (openai.ChatCompletionResponse, error)
}

// AzureProvider synthesizes with an Azure OpenAI chat deployment.
type AzureProvider struct {
	client     chatCompleter
	deployment string
	maxTokens  int
}

// NewAzureProvider creates a provider for the given Azure resource endpoint
// and deployment.
func NewAzureProvider(apiKey, endpoint, apiVersion, deployment string, maxTokens int) *AzureProvider {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	// Deployment names are used verbatim rather than derived from model ids.
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &AzureProvider{
		client:     openai.NewClientWithConfig(cfg),
		deployment: deployment,
		maxTokens:  maxTokens,
	}
}

// Name implements Provider.
func (p *AzureProvider) Name() string { return "azure" }

// Synthesize implements Provider. Only the first choice is used.
func (p *AzureProvider) Synthesize(ctx context.Context, systemPolicy, userContent string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPolicy},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "synth: azure chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
