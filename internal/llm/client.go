// Package llm is the language-model fallback for utterances no built-in
// handler claims. Requests go to OpenRouter through the OpenAI-compatible
// chat completion API.
package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-oss-20b:free"
)

const systemPrompt = "Jesteś pomocnym asystentem głosowym o imieniu Nowa. " +
	"Odpowiadaj żywo, naturalnie i krótko oraz rozmownie, zawsze po polsku. " +
	"Zakaz emotek i znaków specjalnych. nie używaj **."

// Client completes prompts with the Nowa persona. Safe for concurrent use.
type Client struct {
	api   openai.Client
	model string
}

// NewClient builds a Client for the given OpenRouter API key. httpClient may
// be nil; pass a SOCKS client to route requests through a proxy.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(openRouterBaseURL),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Client{
		api:   openai.NewClient(opts...),
		model: defaultModel,
	}
}

// Complete sends prompt as a single user turn and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}
