package completion

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/planwise/planwise/config"
	"github.com/planwise/planwise/internal/logger"
)

// OpenRouter talks to any OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	log         *logger.Logger
}

func NewOpenRouter(cfg config.LLMConfig, log *logger.Logger) *OpenRouter {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = newAttributedClient(cfg, timeout)
	return &OpenRouter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log,
	}
}

func newAttributedClient(cfg config.LLMConfig, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: attributionTransport{
			defaultReferer: cfg.Referer,
			title:          cfg.AppTitle,
		},
	}
}

func (o *OpenRouter) Complete(ctx context.Context, req Request) Reply {
	model := req.Model
	if model == "" {
		model = o.model
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		o.log.Warn("chat completion failed", "model", model, "error", err)
		return degraded("completion request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return degraded("completion returned no choices")
	}
	return ok(resp.Choices[0].Message.Content)
}
