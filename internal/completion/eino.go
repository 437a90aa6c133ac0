package completion

import (
	"context"
	"fmt"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/planwise/planwise/config"
	"github.com/planwise/planwise/internal/logger"
)

// Eino runs completions through an eino chat model.
type Eino struct {
	model model.ChatModel
	log   *logger.Logger
}

func NewEino(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (*Eino, error) {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	modelCfg := &einoopenai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		HTTPClient: newAttributedClient(cfg, timeout),
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		modelCfg.Temperature = &temperature
	}
	cm, err := einoopenai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("eino chat model: %w", err)
	}
	return &Eino{model: cm, log: log}, nil
}

// NewEinoWithModel wraps an existing chat model.
func NewEinoWithModel(cm model.ChatModel, log *logger.Logger) *Eino {
	if log == nil {
		log = logger.Nop()
	}
	return &Eino{model: cm, log: log}
}

func (e *Eino) Complete(ctx context.Context, req Request) Reply {
	messages := make([]*schema.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, &schema.Message{Role: schemaRole(m.Role), Content: m.Content})
	}
	out, err := e.model.Generate(ctx, messages)
	if err != nil {
		e.log.Warn("eino completion failed", "error", err)
		return degraded("completion request failed: %v", err)
	}
	if out == nil {
		return degraded("completion returned no message")
	}
	return ok(out.Content)
}

func schemaRole(role string) schema.RoleType {
	switch role {
	case RoleSystem:
		return schema.System
	case RoleAssistant:
		return schema.Assistant
	case RoleTool:
		return schema.Tool
	default:
		return schema.User
	}
}
