package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/planwise/planwise/config"
	"github.com/planwise/planwise/internal/logger"
)

// FallbackReply is substituted when no provider text is available.
const FallbackReply = "Sorry, I couldn't generate a response."

// Provider roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Status reports whether a completion produced usable text.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model    string
	Messages []Message
}

// Reply is the outcome of a completion call. Failures are reported through
// Status and Reason rather than as errors.
type Reply struct {
	Text   string
	Status Status
	Reason string
}

// TextOrFallback returns the reply text, or FallbackReply when degraded.
func (r Reply) TextOrFallback() string {
	if r.Status != StatusOK || strings.TrimSpace(r.Text) == "" {
		return FallbackReply
	}
	return r.Text
}

// Provider produces an assistant reply for a message history.
type Provider interface {
	Complete(ctx context.Context, req Request) Reply
}

func degraded(format string, args ...interface{}) Reply {
	return Reply{Status: StatusDegraded, Reason: fmt.Sprintf(format, args...)}
}

func ok(text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return degraded("empty completion")
	}
	return Reply{Text: text, Status: StatusOK}
}

// MapRole converts a stored message role to the provider vocabulary. Unknown
// roles are sent as user messages.
func MapRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "USER":
		return RoleUser
	case "ASSISTANT":
		return RoleAssistant
	case "SYSTEM":
		return RoleSystem
	case "TOOL":
		return RoleTool
	default:
		return RoleUser
	}
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) Reply {
	return degraded("completion provider not configured")
}

// New builds the provider selected by cfg.Driver.
func New(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("llm api key not configured, replies will use the fallback text")
		return Disabled{}, nil
	}
	switch cfg.Driver {
	case "", "openrouter":
		return NewOpenRouter(cfg, log), nil
	case "eino":
		return NewEino(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported llm driver %q", cfg.Driver)
	}
}
