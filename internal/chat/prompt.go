package chat

import (
	"strings"

	"github.com/planwise/planwise/internal/budget"
	"github.com/planwise/planwise/internal/completion"
	"github.com/planwise/planwise/internal/pricing"
	"github.com/planwise/planwise/internal/store"
)

const (
	persona = "You are Planwise, a collaborative event planning assistant. " +
		"Always consider the existing plan, budget, and past actions when responding. " +
		"If you add or adjust items, mention the updated totals. " +
		"When you suggest venues or services, include price estimates when available."

	noPlanDetails = "No plan details yet."
)

// SystemPrompt combines the persona, the plan summary and any pricing
// suggestions fetched for this turn.
func SystemPrompt(summary string, results []pricing.Result) string {
	if strings.TrimSpace(summary) == "" {
		summary = noPlanDetails
	}
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nCurrent Plan Summary:\n")
	b.WriteString(summary)
	if lines := budget.FormatPricingLines(results); lines != "" {
		b.WriteString("\n\nRecent Pricing Suggestions:\n")
		b.WriteString(lines)
	}
	return b.String()
}

// BuildMessages prepends the system prompt to the stored history.
func BuildMessages(system string, history []store.Message) []completion.Message {
	out := make([]completion.Message, 0, len(history)+1)
	out = append(out, completion.Message{Role: completion.RoleSystem, Content: system})
	for _, m := range history {
		out = append(out, completion.Message{Role: completion.MapRole(m.Role), Content: m.Content})
	}
	return out
}
